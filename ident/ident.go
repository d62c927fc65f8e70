// Package ident assigns compact internal identifiers (nids) to UUIDs.
package ident

import (
	"errors"
	"fmt"

	"github.com/TermGraph/ds"
	"github.com/TermGraph/uuid"
)

// ErrNotFound is returned by Resolve when a UUID has never been assigned a nid.
var ErrNotFound = errors.New("identity not found")

// Service is the identity service consumed by writers. Implementations are
// safe for concurrent use.
type Service interface {
	// Resolve returns the nid of u, or an error wrapping ErrNotFound.
	Resolve(u uuid.UID) (ds.Nid, error)
	HasIdentity(u uuid.UID) bool
	// Assign returns the nid of u, assigning the next nid on first sight.
	Assign(u uuid.UID) (ds.Nid, error)
}

func notFound(u uuid.UID) error {
	return fmt.Errorf("uuid %s: %w", u, ErrNotFound)
}
