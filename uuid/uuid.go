package uuid

import (
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	guuid "github.com/satori/go.uuid"
)

type UIDb64 string

type UIDstring string

type UID []byte

// ErrEncoding is returned when a natural key cannot be encoded for hashing.
var ErrEncoding = errors.New("natural key encoding error")

// snomedPrefix is hashed with every SCTID. It is what makes Scheme A UUIDs
// match those published for SNOMED CT components.
const snomedPrefix = "org.snomed."

func MakeUID() (UID, error) {
	u := guuid.NewV4()
	uuibin, err := u.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return uuibin, nil
}

// FromSCTID derives the UUID of a SNOMED CT component from its identifier
// (Scheme A). The result is a name based version 3 UUID over "org.snomed."+id.
func FromSCTID(id string) UID {
	sum := md5.Sum([]byte(snomedPrefix + id))
	u, err := guuid.FromBytes(sum[:])
	if err != nil {
		// md5 sum is always 16 bytes
		panic(err)
	}
	u.SetVersion(guuid.V3)
	u.SetVariant(guuid.VariantRFC4122)
	return u.Bytes()
}

// FromAssemblage derives the UUID of an entity whose identity is scoped to an
// assemblage (Scheme B): a version 5 UUID over the assemblage UUID and key.
func FromAssemblage(ns UID, key string) (UID, error) {
	if !utf8.ValidString(key) {
		return nil, fmt.Errorf("key %q under namespace %s: %w", key, ns, ErrEncoding)
	}
	nsu, err := guuid.FromBytes(ns)
	if err != nil {
		return nil, fmt.Errorf("namespace %x: %w", []byte(ns), ErrEncoding)
	}
	return guuid.NewV5(nsu, key).Bytes(), nil
}

// MustFromAssemblage is FromAssemblage for keys known at compile time.
func MustFromAssemblage(ns UID, key string) UID {
	u, err := FromAssemblage(ns, key)
	if err != nil {
		panic(err)
	}
	return u
}

// Composite joins the parts of a composite natural key.
func Composite(parts ...string) string {
	return strings.Join(parts, "|")
}

// Key returns the UID as a fixed size array, usable as a map key.
func (u UID) Key() [16]byte {
	var k [16]byte
	copy(k[:], u)
	return k
}

func (u UID) Equal(o UID) bool {
	return u.Key() == o.Key()
}

// Base64 converts UID binary to base64 string
func (u UID) Base64() UIDb64 {
	return UIDb64(base64.StdEncoding.EncodeToString(u))
}

// EncodeBase64 aka Base64()
func (uid UID) EncodeBase64() UIDb64 {
	return uid.Base64()
}

// DecodeBase64 converts 24 bit base64 encoded string to binary (UID)
func DecodeBase64(ub64 UIDb64) (UID, error) {
	dst := make([]byte, base64.StdEncoding.DecodedLen(len(ub64)))
	n, err := base64.StdEncoding.Decode(dst, []byte(ub64))
	if err != nil {
		return nil, fmt.Errorf("UID decode error: %w", err)
	}
	return dst[:n], nil
}

// string - from UID binary to long string ie.format "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
func (u UID) String() string {
	uuid, err := guuid.FromBytes(u)
	if err != nil {
		return fmt.Sprintf("invalid-uid(%x)", []byte(u))
	}
	return uuid.String()
}

func (u UID) ToString() UIDstring {
	return UIDstring(u.String())
}

// FromString converts a UID in long string format (or 24 character base64) to binary
func FromString(u string) (UID, error) {

	if len(u) == 24 {
		return DecodeBase64(UIDb64(u))
	}

	uuid, err := guuid.FromString(u)
	if err != nil {
		return nil, err
	}
	return uuid.Bytes(), nil
}

// MustFromString is FromString for literals.
func MustFromString(u string) UID {
	uid, err := FromString(u)
	if err != nil {
		panic(err)
	}
	return uid
}
