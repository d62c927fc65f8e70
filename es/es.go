// Package es maintains the search index of loaded content.
package es

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TermGraph/ds"
	slog "github.com/TermGraph/syslog"

	esv7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

const logid = "ElasticSearch: "

func syslog(s string) {
	slog.Log(logid, s)
}

// Indexer is an index service. Writers index each record before persisting it.
type Indexer interface {
	IndexConcept(ctx context.Context, c *ds.Concept) error
	IndexSemantic(ctx context.Context, s *ds.Semantic) error
}

// Indexers fans each request out to zero or more registered indexers.
// The first error is returned after every indexer has been called.
type Indexers []Indexer

func (ix Indexers) IndexConcept(ctx context.Context, c *ds.Concept) error {
	var first error
	for _, i := range ix {
		if err := i.IndexConcept(ctx, c); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (ix Indexers) IndexSemantic(ctx context.Context, s *ds.Semantic) error {
	var first error
	for _, i := range ix {
		if err := i.IndexSemantic(ctx, s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Doc is the indexed form of a semantic with text content.
type Doc struct {
	Nid        int32  `json:"nid"`
	Assemblage int32  `json:"asm"`
	Component  int32  `json:"ref"`
	Type       string `json:"type"`
	Text       string `json:"text"`
}

// Elastic indexes the text of description and identifier semantics.
// Concepts carry no text and are not indexed.
type Elastic struct {
	client *esv7.Client
	index  string
}

// NewElastic establishes a client and checks the cluster is reachable.
// transport may be nil.
func NewElastic(addresses []string, index string, transport http.RoundTripper) (*Elastic, error) {

	cfg := esv7.Config{Addresses: addresses, Transport: transport}
	client, err := esv7.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("ES Error creating the client: %w", err)
	}
	//
	// Get cluster info
	//
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("ES Error getting Info response: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("ES Error: %s", res.String())
	}
	var r struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("ES Error parsing the response body: %w", err)
	}
	syslog(fmt.Sprintf("Client: %s Server: %s", esv7.Version, r.Version.Number))

	// index must be in lowercase otherwise generates a 400 error
	return &Elastic{client: client, index: strings.ToLower(index)}, nil
}

func (e *Elastic) IndexConcept(ctx context.Context, c *ds.Concept) error {
	return nil
}

func (e *Elastic) IndexSemantic(ctx context.Context, s *ds.Semantic) error {

	text := s.Text()
	if len(text) == 0 {
		return nil
	}
	body, err := json.Marshal(Doc{Nid: int32(s.Nid), Assemblage: int32(s.Assemblage), Component: int32(s.Component), Type: s.Type.String(), Text: text})
	if err != nil {
		return err
	}

	t0 := time.Now()
	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: s.UUID.String(),
		Body:       strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("ES error indexing %s: %w", s.UUID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ES error indexing document ID=%s. Status: %v", s.UUID, res.Status())
	}
	syslog(fmt.Sprintf("[%s] indexed %s  API Duration: %s", res.Status(), s.UUID, time.Since(t0)))
	return nil
}
