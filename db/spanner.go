package db

import (
	"context"
	"fmt"
	"time"

	"github.com/TermGraph/ds"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// Spanner schema:
//
//	CREATE TABLE Chronology (
//		Nid  INT64 NOT NULL,
//		Uid  BYTES(16) NOT NULL,
//		Kind STRING(1) NOT NULL,
//		Ty   INT64,
//		Asm  INT64 NOT NULL,
//		Ref  INT64,
//	) PRIMARY KEY (Nid);
//	CREATE INDEX ChronologyAsm ON Chronology(Asm, Kind);
//	CREATE INDEX ChronologyRef ON Chronology(Ref, Asm);
//	CREATE TABLE Version (
//		Nid    INT64 NOT NULL,
//		Stamp  INT64 NOT NULL,
//		Fields STRING(MAX),
//	) PRIMARY KEY (Nid, Stamp), INTERLEAVE IN PARENT Chronology ON DELETE CASCADE;
var (
	chronCols   = []string{"Nid", "Uid", "Kind", "Ty", "Asm", "Ref"}
	versionCols = []string{"Nid", "Stamp", "Fields"}
)

type Spanner struct {
	client *spanner.Client
}

// NewSpanner connects to database, of the form projects/P/instances/I/databases/D.
// NewClient does not error if the instance is not available; the first
// operation does.
func NewSpanner(ctx context.Context, database string, opts ...option.ClientOption) (*Spanner, error) {
	client, err := spanner.NewClient(ctx, database, opts...)
	if err != nil {
		return nil, newDBSysErr("NewSpanner", database, "create client", NonRetryOperErr, err)
	}
	return &Spanner{client: client}, nil
}

func versionMutations(nid ds.Nid, vs []ds.Version) []*spanner.Mutation {
	ms := make([]*spanner.Mutation, 0, len(vs))
	for _, v := range vs {
		ms = append(ms, spanner.InsertOrUpdate("Version", versionCols, []interface{}{int64(nid), int64(v.Stamp), EncodeVersion(v)}))
	}
	return ms
}

func conceptMutations(c *ds.Concept) []*spanner.Mutation {
	ms := []*spanner.Mutation{
		spanner.InsertOrUpdate("Chronology", chronCols, []interface{}{int64(c.Nid), []byte(c.UUID), KindConcept, spanner.NullInt64{}, int64(c.Assemblage), spanner.NullInt64{}}),
	}
	return append(ms, versionMutations(c.Nid, c.Versions)...)
}

func semanticMutations(s *ds.Semantic) []*spanner.Mutation {
	ms := []*spanner.Mutation{
		spanner.InsertOrUpdate("Chronology", chronCols, []interface{}{int64(s.Nid), []byte(s.UUID), KindSemantic, int64(s.Type), int64(s.Assemblage), int64(s.Component)}),
	}
	return append(ms, versionMutations(s.Nid, s.Versions)...)
}

func spannerRetryable(err error) bool {
	switch spanner.ErrCode(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	}
	return false
}

func (s *Spanner) apply(ctx context.Context, rt string, nid ds.Nid, ms []*spanner.Mutation) error {
	delay := 100 * time.Millisecond
	var err error
	for i := 0; i < maxOperRetries; i++ {
		if _, err = s.client.Apply(ctx, ms); err == nil {
			return nil
		}
		if !spannerRetryable(err) {
			return newDBSysErr(rt, fmt.Sprint(nid), "Apply", spanner.ErrCode(err).String(), err)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return newDBSysErr(rt, fmt.Sprint(nid), fmt.Sprintf("Exceed max retries [%d]", maxOperRetries), MaxOperRetries, err)
}

func (s *Spanner) WriteConcept(ctx context.Context, c *ds.Concept) error {
	return s.apply(ctx, "WriteConcept", c.Nid, conceptMutations(c))
}

func (s *Spanner) WriteSemantic(ctx context.Context, sm *ds.Semantic) error {
	return s.apply(ctx, "WriteSemantic", sm.Nid, semanticMutations(sm))
}

func (s *Spanner) queryNids(ctx context.Context, rt string, stmt spanner.Statement, fn func(ds.Nid) error) error {

	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	for {
		row, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return newDBSysErr(rt, "", "Query", spanner.ErrCode(err).String(), err)
		}
		var nid int64
		if err := row.Columns(&nid); err != nil {
			return newDBSysErr(rt, "", "row.Columns", UnmarshallingErr, err)
		}
		if err := fn(ds.Nid(nid)); err != nil {
			return err
		}
	}
}

func (s *Spanner) ConceptNids(ctx context.Context, assemblage ds.Nid, fn func(ds.Nid) error) error {
	stmt := spanner.Statement{
		SQL:    `SELECT Nid FROM Chronology@{FORCE_INDEX=ChronologyAsm} WHERE Asm = @asm AND Kind = @kind ORDER BY Nid`,
		Params: map[string]interface{}{"asm": int64(assemblage), "kind": KindConcept},
	}
	return s.queryNids(ctx, "ConceptNids", stmt, fn)
}

func (s *Spanner) SemanticNids(ctx context.Context, component, assemblage ds.Nid) ([]ds.Nid, error) {
	stmt := spanner.Statement{
		SQL:    `SELECT Nid FROM Chronology@{FORCE_INDEX=ChronologyRef} WHERE Ref = @ref AND Asm = @asm ORDER BY Nid`,
		Params: map[string]interface{}{"ref": int64(component), "asm": int64(assemblage)},
	}
	var nids []ds.Nid
	err := s.queryNids(ctx, "SemanticNids", stmt, func(n ds.Nid) error {
		nids = append(nids, n)
		return nil
	})
	return nids, err
}

func (s *Spanner) Close() error {
	s.client.Close()
	return nil
}
