package db

import (
	"context"
	"fmt"
	"time"

	"github.com/TermGraph/ds"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4j stores chronologies as (:Chronology) nodes keyed on nid. A semantic
// has a REFERENCES relationship to its referenced component. Versions are a
// list property of encoded versions, merged on write.
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
}

const (
	mergeConcept = `
MERGE (n:Chronology {nid: $nid})
SET n.uid = $uid, n.kind = $kind, n.asm = $asm,
    n.versions = [v IN coalesce(n.versions, []) WHERE NOT v IN $versions] + $versions
`
	mergeSemantic = `
MERGE (n:Chronology {nid: $nid})
SET n.uid = $uid, n.kind = $kind, n.asm = $asm, n.ty = $ty, n.ref = $ref,
    n.versions = [v IN coalesce(n.versions, []) WHERE NOT v IN $versions] + $versions
MERGE (c:Chronology {nid: $ref})
MERGE (n)-[:REFERENCES]->(c)
`
	queryConcepts  = `MATCH (n:Chronology {asm: $asm, kind: $kind}) RETURN n.nid AS nid ORDER BY nid`
	querySemantics = `MATCH (n:Chronology {ref: $ref, asm: $asm}) RETURN n.nid AS nid ORDER BY nid`
)

func NewNeo4j(ctx context.Context, uri, user, password, database string) (*Neo4j, error) {

	auth := neo4j.BasicAuth(user, password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = 50
		cfg.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, newDBSysErr("NewNeo4j", uri, "init driver", NonRetryOperErr, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, newDBSysErr("NewNeo4j", uri, "verify connectivity", NonRetryOperErr, err)
	}
	n := &Neo4j{driver: driver, database: database}
	if err := n.schema(ctx); err != nil {
		syslog(fmt.Sprintf("neo4j schema init failed (continuing): %s", err))
	}
	return n, nil
}

func (n *Neo4j) schema(ctx context.Context) error {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: n.database})
	defer session.Close(ctx)

	for _, stmt := range []string{
		`CREATE CONSTRAINT chronology_nid_unique IF NOT EXISTS FOR (n:Chronology) REQUIRE n.nid IS UNIQUE`,
		`CREATE INDEX chronology_asm_idx IF NOT EXISTS FOR (n:Chronology) ON (n.asm, n.kind)`,
		`CREATE INDEX chronology_ref_idx IF NOT EXISTS FOR (n:Chronology) ON (n.ref, n.asm)`,
	} {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return err
		}
		if _, err := res.Consume(ctx); err != nil {
			return err
		}
	}
	return nil
}

func conceptParams(c *ds.Concept) map[string]any {
	return map[string]any{
		"nid":      int64(c.Nid),
		"uid":      c.UUID.String(),
		"kind":     KindConcept,
		"asm":      int64(c.Assemblage),
		"versions": encodeVersions(c.Versions),
	}
}

func semanticParams(s *ds.Semantic) map[string]any {
	return map[string]any{
		"nid":      int64(s.Nid),
		"uid":      s.UUID.String(),
		"kind":     KindSemantic,
		"asm":      int64(s.Assemblage),
		"ty":       int64(s.Type),
		"ref":      int64(s.Component),
		"versions": encodeVersions(s.Versions),
	}
}

func (n *Neo4j) write(ctx context.Context, rt string, cypher string, params map[string]any) error {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: n.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return newDBSysErr(rt, fmt.Sprint(params["nid"]), "ExecuteWrite", NonRetryOperErr, err)
	}
	return nil
}

func (n *Neo4j) WriteConcept(ctx context.Context, c *ds.Concept) error {
	return n.write(ctx, "WriteConcept", mergeConcept, conceptParams(c))
}

func (n *Neo4j) WriteSemantic(ctx context.Context, s *ds.Semantic) error {
	return n.write(ctx, "WriteSemantic", mergeSemantic, semanticParams(s))
}

func (n *Neo4j) readNids(ctx context.Context, rt string, cypher string, params map[string]any, fn func(ds.Nid) error) error {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: n.database})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return newDBSysErr(rt, "", "Run", NonRetryOperErr, err)
	}
	for res.Next(ctx) {
		v, ok := res.Record().Get("nid")
		if !ok {
			return newDBSysErr(rt, "", "record has no nid", UnmarshallingErr, ErrNoNid)
		}
		nid, ok := v.(int64)
		if !ok {
			return newDBSysErr(rt, "", fmt.Sprintf("nid has type %T", v), UnmarshallingErr, ErrNoNid)
		}
		if err := fn(ds.Nid(nid)); err != nil {
			return err
		}
	}
	if err := res.Err(); err != nil {
		return newDBSysErr(rt, "", "result", NonRetryOperErr, err)
	}
	return nil
}

func (n *Neo4j) ConceptNids(ctx context.Context, assemblage ds.Nid, fn func(ds.Nid) error) error {
	return n.readNids(ctx, "ConceptNids", queryConcepts, map[string]any{"asm": int64(assemblage), "kind": KindConcept}, fn)
}

func (n *Neo4j) SemanticNids(ctx context.Context, component, assemblage ds.Nid) ([]ds.Nid, error) {
	var nids []ds.Nid
	err := n.readNids(ctx, "SemanticNids", querySemantics, map[string]any{"ref": int64(component), "asm": int64(assemblage)}, func(nid ds.Nid) error {
		nids = append(nids, nid)
		return nil
	})
	return nids, err
}

func (n *Neo4j) Close() error {
	return n.driver.Close(context.Background())
}
