package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TermGraph/ds"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB table layout. One item per chronology:
//
//	PKey   B   uuid
//	SortK  S   "C" concept | "S" semantic
//	Nid    N
//	Asm    N   assemblage nid               (GSI AsmIdx: Asm, Nid)
//	Ty     N   semantic version type
//	RefAsm S   "<component>#<assemblage>"   (GSI RefIdx: RefAsm, Nid)
//	Vs     SS  encoded versions
const (
	asmIdx = "AsmIdx"
	refIdx = "RefIdx"

	maxOperRetries = 5
)

// DynamoAPI is the subset of the DynamoDB client used by the store.
type DynamoAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type Dynamo struct {
	client DynamoAPI
	table  string
	// base delay for throttled operations
	delay time.Duration
}

// NewDynamo loads the default AWS configuration (environment, shared
// credentials and config files) and returns a store over table.
func NewDynamo(ctx context.Context, table string, optFns ...func(*config.LoadOptions) error) (*Dynamo, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewDynamoWithClient(dynamodb.NewFromConfig(cfg), table), nil
}

func NewDynamoWithClient(client DynamoAPI, table string) *Dynamo {
	return &Dynamo{client: client, table: table, delay: 100 * time.Millisecond}
}

// stringSet marshals as a DynamoDB string set, so ADD merges versions.
type stringSet []string

func (s stringSet) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberSS{Value: s}, nil
}

type itemKey struct {
	PKey  []byte `dynamodbav:"PKey"`
	SortK string `dynamodbav:"SortK"`
}

func refAsm(component, assemblage ds.Nid) string {
	return fmt.Sprintf("%d#%d", component, assemblage)
}

func (d *Dynamo) WriteConcept(ctx context.Context, c *ds.Concept) error {
	upd := expression.Set(expression.Name("Nid"), expression.Value(c.Nid)).
		Set(expression.Name("Asm"), expression.Value(c.Assemblage))
	return d.update(ctx, "WriteConcept", itemKey{c.UUID, KindConcept}, upd, c.Versions)
}

func (d *Dynamo) WriteSemantic(ctx context.Context, s *ds.Semantic) error {
	upd := expression.Set(expression.Name("Nid"), expression.Value(s.Nid)).
		Set(expression.Name("Asm"), expression.Value(s.Assemblage)).
		Set(expression.Name("Ty"), expression.Value(int(s.Type))).
		Set(expression.Name("RefAsm"), expression.Value(refAsm(s.Component, s.Assemblage)))
	return d.update(ctx, "WriteSemantic", itemKey{s.UUID, KindSemantic}, upd, s.Versions)
}

func (d *Dynamo) update(ctx context.Context, rt string, key itemKey, upd expression.UpdateBuilder, vs []ds.Version) error {

	if len(vs) > 0 {
		upd = upd.Add(expression.Name("Vs"), expression.Value(stringSet(encodeVersions(vs))))
	}
	expr, err := expression.NewBuilder().WithUpdate(upd).Build()
	if err != nil {
		return newDBSysErr(rt, fmt.Sprintf("%x", key.PKey), "expression build", MarshalingErr, err)
	}
	av, err := attributevalue.MarshalMap(key)
	if err != nil {
		return newDBSysErr(rt, fmt.Sprintf("%x", key.PKey), "marshal key", MarshalingErr, err)
	}
	in := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.table),
		Key:                       av,
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	return d.retry(ctx, rt, fmt.Sprintf("%x", key.PKey), func() error {
		_, err := d.client.UpdateItem(ctx, in)
		return err
	})
}

// retryable reports whether the operation that caused err can be retried.
// Only throughput and request limit errors are, the SDK retryer having
// already handled transient 500s.
func retryable(err error) bool {
	var pte *types.ProvisionedThroughputExceededException
	var rle *types.RequestLimitExceeded
	return errors.As(err, &pte) || errors.As(err, &rle)
}

func (d *Dynamo) retry(ctx context.Context, rt, key string, op func() error) error {

	delay := d.delay
	var err error
	for i := 0; i < maxOperRetries; i++ {
		if err = op(); err == nil {
			return nil
		}
		if !retryable(err) {
			return newDBSysErr(rt, key, "Error type prevents retry of operation", NonRetryOperErr, err)
		}
		syslog(fmt.Sprintf("%s: throttled, retry %d after %s", rt, i+1, delay))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return newDBSysErr(rt, key, fmt.Sprintf("Exceed max retries [%d]", maxOperRetries), MaxOperRetries, err)
}

type nidItem struct {
	Nid int32 `dynamodbav:"Nid"`
}

func (d *Dynamo) query(ctx context.Context, rt string, index string, keyC expression.KeyConditionBuilder, filt *expression.ConditionBuilder, fn func(ds.Nid) error) error {

	b := expression.NewBuilder().WithKeyCondition(keyC).WithProjection(expression.NamesList(expression.Name("Nid")))
	if filt != nil {
		b = b.WithFilter(*filt)
	}
	expr, err := b.Build()
	if err != nil {
		return newDBSysErr(rt, "", "expression build", MarshalingErr, err)
	}
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(d.table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	p := dynamodb.NewQueryPaginator(d.client, in)
	for p.HasMorePages() {
		var out *dynamodb.QueryOutput
		err := d.retry(ctx, rt, "", func() error {
			var err error
			out, err = p.NextPage(ctx)
			return err
		})
		if err != nil {
			return err
		}
		var rows []nidItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
			return newDBSysErr(rt, "", "unmarshal query result", UnmarshallingErr, err)
		}
		for _, r := range rows {
			if err := fn(ds.Nid(r.Nid)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dynamo) ConceptNids(ctx context.Context, assemblage ds.Nid, fn func(ds.Nid) error) error {
	keyC := expression.Key("Asm").Equal(expression.Value(assemblage))
	filt := expression.Name("SortK").Equal(expression.Value(KindConcept))
	return d.query(ctx, "ConceptNids", asmIdx, keyC, &filt, fn)
}

func (d *Dynamo) SemanticNids(ctx context.Context, component, assemblage ds.Nid) ([]ds.Nid, error) {
	var nids []ds.Nid
	keyC := expression.Key("RefAsm").Equal(expression.Value(refAsm(component, assemblage)))
	err := d.query(ctx, "SemanticNids", refIdx, keyC, nil, func(n ds.Nid) error {
		nids = append(nids, n)
		return nil
	})
	return nids, err
}

func (d *Dynamo) Close() error { return nil }
