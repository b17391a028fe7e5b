package ddbstore

import (
	"fmt"
	"time"

	"github.com/acksell/moviesdemo/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// catalogEntry is the persisted metadata of one table. It is stored as a
// regular DynamoDB item so it goes through the same encoding as table data.
type catalogEntry struct {
	Name         string      `dynamodbav:"name"`
	TableID      string      `dynamodbav:"table_id"`
	PartitionKey keyRecord   `dynamodbav:"pk"`
	SortKey      *keyRecord  `dynamodbav:"sk,omitempty"`
	GSIs         []gsiRecord `dynamodbav:"gsis,omitempty"`
	BillingMode  string      `dynamodbav:"billing_mode"`
	CreatedAt    time.Time   `dynamodbav:"created_at"`
}

type keyRecord struct {
	Name string `dynamodbav:"name"`
	Kind string `dynamodbav:"kind"`
}

type gsiRecord struct {
	Name             string     `dynamodbav:"name"`
	PartitionKey     keyRecord  `dynamodbav:"pk"`
	SortKey          *keyRecord `dynamodbav:"sk,omitempty"`
	Projection       string     `dynamodbav:"projection"`
	NonKeyAttributes []string   `dynamodbav:"non_key_attributes,omitempty"`
}

func newCatalogEntry(def table.TableDefinition, id string, createdAt time.Time) *catalogEntry {
	e := &catalogEntry{
		Name:         def.Name,
		TableID:      id,
		PartitionKey: toKeyRecord(def.KeyDefinitions.PartitionKey),
		SortKey:      toSortKeyRecord(def.KeyDefinitions),
		BillingMode:  string(def.BillingMode),
		CreatedAt:    createdAt.UTC(),
	}
	if e.BillingMode == "" {
		e.BillingMode = string(table.BillingOnDemand)
	}
	for _, gsi := range def.GSIs {
		projection := string(gsi.Projection.Kind)
		if projection == "" {
			projection = string(table.ProjectAll)
		}
		e.GSIs = append(e.GSIs, gsiRecord{
			Name:             gsi.Name,
			PartitionKey:     toKeyRecord(gsi.KeyDefinitions.PartitionKey),
			SortKey:          toSortKeyRecord(gsi.KeyDefinitions),
			Projection:       projection,
			NonKeyAttributes: gsi.Projection.NonKeyAttributes,
		})
	}
	return e
}

func toKeyRecord(k table.KeyDef) keyRecord {
	return keyRecord{Name: k.Name, Kind: string(k.Kind)}
}

func toSortKeyRecord(k table.PrimaryKeyDefinition) *keyRecord {
	if !k.HasSortKey() {
		return nil
	}
	r := toKeyRecord(k.SortKey)
	return &r
}

func (r keyRecord) def() table.KeyDef {
	return table.KeyDef{Name: r.Name, Kind: table.KeyKind(r.Kind)}
}

func keyDefinition(pk keyRecord, sk *keyRecord) table.PrimaryKeyDefinition {
	out := table.PrimaryKeyDefinition{PartitionKey: pk.def()}
	if sk != nil {
		out.SortKey = sk.def()
	}
	return out
}

func (e *catalogEntry) definition() table.TableDefinition {
	def := table.TableDefinition{
		Name:           e.Name,
		KeyDefinitions: keyDefinition(e.PartitionKey, e.SortKey),
		BillingMode:    table.BillingMode(e.BillingMode),
	}
	for _, gsi := range e.GSIs {
		def.GSIs = append(def.GSIs, table.GSIDefinition{
			Name:           gsi.Name,
			KeyDefinitions: keyDefinition(gsi.PartitionKey, gsi.SortKey),
			Projection: table.Projection{
				Kind:             table.ProjectionKind(gsi.Projection),
				NonKeyAttributes: gsi.NonKeyAttributes,
			},
		})
	}
	return def
}

// description renders the entry the way DescribeTable reports an ACTIVE table.
func (e *catalogEntry) description(region string) (*types.TableDescription, error) {
	def := e.definition()
	in, err := def.CreateTableInput()
	if err != nil {
		return nil, fmt.Errorf("stored definition of %q is invalid: %w", e.Name, err)
	}
	arn := fmt.Sprintf("arn:aws:dynamodb:%s:000000000000:table/%s", region, e.Name)
	desc := &types.TableDescription{
		TableName:            aws.String(e.Name),
		TableId:              aws.String(e.TableID),
		TableArn:             aws.String(arn),
		TableStatus:          types.TableStatusActive,
		CreationDateTime:     aws.Time(e.CreatedAt),
		KeySchema:            in.KeySchema,
		AttributeDefinitions: in.AttributeDefinitions,
		BillingModeSummary: &types.BillingModeSummary{
			BillingMode:                       in.BillingMode,
			LastUpdateToPayPerRequestDateTime: aws.Time(e.CreatedAt),
		},
		ItemCount:      aws.Int64(0),
		TableSizeBytes: aws.Int64(0),
	}
	for _, gsi := range in.GlobalSecondaryIndexes {
		desc.GlobalSecondaryIndexes = append(desc.GlobalSecondaryIndexes, types.GlobalSecondaryIndexDescription{
			IndexName:      gsi.IndexName,
			IndexArn:       aws.String(arn + "/index/" + aws.ToString(gsi.IndexName)),
			IndexStatus:    types.IndexStatusActive,
			KeySchema:      gsi.KeySchema,
			Projection:     gsi.Projection,
			ItemCount:      aws.Int64(0),
			IndexSizeBytes: aws.Int64(0),
		})
	}
	return desc, nil
}

func encodeCatalogEntry(e *catalogEntry) ([]byte, error) {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return nil, fmt.Errorf("marshal catalog entry: %w", err)
	}
	return SerializeItem(item)
}

func decodeCatalogEntry(data []byte) (*catalogEntry, error) {
	item, err := DeserializeItem(data)
	if err != nil {
		return nil, err
	}
	var e catalogEntry
	if err := attributevalue.UnmarshalMap(item, &e); err != nil {
		return nil, fmt.Errorf("unmarshal catalog entry: %w", err)
	}
	return &e, nil
}
