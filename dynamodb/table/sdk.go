package table

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CreateTableInput converts the definition into the SDK request that creates it.
// Attribute definitions are the key attributes of the table and its GSIs,
// deduplicated in declaration order, since DynamoDB rejects unused or repeated ones.
func (t TableDefinition) CreateTableInput() (*dynamodb.CreateTableInput, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	in := &dynamodb.CreateTableInput{
		TableName:            aws.String(t.Name),
		BillingMode:          t.BillingMode.sdk(),
		KeySchema:            keySchema(t.KeyDefinitions),
		AttributeDefinitions: t.AttributeDefinitions(),
	}
	for _, gsi := range t.GSIs {
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(gsi.Name),
			KeySchema:  keySchema(gsi.KeyDefinitions),
			Projection: gsi.Projection.sdk(),
		})
	}
	return in, nil
}

// AttributeDefinitions returns one definition per distinct key attribute.
func (t TableDefinition) AttributeDefinitions() []types.AttributeDefinition {
	seen := make(map[string]bool)
	var out []types.AttributeDefinition
	for _, kd := range t.keyAttributes() {
		if seen[kd.Name] {
			continue
		}
		seen[kd.Name] = true
		out = append(out, types.AttributeDefinition{
			AttributeName: aws.String(kd.Name),
			AttributeType: types.ScalarAttributeType(kd.Kind),
		})
	}
	return out
}

func keySchema(k PrimaryKeyDefinition) []types.KeySchemaElement {
	out := []types.KeySchemaElement{
		{AttributeName: aws.String(k.PartitionKey.Name), KeyType: types.KeyTypeHash},
	}
	if k.HasSortKey() {
		out = append(out, types.KeySchemaElement{AttributeName: aws.String(k.SortKey.Name), KeyType: types.KeyTypeRange})
	}
	return out
}

// FromCreateTableInput is the inverse of CreateTableInput.
func FromCreateTableInput(in *dynamodb.CreateTableInput) (TableDefinition, error) {
	if in == nil {
		return TableDefinition{}, errors.New("create table input is required")
	}
	kinds := attributeKinds(in.AttributeDefinitions)
	def := TableDefinition{
		Name:        aws.ToString(in.TableName),
		BillingMode: BillingMode(in.BillingMode),
	}
	var err error
	if def.KeyDefinitions, err = keyDefinitionFromSchema(in.KeySchema, kinds); err != nil {
		return TableDefinition{}, fmt.Errorf("table %q: %w", def.Name, err)
	}
	for _, gsi := range in.GlobalSecondaryIndexes {
		keys, err := keyDefinitionFromSchema(gsi.KeySchema, kinds)
		if err != nil {
			return TableDefinition{}, fmt.Errorf("table %q gsi %q: %w", def.Name, aws.ToString(gsi.IndexName), err)
		}
		def.GSIs = append(def.GSIs, GSIDefinition{
			Name:           aws.ToString(gsi.IndexName),
			KeyDefinitions: keys,
			Projection:     projectionFromSDK(gsi.Projection),
		})
	}
	return def, nil
}

// FromDescription rebuilds a definition from a DescribeTable response.
func FromDescription(desc *types.TableDescription) (TableDefinition, error) {
	if desc == nil {
		return TableDefinition{}, errors.New("table description is required")
	}
	kinds := attributeKinds(desc.AttributeDefinitions)
	def := TableDefinition{Name: aws.ToString(desc.TableName)}
	if desc.BillingModeSummary != nil {
		def.BillingMode = BillingMode(desc.BillingModeSummary.BillingMode)
	}
	var err error
	if def.KeyDefinitions, err = keyDefinitionFromSchema(desc.KeySchema, kinds); err != nil {
		return TableDefinition{}, fmt.Errorf("table %q: %w", def.Name, err)
	}
	for _, gsi := range desc.GlobalSecondaryIndexes {
		keys, err := keyDefinitionFromSchema(gsi.KeySchema, kinds)
		if err != nil {
			return TableDefinition{}, fmt.Errorf("table %q gsi %q: %w", def.Name, aws.ToString(gsi.IndexName), err)
		}
		def.GSIs = append(def.GSIs, GSIDefinition{
			Name:           aws.ToString(gsi.IndexName),
			KeyDefinitions: keys,
			Projection:     projectionFromSDK(gsi.Projection),
		})
	}
	return def, nil
}

func attributeKinds(defs []types.AttributeDefinition) map[string]KeyKind {
	out := make(map[string]KeyKind, len(defs))
	for _, d := range defs {
		out[aws.ToString(d.AttributeName)] = KeyKind(d.AttributeType)
	}
	return out
}

func keyDefinitionFromSchema(schema []types.KeySchemaElement, kinds map[string]KeyKind) (PrimaryKeyDefinition, error) {
	var out PrimaryKeyDefinition
	for _, el := range schema {
		name := aws.ToString(el.AttributeName)
		kind, ok := kinds[name]
		if !ok {
			return PrimaryKeyDefinition{}, fmt.Errorf("key attribute %q has no attribute definition", name)
		}
		switch el.KeyType {
		case types.KeyTypeHash:
			out.PartitionKey = KeyDef{Name: name, Kind: kind}
		case types.KeyTypeRange:
			out.SortKey = KeyDef{Name: name, Kind: kind}
		default:
			return PrimaryKeyDefinition{}, fmt.Errorf("key attribute %q has unknown key type %q", name, el.KeyType)
		}
	}
	if out.PartitionKey.Name == "" {
		return PrimaryKeyDefinition{}, errors.New("key schema has no HASH element")
	}
	return out, nil
}
