package ddbstore

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Catalog keys live under their own prefix so table data can share the
// keyspace later without colliding with table metadata.
//
// Key format: [catalogPrefix][separator][tableName]
const (
	keySeparator  byte = 0x00
	catalogPrefix      = "$catalog"
)

func catalogKey(tableName string) []byte {
	key := make([]byte, 0, len(catalogPrefix)+1+len(tableName))
	key = append(key, catalogPrefix...)
	key = append(key, keySeparator)
	return append(key, tableName...)
}

func catalogKeyPrefix() []byte {
	return append([]byte(catalogPrefix), keySeparator)
}

func tableNameFromKey(key []byte) string {
	return string(bytes.TrimPrefix(key, catalogKeyPrefix()))
}

// SerializeItem serializes a DynamoDB item to bytes for storage.
func SerializeItem(item map[string]types.AttributeValue) ([]byte, error) {
	serializable := make(map[string]serializableAV, len(item))
	for k, v := range item {
		sav, err := toSerializable(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		serializable[k] = sav
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(serializable); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeItem deserializes bytes back to a DynamoDB item.
func DeserializeItem(data []byte) (map[string]types.AttributeValue, error) {
	var serializable map[string]serializableAV
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&serializable); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}

	result := make(map[string]types.AttributeValue, len(serializable))
	for k, v := range serializable {
		av, err := fromSerializable(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		result[k] = av
	}
	return result, nil
}

// serializableAV is a gob-encodable representation of AttributeValue
type serializableAV struct {
	Type  string
	Value any
}

func init() {
	gob.Register(map[string]serializableAV{})
	gob.Register([]serializableAV{})
	gob.Register([]string{})
	gob.Register([][]byte{})
}

func toSerializable(av types.AttributeValue) (serializableAV, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return serializableAV{Type: "S", Value: v.Value}, nil
	case *types.AttributeValueMemberN:
		return serializableAV{Type: "N", Value: v.Value}, nil
	case *types.AttributeValueMemberB:
		return serializableAV{Type: "B", Value: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return serializableAV{Type: "BOOL", Value: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return serializableAV{Type: "NULL", Value: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return serializableAV{Type: "SS", Value: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return serializableAV{Type: "NS", Value: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return serializableAV{Type: "BS", Value: v.Value}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]serializableAV, len(v.Value))
		for k, val := range v.Value {
			sav, err := toSerializable(val)
			if err != nil {
				return serializableAV{}, err
			}
			m[k] = sav
		}
		return serializableAV{Type: "M", Value: m}, nil
	case *types.AttributeValueMemberL:
		l := make([]serializableAV, len(v.Value))
		for i, val := range v.Value {
			sav, err := toSerializable(val)
			if err != nil {
				return serializableAV{}, err
			}
			l[i] = sav
		}
		return serializableAV{Type: "L", Value: l}, nil
	default:
		return serializableAV{}, fmt.Errorf("unsupported attribute value type: %T", av)
	}
}

func fromSerializable(sav serializableAV) (types.AttributeValue, error) {
	switch sav.Type {
	case "S":
		return &types.AttributeValueMemberS{Value: sav.Value.(string)}, nil
	case "N":
		return &types.AttributeValueMemberN{Value: sav.Value.(string)}, nil
	case "B":
		return &types.AttributeValueMemberB{Value: sav.Value.([]byte)}, nil
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: sav.Value.(bool)}, nil
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: sav.Value.(bool)}, nil
	case "SS":
		return &types.AttributeValueMemberSS{Value: sav.Value.([]string)}, nil
	case "NS":
		return &types.AttributeValueMemberNS{Value: sav.Value.([]string)}, nil
	case "BS":
		return &types.AttributeValueMemberBS{Value: sav.Value.([][]byte)}, nil
	case "M":
		m := make(map[string]types.AttributeValue)
		for k, v := range sav.Value.(map[string]serializableAV) {
			av, err := fromSerializable(v)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case "L":
		src := sav.Value.([]serializableAV)
		l := make([]types.AttributeValue, len(src))
		for i, v := range src {
			av, err := fromSerializable(v)
			if err != nil {
				return nil, err
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	default:
		return nil, fmt.Errorf("unsupported serializable type: %s", sav.Type)
	}
}
