package table

import (
	"errors"
	"fmt"
)

type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	SortKey      KeyDef // zero value means the key has no sort component
}

type KeyDef struct {
	Name string
	Kind KeyKind
}

type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

func (k KeyKind) valid() bool {
	switch k {
	case KeyKindS, KeyKindN, KeyKindB:
		return true
	}
	return false
}

func (k PrimaryKeyDefinition) HasSortKey() bool {
	return k.SortKey.Name != ""
}

func (k PrimaryKeyDefinition) keys() []KeyDef {
	if !k.HasSortKey() {
		return []KeyDef{k.PartitionKey}
	}
	return []KeyDef{k.PartitionKey, k.SortKey}
}

func (k PrimaryKeyDefinition) validate() error {
	if k.PartitionKey.Name == "" {
		return errors.New("partition key name is required")
	}
	for _, kd := range k.keys() {
		if !kd.Kind.valid() {
			return fmt.Errorf("key %q has unsupported kind %q", kd.Name, kd.Kind)
		}
	}
	if k.HasSortKey() && k.SortKey.Name == k.PartitionKey.Name {
		return fmt.Errorf("sort key %q repeats the partition key", k.SortKey.Name)
	}
	return nil
}
