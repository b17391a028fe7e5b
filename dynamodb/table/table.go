package table

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableDefinition is the write-once shape of a table: its primary key,
// its global secondary indexes and the capacity mode it is billed under.
type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	GSIs           []GSIDefinition
	// Empty means on-demand.
	BillingMode BillingMode
}

// GSIDefinition represents a Global Secondary Index definition.
type GSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	Projection     Projection
}

type BillingMode string

const (
	BillingOnDemand    BillingMode = BillingMode(types.BillingModePayPerRequest)
	BillingProvisioned BillingMode = BillingMode(types.BillingModeProvisioned)
)

func (b BillingMode) sdk() types.BillingMode {
	if b == "" {
		return types.BillingModePayPerRequest
	}
	return types.BillingMode(b)
}

// Validate reports definitions DynamoDB would reject before a request is made.
func (t TableDefinition) Validate() error {
	if t.Name == "" {
		return errors.New("table name is required")
	}
	if err := t.KeyDefinitions.validate(); err != nil {
		return fmt.Errorf("table %q: %w", t.Name, err)
	}
	if t.BillingMode.sdk() != types.BillingModePayPerRequest {
		return fmt.Errorf("table %q: billing mode %q needs provisioned throughput, only on-demand is supported", t.Name, t.BillingMode)
	}
	seen := make(map[string]KeyKind)
	for _, kd := range t.keyAttributes() {
		if prev, ok := seen[kd.Name]; ok && prev != kd.Kind {
			return fmt.Errorf("table %q: attribute %q declared as both %q and %q", t.Name, kd.Name, prev, kd.Kind)
		}
		seen[kd.Name] = kd.Kind
	}
	names := make(map[string]bool, len(t.GSIs))
	for _, gsi := range t.GSIs {
		if gsi.Name == "" {
			return fmt.Errorf("table %q: gsi name is required", t.Name)
		}
		if names[gsi.Name] {
			return fmt.Errorf("table %q: duplicate gsi %q", t.Name, gsi.Name)
		}
		names[gsi.Name] = true
		if err := gsi.KeyDefinitions.validate(); err != nil {
			return fmt.Errorf("table %q gsi %q: %w", t.Name, gsi.Name, err)
		}
		if err := gsi.Projection.validate(); err != nil {
			return fmt.Errorf("table %q gsi %q: %w", t.Name, gsi.Name, err)
		}
	}
	return nil
}

// keyAttributes lists every key attribute of the table and its GSIs,
// in declaration order, including duplicates.
func (t TableDefinition) keyAttributes() []KeyDef {
	var out []KeyDef
	out = append(out, t.KeyDefinitions.keys()...)
	for _, gsi := range t.GSIs {
		out = append(out, gsi.KeyDefinitions.keys()...)
	}
	return out
}
