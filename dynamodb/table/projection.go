package table

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Projection decides which attributes a GSI copies from the base table.
// The zero value projects everything.
type Projection struct {
	Kind ProjectionKind
	// Only used with ProjectInclude.
	NonKeyAttributes []string
}

type ProjectionKind string

const (
	ProjectAll      ProjectionKind = "ALL"
	ProjectOnlyKeys ProjectionKind = "KEYS_ONLY"
	ProjectInclude  ProjectionKind = "INCLUDE"
)

func (p Projection) kind() ProjectionKind {
	if p.Kind == "" {
		return ProjectAll
	}
	return p.Kind
}

func (p Projection) validate() error {
	switch p.kind() {
	case ProjectAll, ProjectOnlyKeys:
		if len(p.NonKeyAttributes) > 0 {
			return fmt.Errorf("projection %s does not take non-key attributes", p.kind())
		}
		return nil
	case ProjectInclude:
		if len(p.NonKeyAttributes) == 0 {
			return errors.New("projection INCLUDE needs at least one non-key attribute")
		}
		return nil
	default:
		return fmt.Errorf("unknown projection kind %q", p.Kind)
	}
}

func (p Projection) sdk() *types.Projection {
	out := &types.Projection{ProjectionType: types.ProjectionType(p.kind())}
	if p.kind() == ProjectInclude {
		out.NonKeyAttributes = append([]string(nil), p.NonKeyAttributes...)
	}
	return out
}

func projectionFromSDK(p *types.Projection) Projection {
	if p == nil {
		return Projection{}
	}
	out := Projection{Kind: ProjectionKind(p.ProjectionType)}
	if out.Kind == ProjectInclude {
		out.NonKeyAttributes = append([]string(nil), p.NonKeyAttributes...)
	}
	return out
}
