// Package contexts implements context URI parsing, storage, and resolution
// against normalized database objects.
package contexts

import (
	"strings"

	"github.com/generalpiston/qpg/internal/types"
)

// ParseContextTarget parses a qpg:// URI into a ContextScope. Precedence of
// scope identification is fragment first, then path split on "/", then "."
// within the final path segment.
func ParseContextTarget(target string) (types.ContextScope, error) {
	const scheme = "qpg://"
	if !strings.HasPrefix(target, scheme) {
		return types.ContextScope{}, &types.InvalidContextTarget{Target: target, Reason: "missing qpg:// scheme"}
	}
	rest := target[len(scheme):]

	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		source := rest[:idx]
		objectID := rest[idx+1:]
		if source == "" || objectID == "" {
			return types.ContextScope{}, &types.InvalidContextTarget{Target: target, Reason: "empty source or object id"}
		}
		return types.ContextScope{Kind: types.ScopeObjectID, Source: source, ObjectID: objectID}, nil
	}

	var source, path string
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		source = rest[:idx]
		path = rest[idx+1:]
	} else {
		source = rest
	}
	if source == "" {
		return types.ContextScope{}, &types.InvalidContextTarget{Target: target, Reason: "empty source authority"}
	}

	if path == "" {
		return types.ContextScope{Kind: types.ScopeSource, Source: source}, nil
	}

	// A second path segment ("/schema/object") also yields an object scope.
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		schema := path[:idx]
		object := path[idx+1:]
		if schema == "" || object == "" {
			return types.ContextScope{}, &types.InvalidContextTarget{Target: target, Reason: "malformed schema/object segment"}
		}
		return types.ContextScope{Kind: types.ScopeObject, Source: source, Schema: schema, Object: object}, nil
	}

	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		schema := path[:idx]
		object := path[idx+1:]
		if schema == "" || object == "" {
			return types.ContextScope{}, &types.InvalidContextTarget{Target: target, Reason: "malformed schema.object segment"}
		}
		return types.ContextScope{Kind: types.ScopeObject, Source: source, Schema: schema, Object: object}, nil
	}

	return types.ContextScope{Kind: types.ScopeSchema, Source: source, Schema: path}, nil
}

// Applies reports whether a parsed scope applies to ref.
func Applies(scope types.ContextScope, ref types.ObjectRef) bool {
	if scope.Source != ref.Source {
		return false
	}
	switch scope.Kind {
	case types.ScopeSource:
		return true
	case types.ScopeSchema:
		return scope.Schema == ref.Schema
	case types.ScopeObject:
		if scope.Schema != ref.Schema {
			return false
		}
		if scope.Object == ref.Name {
			return true
		}
		// A context on "<parent>" also applies to any synthetic child object
		// named "<parent>.<child>".
		return strings.HasPrefix(ref.Name, scope.Object+".")
	case types.ScopeObjectID:
		return scope.ObjectID == ref.ObjectID
	default:
		return false
	}
}
