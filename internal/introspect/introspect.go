// Package introspect orchestrates the fixed catalog queries into a typed
// Bundle, isolating failures to the section that produced them, and applies
// include/skip filtering.
package introspect

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/generalpiston/qpg/internal/pgreader"
)

// Run issues every introspection section against reader, skipping functions
// when skipFunctions is set. A section that errors contributes an empty
// result and a "<section>: <message>" warning instead of aborting the run.
func Run(ctx context.Context, reader pgreader.PgReader, skipFunctions bool) *pgreader.Bundle {
	b := &pgreader.Bundle{}

	if rows, err := reader.Schemas(ctx); err != nil {
		b.Warnings = append(b.Warnings, fmt.Sprintf("schemas: %s", err))
	} else {
		b.Schemas = rows
	}

	if rows, err := reader.Relations(ctx); err != nil {
		b.Warnings = append(b.Warnings, fmt.Sprintf("relations: %s", err))
	} else {
		b.Relations = rows
	}

	if rows, err := reader.Extensions(ctx); err != nil {
		b.Warnings = append(b.Warnings, fmt.Sprintf("extensions: %s", err))
	} else {
		b.Extensions = rows
	}

	if !skipFunctions {
		if rows, err := reader.Functions(ctx); err != nil {
			b.Warnings = append(b.Warnings, fmt.Sprintf("functions: %s", err))
		} else {
			b.Functions = rows
		}
	}

	if rows, err := reader.Columns(ctx); err != nil {
		b.Warnings = append(b.Warnings, fmt.Sprintf("columns: %s", err))
	} else {
		b.Columns = rows
	}

	if rows, err := reader.Constraints(ctx); err != nil {
		b.Warnings = append(b.Warnings, fmt.Sprintf("constraints: %s", err))
	} else {
		b.Constraints = rows
	}

	if rows, err := reader.Indexes(ctx); err != nil {
		b.Warnings = append(b.Warnings, fmt.Sprintf("indexes: %s", err))
	} else {
		b.Indexes = rows
	}

	if rows, err := reader.Dependencies(ctx); err != nil {
		b.Warnings = append(b.Warnings, fmt.Sprintf("dependencies: %s", err))
	} else {
		b.Dependencies = keepResolvedDependencies(rows, b.Relations)
	}

	return b
}

func keepResolvedDependencies(deps []pgreader.DependencyRow, relations []pgreader.RelationRow) []pgreader.DependencyRow {
	known := make(map[string]bool, len(relations))
	for _, rel := range relations {
		known[rel.Schema+"."+rel.Name] = true
	}
	var out []pgreader.DependencyRow
	for _, d := range deps {
		if known[d.Schema+"."+d.Name] && known[d.DependsOnSchema+"."+d.DependsOnName] {
			out = append(out, d)
		}
	}
	return out
}

// ApplyFilters keeps relations/functions/extensions whose schema is in
// includeSchemas (when non-empty) and whose fqname/bare name does not match
// any skipPatterns glob, then drops columns/constraints/indexes/dependencies
// whose parent no longer survived.
func ApplyFilters(b *pgreader.Bundle, includeSchemas, skipPatterns []string) *pgreader.Bundle {
	if len(includeSchemas) == 0 && len(skipPatterns) == 0 {
		return b
	}

	include := make(map[string]bool, len(includeSchemas))
	for _, s := range includeSchemas {
		include[s] = true
	}

	keepSchema := func(schema string) bool {
		return len(include) == 0 || include[schema]
	}
	keepName := func(schema, name string) bool {
		if !keepSchema(schema) {
			return false
		}
		fqname := name
		if schema != "" {
			fqname = schema + "." + name
		}
		for _, pat := range skipPatterns {
			if matchGlob(pat, fqname) || matchGlob(pat, name) {
				return false
			}
		}
		return true
	}

	out := &pgreader.Bundle{Warnings: b.Warnings}
	present := map[string]bool{}

	for _, s := range b.Schemas {
		if keepSchema(s.Name) {
			out.Schemas = append(out.Schemas, s)
		}
	}
	for _, r := range b.Relations {
		if keepName(r.Schema, r.Name) {
			out.Relations = append(out.Relations, r)
			present[r.Schema+"."+r.Name] = true
		}
	}
	for _, e := range b.Extensions {
		if keepName("", e.Name) {
			out.Extensions = append(out.Extensions, e)
		}
	}
	for _, f := range b.Functions {
		if keepName(f.Schema, f.Name) {
			out.Functions = append(out.Functions, f)
		}
	}
	for _, c := range b.Columns {
		if present[c.Schema+"."+c.Relation] {
			out.Columns = append(out.Columns, c)
		}
	}
	for _, c := range b.Constraints {
		if present[c.Schema+"."+c.Relation] {
			out.Constraints = append(out.Constraints, c)
		}
	}
	for _, i := range b.Indexes {
		if present[i.Schema+"."+i.Relation] {
			out.Indexes = append(out.Indexes, i)
		}
	}
	for _, d := range b.Dependencies {
		if present[d.Schema+"."+d.Name] && present[d.DependsOnSchema+"."+d.DependsOnName] {
			out.Dependencies = append(out.Dependencies, d)
		}
	}
	return out
}

// matchGlob reports whether name matches the shell glob pattern. path.Match
// only errors on malformed patterns, which are treated as non-matching.
func matchGlob(pattern, name string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
