// Package ingest implements update_source_index: the transactional
// normalization pipeline that turns an introspection bundle plus context
// records into db_objects, lexical docs, and vectors.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/generalpiston/qpg/internal/contexts"
	"github.com/generalpiston/qpg/internal/lexical"
	"github.com/generalpiston/qpg/internal/pgreader"
	"github.com/generalpiston/qpg/internal/types"
	"github.com/generalpiston/qpg/internal/vector"
)

// Embedder is the narrow capability ingest needs to produce a vector per
// object; vector.ModelEmbedder satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options configures a single update_source_index run.
type Options struct {
	SourceID     int64
	SourceName   string
	Bundle       *pgreader.Bundle
	Contexts     []*types.ContextRecord
	Embedder     Embedder
	NativeVector bool
}

// object is the working representation of one root or synthetic db object
// while the pipeline accumulates its children and defs lines.
type object struct {
	obj     types.DbObject
	defs    []string
	comment string
}

// Run executes the eight-step update_source_index pipeline inside one
// transaction. Step order: delete existing rows for the source, insert root
// objects, insert typed children plus their synthetic objects, insert
// dependency edges, rebuild effective contexts and lexical docs, embed and
// upsert vectors, rebuild FTS, mark the source indexed (caller's
// responsibility once Run returns successfully).
func Run(ctx context.Context, db *sql.DB, opts Options) (types.IngestStats, error) {
	var stats types.IngestStats

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM db_objects WHERE source_id = ?`, opts.SourceID); err != nil {
		return stats, fmt.Errorf("clear existing objects: %w", err)
	}

	objects := make(map[string]*object)
	var order []string

	addRoot := func(objType types.ObjectType, schema, name, definition, comment, signature, owner string) *object {
		fqname := Fqname(schema, name)
		id := ObjectID(opts.SourceName, string(objType), fqname)
		o := &object{obj: types.DbObject{
			ObjectID:   id,
			SourceID:   opts.SourceID,
			SchemaName: schema,
			ObjectName: name,
			ObjectType: objType,
			Fqname:     fqname,
			Definition: trimDefinition(definition),
			Comment:    comment,
			Signature:  signature,
			Owner:      owner,
		}}
		o.defs = append(o.defs, o.obj.Definition)
		objects[id] = o
		order = append(order, id)
		return o
	}

	for _, r := range opts.Bundle.Relations {
		addRoot(types.ObjectType(relationKind(r.Kind)), r.Schema, r.Name, r.Definition, r.Comment, "", r.Owner)
	}
	for _, f := range opts.Bundle.Functions {
		addRoot(types.ObjectFunction, f.Schema, f.Name, f.Definition, f.Comment, f.Signature, f.Owner)
	}
	for _, e := range opts.Bundle.Extensions {
		addRoot(types.ObjectExtension, "", e.Name, "", e.Comment, "", "")
	}
	for _, sch := range opts.Bundle.Schemas {
		addRoot(types.ObjectSchema, "", sch.Name, "", "", "", sch.Owner)
	}

	insertObject := func(o *object) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO db_objects (object_id, source_id, schema_name, object_name, object_type, fqname, definition, comment, signature, owner, is_system)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.obj.ObjectID, o.obj.SourceID, o.obj.SchemaName, o.obj.ObjectName, string(o.obj.ObjectType), o.obj.Fqname,
			o.obj.Definition, o.obj.Comment, o.obj.Signature, o.obj.Owner, o.obj.IsSystem); err != nil {
			return fmt.Errorf("insert object %s: %w", o.obj.Fqname, err)
		}
		stats.Objects++
		return nil
	}

	// Root objects go in first so the typed child rows below can reference them.
	for _, id := range order {
		if err := insertObject(objects[id]); err != nil {
			return stats, err
		}
	}
	rootCount := len(order)

	rootID := func(schema, name string) (string, bool) {
		for _, objType := range []types.ObjectType{types.ObjectTable, types.ObjectView} {
			id := ObjectID(opts.SourceName, string(objType), Fqname(schema, name))
			if _, ok := objects[id]; ok {
				return id, true
			}
		}
		return "", false
	}

	var children []*object

	for _, c := range opts.Bundle.Columns {
		parentID, ok := rootID(c.Schema, c.Relation)
		if !ok {
			continue
		}
		parent := objects[parentID]
		line := fmt.Sprintf("column %s %s", c.Name, c.DataType)
		if c.Default != "" {
			line += fmt.Sprintf(" default=%s", c.Default)
		}
		parent.defs = append(parent.defs, line)

		childName := parent.obj.ObjectName + "." + c.Name
		childID := ObjectID(opts.SourceName, string(types.ObjectColumn), Fqname(c.Schema, childName))
		child := &object{obj: types.DbObject{
			ObjectID:   childID,
			SourceID:   opts.SourceID,
			SchemaName: c.Schema,
			ObjectName: childName,
			ObjectType: types.ObjectColumn,
			Fqname:     Fqname(c.Schema, childName),
			Definition: line,
			Comment:    c.Comment,
		}}
		child.defs = append(child.defs, line)
		objects[childID] = child
		order = append(order, childID)
		children = append(children, child)
		stats.Columns++

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO columns (object_id, name, data_type, nullable, ordinal, default_value, comment)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			parentID, c.Name, c.DataType, c.Nullable, c.Ordinal, c.Default, c.Comment); err != nil {
			return stats, fmt.Errorf("insert column: %w", err)
		}
	}

	for _, cst := range opts.Bundle.Constraints {
		parentID, ok := rootID(cst.Schema, cst.Relation)
		if !ok {
			continue
		}
		parent := objects[parentID]
		line := fmt.Sprintf("constraint %s %s", cst.Name, cst.Definition)
		parent.defs = append(parent.defs, line)

		childName := parent.obj.ObjectName + "." + cst.Name
		childID := ObjectID(opts.SourceName, string(types.ObjectConstraint), Fqname(cst.Schema, childName))
		child := &object{obj: types.DbObject{
			ObjectID:   childID,
			SourceID:   opts.SourceID,
			SchemaName: cst.Schema,
			ObjectName: childName,
			ObjectType: types.ObjectConstraint,
			Fqname:     Fqname(cst.Schema, childName),
			Definition: cst.Definition,
		}}
		child.defs = append(child.defs, line)
		objects[childID] = child
		order = append(order, childID)
		children = append(children, child)
		stats.Constraints++

		columnsJSON := strings.Join(cst.Columns, ",")
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO constraints (object_id, name, kind, columns, definition) VALUES (?, ?, ?, ?, ?)`,
			parentID, cst.Name, cst.Kind, jsonArray(columnsJSON), cst.Definition); err != nil {
			return stats, fmt.Errorf("insert constraint: %w", err)
		}
	}

	for _, idx := range opts.Bundle.Indexes {
		parentID, ok := rootID(idx.Schema, idx.Relation)
		if !ok {
			continue
		}
		parent := objects[parentID]
		line := fmt.Sprintf("index %s %s", idx.Name, idx.Definition)
		parent.defs = append(parent.defs, line)

		childName := parent.obj.ObjectName + "." + idx.Name
		childID := ObjectID(opts.SourceName, string(types.ObjectIndex), Fqname(idx.Schema, childName))
		child := &object{obj: types.DbObject{
			ObjectID:   childID,
			SourceID:   opts.SourceID,
			SchemaName: idx.Schema,
			ObjectName: childName,
			ObjectType: types.ObjectIndex,
			Fqname:     Fqname(idx.Schema, childName),
			Definition: idx.Definition,
		}}
		child.defs = append(child.defs, line)
		objects[childID] = child
		order = append(order, childID)
		children = append(children, child)
		stats.Indexes++

		columnsJSON := strings.Join(idx.Columns, ",")
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO indexes (object_id, name, is_unique, is_primary, definition, columns) VALUES (?, ?, ?, ?, ?, ?)`,
			parentID, idx.Name, idx.Unique, idx.Primary, idx.Definition, jsonArray(columnsJSON)); err != nil {
			return stats, fmt.Errorf("insert index: %w", err)
		}
	}

	for _, id := range order[rootCount:] {
		if err := insertObject(objects[id]); err != nil {
			return stats, err
		}
	}

	for _, d := range opts.Bundle.Dependencies {
		fromID, fromOK := rootID(d.Schema, d.Name)
		toID, toOK := rootID(d.DependsOnSchema, d.DependsOnName)
		if !fromOK || !toOK {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO dependencies (object_id, depends_on_object_id, dependency_type) VALUES (?, ?, ?)`,
			fromID, toID, d.DependencyType); err != nil {
			return stats, fmt.Errorf("insert dependency: %w", err)
		}
		stats.Dependencies++
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM object_context_effective WHERE object_id IN (SELECT object_id FROM db_objects WHERE source_id = ?)`, opts.SourceID); err != nil {
		return stats, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lexical_docs WHERE source_id = ?`, opts.SourceID); err != nil {
		return stats, err
	}

	for _, id := range order {
		o := objects[id]
		ref := types.ObjectRef{Source: opts.SourceName, Schema: o.obj.SchemaName, Name: o.obj.ObjectName, ObjectID: o.obj.ObjectID}
		contextText := contexts.ResolveEffectiveContext(opts.Contexts, ref)

		if contextText != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO object_context_effective (object_id, context_text) VALUES (?, ?)`, o.obj.ObjectID, contextText); err != nil {
				return stats, err
			}
		}

		nameCol := o.obj.Fqname
		defsCol := strings.Join(nonEmpty(o.defs), "\n")

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lexical_docs (object_id, source_id, source_name, schema_name, kind, name_col, comment_col, defs_col, context_col)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.obj.ObjectID, opts.SourceID, opts.SourceName, o.obj.SchemaName, string(o.obj.ObjectType),
			nameCol, o.obj.Comment, defsCol, contextText); err != nil {
			return stats, err
		}

		if opts.Embedder != nil {
			embedText := strings.Join([]string{nameCol, o.obj.Comment, defsCol, contextText}, "\n")
			vec, err := opts.Embedder.Embed(ctx, embedText)
			if err != nil {
				return stats, fmt.Errorf("embed %s: %w", o.obj.Fqname, err)
			}
			if err := vector.Upsert(ctx, tx, opts.NativeVector, o.obj.ObjectID, vec, modelLabel); err != nil {
				return stats, fmt.Errorf("upsert vector %s: %w", o.obj.Fqname, err)
			}
			stats.Vectors++
		}
	}

	if err := lexical.RebuildForSource(ctx, tx, opts.SourceID, opts.SourceName); err != nil {
		return stats, err
	}

	if err := tx.Commit(); err != nil {
		return stats, err
	}

	return stats, nil
}

// modelLabel is the fixed embedding-model identifier recorded alongside
// every stored vector.
const modelLabel = "jinaai/jina-embeddings-v2-base-code"

func relationKind(kind string) types.ObjectType {
	if kind == "view" {
		return types.ObjectView
	}
	return types.ObjectTable
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func jsonArray(commaJoined string) string {
	if commaJoined == "" {
		return "[]"
	}
	parts := strings.Split(commaJoined, ",")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
