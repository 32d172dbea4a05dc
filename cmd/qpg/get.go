package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/generalpiston/qpg/internal/types"
)

var getSource string

var getCmd = &cobra.Command{
	Use:   "get <fqname-or-#object-id>",
	Short: "Fetch one normalized object by fqname or #object_id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		obj, err := resolveObjectRef(st.DB, args[0], getSource)
		if err != nil {
			var notFound *types.ObjectNotFoundError
			if errors.As(err, &notFound) {
				return fail(2, err)
			}
			return fail(1, err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(obj)
	},
}

func resolveObjectRef(db *sql.DB, ref, source string) (*types.DbObject, error) {
	where := []string{}
	params := []any{}

	if strings.HasPrefix(ref, "#") {
		where = append(where, "o.object_id LIKE ?")
		params = append(params, strings.TrimPrefix(ref, "#")+"%")
	} else {
		where = append(where, "o.fqname = ?")
		params = append(params, ref)
	}
	if source != "" {
		where = append(where, "s.name = ?")
		params = append(params, source)
	}

	query := `SELECT o.object_id, o.source_id, o.schema_name, o.object_name, o.object_type,
		o.fqname, o.definition, o.comment, o.signature, o.owner, o.is_system
		FROM db_objects o JOIN sources s ON s.id = o.source_id
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY o.fqname ASC LIMIT 1`

	row := db.QueryRow(query, params...)

	var obj types.DbObject
	var objType string
	var isSystem int
	if err := row.Scan(&obj.ObjectID, &obj.SourceID, &obj.SchemaName, &obj.ObjectName, &objType,
		&obj.Fqname, &obj.Definition, &obj.Comment, &obj.Signature, &obj.Owner, &isSystem); err != nil {
		if err == sql.ErrNoRows {
			return nil, &types.ObjectNotFoundError{ID: ref}
		}
		return nil, err
	}
	obj.ObjectType = types.ObjectType(objType)
	obj.IsSystem = isSystem != 0
	return &obj, nil
}

func init() {
	getCmd.Flags().StringVar(&getSource, "source", "", "restrict lookup to one source")
	rootCmd.AddCommand(getCmd)
}
