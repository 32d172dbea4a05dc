package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/generalpiston/qpg/internal/sources"
	"github.com/generalpiston/qpg/internal/types"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage registered database sources",
}

var (
	sourceAddIncludeSchemas []string
	sourceAddSkipPatterns   []string
)

var sourceAddCmd = &cobra.Command{
	Use:   "add <name> <dsn>",
	Short: "Register a new source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		reg := sources.New(st)
		src, err := reg.Add(cmd.Context(), args[0], args[1], sourceAddIncludeSchemas, sourceAddSkipPatterns)
		if err != nil {
			var exists *types.SourceExistsError
			if errors.As(err, &exists) {
				return fail(2, err)
			}
			return fail(1, err)
		}
		logger.Infof("registered source %q", src.Name)
		return nil
	},
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		reg := sources.New(st)
		list, err := reg.List(cmd.Context())
		if err != nil {
			return fail(1, err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	},
}

var sourceRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a registered source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		reg := sources.New(st)
		if err := reg.Rename(cmd.Context(), args[0], args[1]); err != nil {
			if errors.Is(err, types.ErrSourceNotFound) {
				return fail(2, err)
			}
			return fail(1, err)
		}
		return nil
	},
}

var sourceDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a registered source and its dependent contexts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		reg := sources.New(st)
		if err := reg.Delete(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, types.ErrSourceNotFound) {
				return fail(2, err)
			}
			return fail(1, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted source %q\n", args[0])
		return nil
	},
}

func init() {
	sourceAddCmd.Flags().StringSliceVar(&sourceAddIncludeSchemas, "include-schema", nil, "schema name to include (repeatable)")
	sourceAddCmd.Flags().StringSliceVar(&sourceAddSkipPatterns, "skip-pattern", nil, "glob pattern to skip (repeatable)")

	sourceCmd.AddCommand(sourceAddCmd, sourceListCmd, sourceRenameCmd, sourceDeleteCmd)
	rootCmd.AddCommand(sourceCmd)
}
