package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/generalpiston/qpg/internal/contexts"
	"github.com/generalpiston/qpg/internal/sources"
	"github.com/generalpiston/qpg/internal/types"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage user-authored context annotations",
}

var contextAddCmd = &cobra.Command{
	Use:   "add <target-uri> <body>",
	Short: "Add a context annotation at a qpg:// target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		cs := contexts.New(st, sources.New(st))
		rec, err := cs.Add(cmd.Context(), args[0], args[1])
		if err != nil {
			var invalid *types.InvalidContextTarget
			if errors.As(err, &invalid) || errors.Is(err, types.ErrContextSourceNotFound) {
				return fail(2, err)
			}
			return fail(1, err)
		}
		logger.Infof("added context #%d for %s", rec.ID, rec.TargetURI)
		return nil
	},
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all context annotations",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		cs := contexts.New(st, sources.New(st))
		records, err := cs.List(cmd.Context())
		if err != nil {
			return fail(1, err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

var contextRemoveCmd = &cobra.Command{
	Use:   "rm <id-or-target-uri>",
	Short: "Remove a context annotation by id or exact target URI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		cs := contexts.New(st, sources.New(st))
		if err := cs.Remove(cmd.Context(), args[0]); err != nil {
			return fail(1, err)
		}
		return nil
	},
}

func init() {
	contextCmd.AddCommand(contextAddCmd, contextListCmd, contextRemoveCmd)
	rootCmd.AddCommand(contextCmd)
}
