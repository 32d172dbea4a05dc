package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/generalpiston/qpg/internal/sources"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ingest freshness and registered sources",
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

func init() {
	rootCmd.AddCommand(statusCmd)
}
