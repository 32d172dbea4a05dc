package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/generalpiston/qpg/internal/pgxreader"
	"github.com/generalpiston/qpg/internal/privilege"
	"github.com/generalpiston/qpg/internal/sources"
	"github.com/generalpiston/qpg/internal/types"
)

var (
	privilegeAllowExecute         bool
	privilegeAllowExtraPrivileges bool
)

var privilegeCheckCmd = &cobra.Command{
	Use:   "privilege-check <source>",
	Short: "Verify a source's effective roles carry no privilege beyond SELECT/USAGE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		reg := sources.New(st)
		src, err := reg.Get(ctx, args[0])
		if err != nil {
			if errors.Is(err, types.ErrSourceNotFound) {
				return fail(2, err)
			}
			return fail(1, err)
		}

		reader, err := pgxreader.Connect(ctx, src.DSN)
		if err != nil {
			return fail(4, err)
		}
		defer reader.Close()

		report, err := privilege.Check(ctx, reader, privilegeAllowExecute)
		if err != nil {
			return fail(4, err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fail(1, err)
		}

		if !report.Pass && !privilegeAllowExtraPrivileges {
			return fail(3, errors.New("privilege check failed"))
		}
		return nil
	},
}

func init() {
	privilegeCheckCmd.Flags().BoolVar(&privilegeAllowExecute, "allow-execute", false, "do not flag EXECUTE privilege as a violation")
	privilegeCheckCmd.Flags().BoolVar(&privilegeAllowExtraPrivileges, "allow-extra-privileges", false, "exit 0 even if violations are found")
	rootCmd.AddCommand(privilegeCheckCmd)
}
