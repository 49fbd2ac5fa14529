package main

import (
	"github.com/spf13/cobra"
)

func newPositionsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List the positions a user can apply for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			positions, err := root.client().GetPositions(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), positions)
		},
	}
}
