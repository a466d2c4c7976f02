package main

import (
	"fmt"

	"github.com/hugh/fieldops/pkg/crypto"
	"github.com/spf13/cobra"
)

func newGenKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-key",
		Short: "Print a new ENCRYPTION_KEY for sealing signatures and evidence",
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, recipient, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# public key: %s\nENCRYPTION_KEY=%s\n", recipient, identity)
			return nil
		},
	}
}
