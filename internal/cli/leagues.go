package cli

import (
	"github.com/spf13/cobra"
)

var leaguesCmd = &cobra.Command{
	Use:   "leagues",
	Short: "List the economy leagues the market index tracks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Leagues(cmd.Context())
	},
}
