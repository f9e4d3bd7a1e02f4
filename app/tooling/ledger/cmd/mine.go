package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
)

// mineCmd represents the mine command.
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine the pending transactions into a block",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]any
		if err := call(http.MethodPost, "/v1/mine", nil, &resp); err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
}
