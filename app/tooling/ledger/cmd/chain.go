package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

var verifyChain bool

// chainCmd represents the chain command.
var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Fetch the chain from the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Chain  []database.Block `json:"chain"`
			Length int              `json:"length"`
		}
		if err := call(http.MethodGet, "/v1/chain", nil, &resp); err != nil {
			return err
		}

		if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}

		if !verifyChain {
			return nil
		}

		return report(cmd.OutOrStdout(), resp.Chain)
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.Flags().BoolVar(&verifyChain, "verify", false, "Verify the chain locally after fetching it.")
}

// report validates the chain and writes the outcome. An invalid chain is
// returned as an error so the process exits non zero.
func report(w io.Writer, blocks []database.Block) error {
	if err := database.ValidateChain(blocks, nil); err != nil {
		fmt.Fprintf(w, "chain invalid: %s\n", err)
		return err
	}

	fmt.Fprintf(w, "chain valid: %d blocks\n", len(blocks))
	return nil
}
