package cmd

import (
	"fmt"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/spf13/cobra"

	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
)

var checkProof string

// proofCmd represents the proof command.
var proofCmd = &cobra.Command{
	Use:   "proof <lastProof>",
	Short: "Find or check a proof of work locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lastProof, ok := gmath.ParseUint64(args[0])
		if !ok {
			return fmt.Errorf("invalid last proof %q", args[0])
		}

		if checkProof != "" {
			proof, ok := gmath.ParseUint64(checkProof)
			if !ok {
				return fmt.Errorf("invalid proof %q", checkProof)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "valid: %t hash: %s\n", pow.IsValidProof(lastProof, proof), pow.Hash(lastProof, proof))
			return nil
		}

		proof, err := pow.Search(cmd.Context(), lastProof, nil)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "proof: %d hash: %s\n", proof, pow.Hash(lastProof, proof))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(proofCmd)
	proofCmd.Flags().StringVarP(&checkProof, "check", "c", "", "Check this proof instead of searching for one.")
}
