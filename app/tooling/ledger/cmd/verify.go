package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage/disk"
)

var dbPath string

// verifyCmd represents the verify command.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a chain written to disk by a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		return verifyDisk(cmd.OutOrStdout(), dbPath)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&dbPath, "db", "d", "zblock/blocks", "Path to the block files.")
}

func verifyDisk(w io.Writer, path string) error {
	strg, err := disk.New(path)
	if err != nil {
		return err
	}
	defer strg.Close()

	blocks, err := database.ReadAll(strg)
	if err != nil {
		return err
	}

	return report(w, blocks)
}
