package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

var (
	sender    string
	recipient string
	amount    int64
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a transaction to the pending pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		tx, err := database.NewTx(sender, recipient, amount)
		if err != nil {
			return err
		}

		var resp struct {
			Message string `json:"message"`
			Index   uint64 `json:"index"`
		}
		if err := call(http.MethodPost, "/v1/transactions/new", tx, &resp); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sender, "from", "f", "", "Sender of the transaction.")
	sendCmd.Flags().StringVarP(&recipient, "to", "t", "", "Recipient of the transaction.")
	sendCmd.Flags().Int64VarP(&amount, "amount", "v", 0, "Amount to send.")
}
