// This program is a client for the ledger node and an offline verifier for
// a chain written to disk.
package main

import "github.com/ardanlabs/powledger/app/tooling/ledger/cmd"

func main() {
	cmd.Execute()
}
