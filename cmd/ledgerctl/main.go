// Package main is the ledgerbook operator CLI.
package main

import "ledgerbook/cmd/ledgerctl/cmd"

func main() {
	cmd.Execute()
}
