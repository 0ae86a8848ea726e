// Package cmd implements the CLI commands for the proof server client.
package cmd

import (
	"github.com/smtprovider/smt-provider/cli"
)

// RootCmd represents the base "smtclient" command when called without any
// subcommands.
var RootCmd = cli.NewRootCommand("smtclient",
	"Client of the sparse Merkle tree proof server",
	`smtclient sends tree maintenance, root and proof requests to a
proof server and verifies the proofs it returns.`)
