// Package cmd implements the CLI commands for the proof server.
package cmd

import (
	"github.com/smtprovider/smt-provider/cli"
)

// RootCmd represents the base "smtserver" command when called without any subcommands.
var RootCmd = cli.NewRootCommand("smtserver",
	"Sparse Merkle tree proof server",
	`smtserver stores sparse Merkle trees of a fixed depth and answers
root and inclusion proof requests for them over JSON-RPC.`)
