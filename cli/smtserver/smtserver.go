// Executable proof server. Run "smtserver help" for
// usage instructions.
package main

import (
	"github.com/smtprovider/smt-provider/cli"
	"github.com/smtprovider/smt-provider/cli/smtserver/internal/cmd"
)

func main() {
	cli.Execute(cmd.RootCmd)
}
