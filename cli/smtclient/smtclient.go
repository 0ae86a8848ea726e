// Executable proof server client. Run "smtclient help" for
// usage instructions.
package main

import (
	"github.com/smtprovider/smt-provider/cli"
	"github.com/smtprovider/smt-provider/cli/smtclient/internal/cmd"
)

func main() {
	cli.Execute(cmd.RootCmd)
}
