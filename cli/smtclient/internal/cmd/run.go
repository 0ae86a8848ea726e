package cmd

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/smtprovider/smt-provider/application/client"
	"github.com/smtprovider/smt-provider/cli"
	"github.com/smtprovider/smt-provider/crypto"
	"github.com/smtprovider/smt-provider/protocol"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"
)

const help = "- add [depth] [key=value ...]:\r\n" +
	"	Store a new tree holding the given leaves and print its index.\r\n" +
	"- source [depth] [name]:\r\n" +
	"	Store a new tree fed by the named event source.\r\n" +
	"- update [index] [key=value ...]:\r\n" +
	"	Write leaves into a tree. A zero value deletes the leaf.\r\n" +
	"- resync [index]:\r\n" +
	"	Rebuild a source tree from the beginning of its source.\r\n" +
	"- root [index]:\r\n" +
	"	Print the root of a tree.\r\n" +
	"- prove [index] [key ...] [with key=value ...]:\r\n" +
	"	Print inclusion proofs, optionally against the tree with extra leaves.\r\n" +
	"- verify [depth] [key] [value] [proof] [root]:\r\n" +
	"	Compute the root a proof leads to and compare it with root, if given.\r\n" +
	"- enable timestamp:\r\n" +
	"	Print timestamp of format <15:04:05.999999999> along with the result.\r\n" +
	"- disable timestamp:\r\n" +
	"	Disable timestamp printing.\r\n" +
	"- help:\r\n" +
	"	Display this message.\r\n" +
	"- exit, q:\r\n" +
	"	Close the REPL and exit the client."

var runCmd = cli.NewRunCommand("proof server client", "Run gives you a REPL, so that you can maintain trees on a proof server and request and verify proofs. Currently, it supports:\n"+help, run)

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("debug", "d", false, "Turn on debugging mode")
}

// A caller sends one request and returns its decoded result.
type caller interface {
	Call(method string, params interface{}) (interface{}, error)
}

var _ caller = (*client.Client)(nil)

func run(cmd *cobra.Command, args []string) error {
	isDebugging, _ := cmd.Flags().GetBool("debug")
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, err := client.New(conf)
	if err != nil {
		return err
	}

	state, err := terminal.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	defer terminal.Restore(int(os.Stdin.Fd()), state)
	term := terminal.NewTerminal(os.Stdin, "smt-client> ")
	for {
		line, err := term.ReadLine()
		if err != nil {
			writeLineInRawMode(term, err.Error(), isDebugging)
			return nil
		}

		args := strings.Fields(line)
		if len(args) < 1 {
			writeLineInRawMode(term, `[!] Type "help" for more information.`, isDebugging)
			continue
		}

		switch args[0] {
		case "exit", "q":
			writeLineInRawMode(term, "[+] See ya.", isDebugging)
			return nil
		case "help":
			writeLineInRawMode(term, help, false) // turn off debugging mode for this command
		case "enable", "disable":
			if len(args) != 2 || args[1] != "timestamp" {
				writeLineInRawMode(term, "[!] Unrecognized command: "+line, isDebugging)
				continue
			}
			isDebugging = args[0] == "enable"
		default:
			writeLineInRawMode(term, execute(c, args), isDebugging)
		}
	}
}

// execute runs one REPL command against the server and returns the
// line to print.
func execute(c caller, args []string) string {
	method, params, err := parseCommand(args)
	if err != nil {
		return "[!] " + err.Error()
	}
	res, err := c.Call(method, params)
	if err != nil {
		var obj *protocol.ErrorObject
		if errors.As(err, &obj) {
			return "[!] Server error: " + obj.Error()
		}
		return "[!] Error while receiving response: " + err.Error()
	}
	return "[+] " + formatResult(res)
}

func parseCommand(args []string) (string, interface{}, error) {
	switch args[0] {
	case "add":
		if len(args) < 2 {
			return "", nil, errors.New("Incorrect number of args to add.")
		}
		depth, err := parseDepth(args[1])
		if err != nil {
			return "", nil, err
		}
		leaves, err := parseLeaves(args[2:])
		if err != nil {
			return "", nil, err
		}
		return protocol.MethodAddTreeManually,
			&protocol.AddTreeManuallyParams{Depth: depth, Leaves: leaves}, nil
	case "source":
		if len(args) != 3 {
			return "", nil, errors.New("Incorrect number of args to source.")
		}
		depth, err := parseDepth(args[1])
		if err != nil {
			return "", nil, err
		}
		return protocol.MethodAddTreeFromSource,
			&protocol.AddTreeFromSourceParams{Depth: depth, Source: args[2]}, nil
	case "update":
		if len(args) < 3 {
			return "", nil, errors.New("Incorrect number of args to update.")
		}
		leaves, err := parseLeaves(args[2:])
		if err != nil {
			return "", nil, err
		}
		return protocol.MethodUpdateTreeManually,
			&protocol.UpdateTreeManuallyParams{Index: args[1], Leaves: leaves}, nil
	case "resync":
		if len(args) != 2 {
			return "", nil, errors.New("Incorrect number of args to resync.")
		}
		return protocol.MethodExtraUpdateTreeFromSource, &protocol.IndexParams{Index: args[1]}, nil
	case "root":
		if len(args) != 2 {
			return "", nil, errors.New("Incorrect number of args to root.")
		}
		return protocol.MethodGetRoot, &protocol.IndexParams{Index: args[1]}, nil
	case "prove":
		return parseProve(args)
	case "verify":
		if len(args) != 5 && len(args) != 6 {
			return "", nil, errors.New("Incorrect number of args to verify.")
		}
		depth, err := parseDepth(args[1])
		if err != nil {
			return "", nil, err
		}
		params := &protocol.VerifyProofParams{
			Depth: depth, Key: args[2], Value: args[3], Proof: args[4],
		}
		if len(args) == 6 {
			params.Root = args[5]
		}
		return protocol.MethodVerifyProof, params, nil
	}
	return "", nil, errors.New("Unrecognized command: " + args[0])
}

// parseProve picks among the four proof methods: one key or many, and
// with or without a condition.
func parseProve(args []string) (string, interface{}, error) {
	if len(args) < 3 {
		return "", nil, errors.New("Incorrect number of args to prove.")
	}
	index, keys := args[1], args[2:]
	var condition protocol.Leaves
	for i, arg := range keys {
		if arg != "with" {
			continue
		}
		var err error
		if condition, err = parseLeaves(keys[i+1:]); err != nil {
			return "", nil, err
		}
		if len(condition) == 0 {
			return "", nil, errors.New("Missing leaves after with.")
		}
		keys = keys[:i]
		break
	}
	if len(keys) == 0 {
		return "", nil, errors.New("Missing keys to prove.")
	}

	switch {
	case condition == nil && len(keys) == 1:
		return protocol.MethodGetProofByKey,
			&protocol.ProofByKeyParams{Index: index, Key: keys[0]}, nil
	case condition == nil:
		return protocol.MethodGetProofByKeys,
			&protocol.ProofByKeysParams{Index: index, Keys: keys}, nil
	case len(keys) == 1:
		return protocol.MethodGetProofByKeyWithCondition,
			&protocol.ProofByKeyWithConditionParams{Index: index, Key: keys[0], Condition: condition}, nil
	default:
		return protocol.MethodGetProofByKeysWithCondition,
			&protocol.ProofByKeysWithConditionParams{Index: index, Keys: keys, Condition: condition}, nil
	}
}

func parseDepth(s string) (uint32, error) {
	depth, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.New("Invalid depth: " + s)
	}
	return uint32(depth), nil
}

func parseLeaves(args []string) (protocol.Leaves, error) {
	leaves := make(protocol.Leaves, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" || value == "" {
			return nil, errors.New("Expect key=value, got " + arg)
		}
		leaves[key] = value
	}
	return leaves, nil
}

func formatResult(res interface{}) string {
	switch r := res.(type) {
	case *string:
		return *r
	case *bool:
		if *r {
			return "Done."
		}
		return "Not done."
	case *crypto.Hash:
		return r.Hex()
	case *[]string:
		return strings.Join(*r, "\r\n")
	case *protocol.VerifyProofResult:
		out := "Root: " + r.Root.Hex()
		if r.Valid != nil {
			out += ", valid: " + strconv.FormatBool(*r.Valid)
		}
		return out
	}
	return "Unexpected result."
}
