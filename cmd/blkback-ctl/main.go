// Command blkback-ctl is the administrative client spec.md §6 describes:
// it sends one fixed-shape add/del message to a running backend over a
// local Unix socket and reports ok/fail. Grounded on
// original_source/thin/thin_cli.c's getopt_long flow, rebuilt on Cobra the
// way fenilsonani-vcs wires its own CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/behrlich/go-blkback/internal/adminproto"
)

const defaultTimeout = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var socketPath string
	var addName, delName string

	root := &cobra.Command{
		Use:           "blkback-ctl",
		Short:         "add or remove a virtual disk from a running backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case addName != "":
				return sendAndPrint(socketPath, adminproto.OpAdd, addName)
			case delName != "":
				return sendAndPrint(socketPath, adminproto.OpDel, delName)
			default:
				return errUsage
			}
		},
	}

	root.Flags().StringVar(&socketPath, "socket", "/var/run/blkback.sock", "admin control socket path")
	root.Flags().StringVar(&addName, "add", "", "attach a virtual disk by name")
	root.Flags().StringVar(&delName, "del", "", "detach a virtual disk by name")

	root.SetArgs(args)

	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case err == errNameTooLong:
		fmt.Fprintln(os.Stderr, "input too long")
		return 2
	default:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
}

var errUsage = fmt.Errorf("usage: blkback-ctl --add <name> | --del <name>")
var errNameTooLong = adminproto.ErrNameTooLong

func sendAndPrint(socketPath string, op adminproto.Opcode, name string) error {
	req, err := adminproto.NewRequest(op, name)
	if err != nil {
		return errNameTooLong
	}

	code, err := adminproto.SendAndReceive(socketPath, req, defaultTimeout)
	if err != nil {
		return err
	}

	if code == adminproto.CodeOkay {
		fmt.Println("message: ok")
	} else {
		fmt.Println("message: fail")
	}
	return nil
}
