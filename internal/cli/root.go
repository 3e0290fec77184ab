// Package cli implements the capbridge command line: the MCP stdio server
// (default), the capture host process and a couple of direct bridge commands
// for debugging the channel.
package cli

import (
	"fmt"

	"github.com/capbridge/capbridge/internal/config"
	"github.com/capbridge/capbridge/internal/host"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitToolErr  = 1
	ExitUsageErr = 2
	ExitInternal = 3
)

// Run is the main CLI entry point. Returns an exit code.
func Run(args []string) int {
	if handled, code := handleRootFlags(args); handled {
		return code
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(rootStderr, "capbridge: %v\n", err)
		return ExitInternal
	}
	if verr := config.Validate(cfg); verr != nil {
		fmt.Fprintf(rootStderr, "capbridge: invalid config: %v\n", verr)
		return ExitUsageErr
	}

	// No args: serve MCP over stdio.
	cmd, rest := "serve", args
	if len(args) > 0 {
		cmd, rest = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		if len(rest) != 0 {
			fmt.Fprintln(rootStderr, "usage: capbridge serve")
			return ExitUsageErr
		}
		return runServe(cfg)
	case "host":
		if len(rest) != 0 {
			fmt.Fprintln(rootStderr, "usage: capbridge host")
			return ExitUsageErr
		}
		if err := host.Run(cfg); err != nil {
			fmt.Fprintf(rootStderr, "capbridge: %v\n", err)
			return ExitInternal
		}
		return ExitOK
	case "ping":
		if len(rest) != 0 {
			fmt.Fprintln(rootStderr, "usage: capbridge ping")
			return ExitUsageErr
		}
		return runCall(cfg, "ping", "")
	case "call":
		if len(rest) < 1 || len(rest) > 2 {
			fmt.Fprintln(rootStderr, "usage: capbridge call METHOD [JSON_ARGS]")
			return ExitUsageErr
		}
		argsJSON := ""
		if len(rest) == 2 {
			argsJSON = rest[1]
		}
		return runCall(cfg, rest[0], argsJSON)
	default:
		fmt.Fprintf(rootStderr, "capbridge: unknown command: %s\n", cmd)
		printRootHelp(rootStderr)
		return ExitUsageErr
	}
}
