package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/capbridge/capbridge/internal/channel"
	"github.com/capbridge/capbridge/internal/config"
)

// runCall issues one request over the bridge and prints the result as
// indented JSON.
func runCall(cfg *config.Config, method, argsJSON string) int {
	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			fmt.Fprintf(rootStderr, "capbridge: arguments must be a JSON object: %v\n", err)
			return ExitUsageErr
		}
	}

	client := channel.NewClient(cfg.ChannelOptions())
	raw, err := client.Call(context.Background(), method, args)
	if err != nil {
		return reportCallError(err)
	}

	var pretty json.RawMessage = raw
	if indented, ierr := json.MarshalIndent(json.RawMessage(raw), "", "  "); ierr == nil {
		pretty = indented
	}
	fmt.Fprintf(rootStdout, "%s\n", pretty)
	return ExitOK
}

func reportCallError(err error) int {
	var remote *channel.RemoteError
	if errors.As(err, &remote) {
		fmt.Fprintf(rootStderr, "capbridge: %v\n", remote)
		return ExitToolErr
	}
	switch {
	case errors.Is(err, channel.ErrTransportTimeout), errors.Is(err, channel.ErrLockTimeout):
		fmt.Fprintf(rootStderr, "capbridge: %v (is `capbridge host` running?)\n", err)
		return ExitInternal
	default:
		fmt.Fprintf(rootStderr, "capbridge: %v\n", err)
		return ExitInternal
	}
}
