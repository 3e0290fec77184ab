package cli

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/capbridge/capbridge/internal/channel"
	"github.com/capbridge/capbridge/internal/config"
	"github.com/capbridge/capbridge/internal/tools"
)

var serveStdio = server.ServeStdio

// runServe exposes the capture tool catalog over MCP stdio. Every tool call
// is forwarded to the capture host through the bridge.
func runServe(cfg *config.Config) int {
	s := server.NewMCPServer("capbridge", buildVersion)
	tools.Register(s, channel.NewClient(cfg.ChannelOptions()))

	if err := serveStdio(s); err != nil {
		fmt.Fprintf(rootStderr, "capbridge: %v\n", err)
		return ExitInternal
	}
	return ExitOK
}
