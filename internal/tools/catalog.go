// Package tools exposes the capture query methods as MCP tools. Each tool
// forwards its arguments over the bridge and returns the host's result as
// structured content.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/capbridge/capbridge/internal/channel"
)

// Caller issues one request over the bridge and waits for the matching
// response. *channel.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, args map[string]any) (json.RawMessage, error)
}

type toolDef struct {
	tool   mcp.Tool
	method string
	// argument keys forwarded from the tool call to the bridge request
	keys []string
}

func object(props map[string]any, required ...string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func num(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func flag(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}
func strList(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

func catalog() []toolDef {
	return []toolDef{
		{
			tool: mcp.Tool{
				Name:        "ping",
				Description: "Check that the capture host is reachable over the bridge",
				InputSchema: object(map[string]any{}),
			},
			method: "ping",
		},
		{
			tool: mcp.Tool{
				Name:        "get-capture-status",
				Description: "Report whether a capture is open and which one",
				InputSchema: object(map[string]any{}),
			},
			method: "get_capture_status",
		},
		{
			tool: mcp.Tool{
				Name:        "list-captures",
				Description: "List capture files in a directory, newest first",
				InputSchema: object(map[string]any{
					"directory": str("Directory to search; defaults to the host's capture directory"),
				}),
			},
			method: "list_captures",
			keys:   []string{"directory"},
		},
		{
			tool: mcp.Tool{
				Name:        "open-capture",
				Description: "Open a capture file for querying, replacing any open capture",
				InputSchema: object(map[string]any{
					"capture_path": str("Path to the capture file; bare filenames resolve against the capture directory"),
				}, "capture_path"),
			},
			method: "open_capture",
			keys:   []string{"capture_path"},
		},
		{
			tool: mcp.Tool{
				Name:        "get-draw-calls",
				Description: "Return the frame's action tree, optionally filtered by marker, event range or flags",
				InputSchema: object(map[string]any{
					"include_children": flag("Keep the marker hierarchy (default true)"),
					"marker_filter":    str("Only actions under push markers whose name contains this substring"),
					"exclude_markers":  strList("Drop markers (and their subtrees) whose name contains any of these"),
					"event_id_min":     num("Lowest event id to include"),
					"event_id_max":     num("Highest event id to include"),
					"only_actions":     flag("Drop marker nodes, splicing their children in place"),
					"flags_filter":     strList("Keep only actions carrying at least one of these flag names"),
				}),
			},
			method: "get_draw_calls",
			keys: []string{
				"include_children", "marker_filter", "exclude_markers",
				"event_id_min", "event_id_max", "only_actions", "flags_filter",
			},
		},
		{
			tool: mcp.Tool{
				Name:        "get-frame-summary",
				Description: "Summarize the frame: action statistics, top-level markers, resource counts",
				InputSchema: object(map[string]any{}),
			},
			method: "get_frame_summary",
		},
		{
			tool: mcp.Tool{
				Name:        "get-draw-call-details",
				Description: "Detail one action: indices, instances, offsets, flags, outputs",
				InputSchema: object(map[string]any{
					"event_id": num("Event id of the action"),
				}, "event_id"),
			},
			method: "get_draw_call_details",
			keys:   []string{"event_id"},
		},
		{
			tool: mcp.Tool{
				Name:        "get-buffer-contents",
				Description: "Read a window of a buffer's contents as base64",
				InputSchema: object(map[string]any{
					"resource_id": str("Buffer resource id (ResourceId::123 or 123)"),
					"offset":      num("Byte offset to read from (default 0)"),
					"length":      num("Bytes to read (default: rest of the buffer)"),
				}, "resource_id"),
			},
			method: "get_buffer_contents",
			keys:   []string{"resource_id", "offset", "length"},
		},
		{
			tool: mcp.Tool{
				Name:        "get-texture-info",
				Description: "Describe a texture: dimensions, format, mips, samples, byte size",
				InputSchema: object(map[string]any{
					"resource_id": str("Texture resource id (ResourceId::123 or 123)"),
				}, "resource_id"),
			},
			method: "get_texture_info",
			keys:   []string{"resource_id"},
		},
		{
			tool: mcp.Tool{
				Name:        "get-texture-data",
				Description: "Read raw pixel data for one texture subresource as base64",
				InputSchema: object(map[string]any{
					"resource_id": str("Texture resource id (ResourceId::123 or 123)"),
					"mip":         num("Mip level (default 0)"),
					"slice":       num("Array slice (default 0)"),
					"sample":      num("MSAA sample (default 0)"),
					"depth_slice": num("Depth slice of a 3D texture; omit for the whole subresource"),
				}, "resource_id"),
			},
			method: "get_texture_data",
			keys:   []string{"resource_id", "mip", "slice", "sample", "depth_slice"},
		},
		{
			tool: mcp.Tool{
				Name:        "get-shader-info",
				Description: "Reflect the shader bound to one stage at an event: entry point, disassembly, bindings",
				InputSchema: object(map[string]any{
					"event_id": num("Event id to inspect"),
					"stage":    str("Shader stage: vertex, hull, domain, geometry, pixel or compute"),
				}, "event_id", "stage"),
			},
			method: "get_shader_info",
			keys:   []string{"event_id", "stage"},
		},
		{
			tool: mcp.Tool{
				Name:        "get-pipeline-state",
				Description: "Report the full bound pipeline state at an event",
				InputSchema: object(map[string]any{
					"event_id": num("Event id to inspect"),
				}, "event_id"),
			},
			method: "get_pipeline_state",
			keys:   []string{"event_id"},
		},
	}
}

// Register adds the full tool catalog to the MCP server, forwarding every
// call through the given bridge caller.
func Register(s *server.MCPServer, caller Caller) {
	for _, d := range catalog() {
		s.AddTool(d.tool, handler(caller, d))
	}
}

func handler(caller Caller, d toolDef) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := pickArgs(request, d.keys)
		raw, err := caller.Call(ctx, d.method, args)
		if err != nil {
			return toolError(err), nil
		}

		var result any
		if len(raw) > 0 {
			if uerr := json.Unmarshal(raw, &result); uerr != nil {
				return toolError(fmt.Errorf("decoding result: %w", uerr)), nil
			}
		}
		return mcp.NewToolResultStructuredOnly(result), nil
	}
}

// pickArgs forwards only the declared argument keys, so schema-unknown noise
// never crosses the bridge.
func pickArgs(request mcp.CallToolRequest, keys []string) map[string]any {
	src := request.GetArguments()
	args := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := src[k]; ok {
			args[k] = v
		}
	}
	return args
}

// toolError maps bridge and host failures to tool error results. Errors are
// reported inside the result so the assistant sees them; only transport-level
// surprises keep their raw text.
func toolError(err error) *mcp.CallToolResult {
	var remote *channel.RemoteError
	if errors.As(err, &remote) {
		return mcp.NewToolResultError(remote.Error())
	}
	switch {
	case errors.Is(err, channel.ErrTransportTimeout),
		errors.Is(err, channel.ErrLockTimeout),
		errors.Is(err, channel.ErrMalformedResponse):
		return mcp.NewToolResultError(fmt.Sprintf(
			"bridge unavailable: %v (check that the capture host is running and ticking)", err))
	case errors.Is(err, channel.ErrPayloadTooLarge):
		return mcp.NewToolResultError(fmt.Sprintf("request too large: %v", err))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
