// Package replay implements the capture-side backend of the bridge: it owns
// the currently opened capture and answers the query methods the client
// exposes as tools. One capture is open at a time; opening another replaces
// it.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/capbridge/capbridge/internal/capture"
	"github.com/capbridge/capbridge/internal/channel"
)

// Backend error kinds. Bridge-level kinds (MalformedRequest, PayloadTooLarge,
// Internal) are owned by the channel package.
const (
	KindNoCapture       = "NoCapture"
	KindNotFound        = "NotFound"
	KindInvalidArgument = "InvalidArgument"
	KindUnknownMethod   = "UnknownMethod"
)

// Controller serves capture queries over the bridge. It satisfies
// channel.Backend.
type Controller struct {
	captureDir string

	mu  sync.Mutex
	cap *capture.Capture
	// path of the capture file the index was loaded for
	capturePath string
}

// NewController creates a controller listing and opening captures from
// captureDir.
func NewController(captureDir string) *Controller {
	return &Controller{captureDir: captureDir}
}

// Invoke dispatches one query method. Unknown methods and bad arguments come
// back as structured backend errors rather than bridge failures, so the
// client always gets a response document.
func (c *Controller) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch method {
	case "ping":
		return "pong", nil
	case "get_capture_status":
		return c.captureStatus(), nil
	case "list_captures":
		return c.listCaptures(args)
	case "open_capture":
		return c.openCapture(args)
	case "get_draw_calls":
		return c.drawCalls(args)
	case "get_frame_summary":
		return c.frameSummary()
	case "get_draw_call_details":
		return c.drawCallDetails(args)
	case "get_buffer_contents":
		return c.bufferContents(args)
	case "get_texture_info":
		return c.textureInfo(args)
	case "get_texture_data":
		return c.textureData(args)
	case "get_shader_info":
		return c.shaderInfo(args)
	case "get_pipeline_state":
		return c.pipelineState(args)
	default:
		return nil, &channel.BackendError{
			Kind:    KindUnknownMethod,
			Message: fmt.Sprintf("no such method: %s", method),
		}
	}
}

// loaded returns the open capture or a NoCapture error naming the method the
// caller needs first.
func (c *Controller) loaded() (*capture.Capture, error) {
	if c.cap == nil {
		return nil, &channel.BackendError{
			Kind:    KindNoCapture,
			Message: "no capture is open; call open_capture first",
		}
	}
	return c.cap, nil
}

// decodeArgs round-trips the loosely typed args map into a typed argument
// struct, so number coercion and field naming follow the wire format.
func decodeArgs(args map[string]any, into any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return invalidArgument("encoding arguments: %v", err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return invalidArgument("decoding arguments: %v", err)
	}
	return nil
}

func invalidArgument(format string, args ...any) error {
	return &channel.BackendError{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &channel.BackendError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}
