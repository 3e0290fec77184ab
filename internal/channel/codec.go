package channel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var correlationIDRe = regexp.MustCompile(`"correlation_id"\s*:\s*"([^"]*)"`)

// encodeRequest marshals req and enforces the payload ceiling before anything
// touches the channel.
func encodeRequest(req *Request, maxBytes int64) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: request is %d bytes, ceiling is %d", ErrPayloadTooLarge, len(data), maxBytes)
	}
	return data, nil
}

func encodeResponse(resp *Response, maxBytes int64) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: response is %d bytes, ceiling is %d", ErrPayloadTooLarge, len(data), maxBytes)
	}
	return data, nil
}

func decodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	if req.CorrelationID == "" || req.Method == "" {
		return nil, fmt.Errorf("decoding request: missing correlation_id or method")
	}
	return &req, nil
}

func decodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.CorrelationID == "" || resp.Status == "" {
		return nil, fmt.Errorf("%w: missing correlation_id or status", ErrMalformedResponse)
	}
	return &resp, nil
}

// recoverCorrelationID salvages the token from an unparseable request so the
// error response can still be correlated. Returns "" when nothing is
// recoverable.
func recoverCorrelationID(data []byte) string {
	m := correlationIDRe.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it into place, so a concurrent reader never observes a half-written
// document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp document: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting temp document permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp document: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	cleanup = false
	return nil
}
