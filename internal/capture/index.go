package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CaptureExt is the raw capture file extension.
const CaptureExt = ".rdc"

// IndexExt is the extension of the query index exported next to a capture.
const IndexExt = ".rdix"

// IndexPathFor maps a capture file path to its sidecar index path
// (frame.rdc -> frame.rdix).
func IndexPathFor(capturePath string) string {
	return strings.TrimSuffix(capturePath, CaptureExt) + IndexExt
}

// LoadIndex reads and validates the index document for the given capture
// file. The returned Capture carries the capture filename, not the index's.
func LoadIndex(capturePath string) (*Capture, error) {
	data, err := os.ReadFile(IndexPathFor(capturePath))
	if err != nil {
		return nil, fmt.Errorf("reading capture index: %w", err)
	}

	var c Capture
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing capture index for %s: %w", filepath.Base(capturePath), err)
	}
	if c.API == "" {
		return nil, fmt.Errorf("capture index for %s: missing api", filepath.Base(capturePath))
	}
	if len(c.Actions) == 0 {
		return nil, fmt.Errorf("capture index for %s: no actions", filepath.Base(capturePath))
	}

	c.Filename = filepath.Base(capturePath)
	return &c, nil
}
