package replay

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/capbridge/capbridge/internal/capture"
)

// CaptureStatus reports whether a capture is open and which one.
type CaptureStatus struct {
	Loaded      bool   `json:"loaded"`
	API         string `json:"api,omitempty"`
	Filename    string `json:"filename,omitempty"`
	CapturePath string `json:"capture_path,omitempty"`
}

// CaptureEntry is one capture file found in the capture directory.
type CaptureEntry struct {
	Filename     string    `json:"filename"`
	Path         string    `json:"path"`
	SizeBytes    int64     `json:"size_bytes"`
	ModifiedTime time.Time `json:"modified_time"`
}

// CaptureList is the result of list_captures.
type CaptureList struct {
	Directory string         `json:"directory"`
	Count     int            `json:"count"`
	Captures  []CaptureEntry `json:"captures"`
}

// OpenResult is the result of open_capture.
type OpenResult struct {
	Success     bool   `json:"success"`
	CapturePath string `json:"capture_path"`
	Filename    string `json:"filename"`
	API         string `json:"api"`
}

func (c *Controller) captureStatus() *CaptureStatus {
	if c.cap == nil {
		return &CaptureStatus{Loaded: false}
	}
	return &CaptureStatus{
		Loaded:      true,
		API:         c.cap.API,
		Filename:    c.cap.Filename,
		CapturePath: c.capturePath,
	}
}

type listArgs struct {
	Directory string `json:"directory"`
}

func (c *Controller) listCaptures(args map[string]any) (*CaptureList, error) {
	var a listArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	dir := a.Directory
	if dir == "" {
		dir = c.captureDir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &CaptureList{Directory: dir, Captures: []CaptureEntry{}}, nil
		}
		return nil, notFound("reading capture directory %s: %v", dir, err)
	}

	captures := []CaptureEntry{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), capture.CaptureExt) {
			continue
		}
		info, ierr := e.Info()
		if ierr != nil {
			continue
		}
		captures = append(captures, CaptureEntry{
			Filename:     e.Name(),
			Path:         filepath.Join(dir, e.Name()),
			SizeBytes:    info.Size(),
			ModifiedTime: info.ModTime().UTC(),
		})
	}

	// Newest first, so the capture just taken is the obvious pick.
	sort.Slice(captures, func(i, j int) bool {
		return captures[i].ModifiedTime.After(captures[j].ModifiedTime)
	})

	return &CaptureList{
		Directory: dir,
		Count:     len(captures),
		Captures:  captures,
	}, nil
}

type openArgs struct {
	CapturePath string `json:"capture_path"`
}

func (c *Controller) openCapture(args map[string]any) (*OpenResult, error) {
	var a openArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.CapturePath == "" {
		return nil, invalidArgument("capture_path is required")
	}

	// Bare filenames resolve against the capture directory.
	path := a.CapturePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.captureDir, path)
	}

	if !strings.EqualFold(filepath.Ext(path), capture.CaptureExt) {
		return nil, invalidArgument("not a capture file: %s", a.CapturePath)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, notFound("capture file not found: %s", path)
	}

	loaded, err := capture.LoadIndex(path)
	if err != nil {
		return nil, notFound("opening capture %s: %v", filepath.Base(path), err)
	}

	c.cap = loaded
	c.capturePath = path

	return &OpenResult{
		Success:     true,
		CapturePath: path,
		Filename:    loaded.Filename,
		API:         loaded.API,
	}, nil
}
