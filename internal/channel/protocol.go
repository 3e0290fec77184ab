// Package channel implements the file-based request/response bridge between
// the assistant-facing client process and the capture host process.
//
// The channel is a single-slot mailbox: a shared directory holding one request
// document, one response document and a lock marker. All multi-step writes are
// bracketed by the lock marker and made atomic via temp-write-then-rename, so
// a reader never observes a half-written document. Responses are correlated to
// requests by token; anything else is stale and ignored.
package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel directory artifacts.
const (
	requestFile  = "request.json"
	responseFile = "response.json"
	lockFile     = "channel.lock"
)

// Response status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Wire error kinds produced by the bridge itself. Backend kinds pass through
// verbatim and are not enumerated here.
const (
	KindMalformedRequest = "MalformedRequest"
	KindPayloadTooLarge  = "PayloadTooLarge"
	KindInternal         = "Internal"
)

// SentinelCorrelationID is used when a request document is unparseable and no
// correlation token can be recovered. Clients only ever issue random V4
// tokens, so a sentinel response can never match an outstanding call and is
// always discarded as stale.
var SentinelCorrelationID = uuid.Nil.String()

// Request is the document written by the client and consumed exactly once by
// the host listener.
type Request struct {
	CorrelationID string         `json:"correlation_id"`
	Method        string         `json:"method"`
	Args          map[string]any `json:"args,omitempty"`
	IssuedAt      time.Time      `json:"issued_at"`
}

// Response is the document written by the host listener after dispatching a
// request to the capture backend.
type Response struct {
	CorrelationID string          `json:"correlation_id"`
	Status        string          `json:"status"`
	Result        json.RawMessage `json:"result,omitempty"`
	Err           *ErrorInfo      `json:"error,omitempty"`
	CompletedAt   time.Time       `json:"completed_at"`
}

// ErrorInfo carries a structured failure across the channel.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Bridge-internal failures. These indicate the channel itself is unhealthy
// and must stay distinguishable from backend failures at the client boundary.
var (
	ErrLockTimeout       = errors.New("lock acquisition timed out")
	ErrTransportTimeout  = errors.New("no matching response before deadline")
	ErrMalformedResponse = errors.New("malformed response document")
	ErrPayloadTooLarge   = errors.New("encoded payload exceeds configured ceiling")
)

// RemoteError is a response with status "error": the channel worked, the
// operation itself failed on the host side.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// BackendError is returned by capture backends to report a structured
// failure. The listener passes Kind and Message through verbatim.
type BackendError struct {
	Kind    string
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Defaults used when an Options field is left zero.
const (
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultCallTimeout     = 30 * time.Second
	DefaultLockTimeout     = 5 * time.Second
	DefaultLockStaleAfter  = 30 * time.Second
	DefaultMaxPayloadBytes = int64(8 << 20)
)

// Options configures both ends of the bridge. Dir is required; everything
// else falls back to the package defaults.
type Options struct {
	Dir             string
	PollInterval    time.Duration
	CallTimeout     time.Duration
	LockTimeout     time.Duration
	LockStaleAfter  time.Duration
	MaxPayloadBytes int64
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.LockTimeout <= 0 {
		o.LockTimeout = DefaultLockTimeout
	}
	if o.LockStaleAfter <= 0 {
		o.LockStaleAfter = DefaultLockStaleAfter
	}
	if o.MaxPayloadBytes <= 0 {
		o.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	return o
}
