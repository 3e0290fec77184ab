package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backend executes a decoded query against loaded capture state. Structured
// failures are reported as *BackendError; anything else is surfaced with kind
// "Internal". Kind and Message pass through to the client verbatim.
type Backend interface {
	Invoke(ctx context.Context, method string, args map[string]any) (any, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, method string, args map[string]any) (any, error)

func (f BackendFunc) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	return f(ctx, method, args)
}

// Listener is the host side of the bridge. It owns no goroutine and no timer:
// the host process drives it by calling Tick from its own periodic cycle, and
// each Tick checks the channel exactly once and returns.
type Listener struct {
	opts    Options
	lock    *fileLock
	backend Backend
}

// NewListener creates a listener serving the channel directory in opts.Dir.
func NewListener(opts Options, backend Backend) *Listener {
	opts = opts.withDefaults()
	return &Listener{
		opts:    opts,
		lock:    newFileLock(opts.Dir, opts.LockStaleAfter),
		backend: backend,
	}
}

// Tick processes at most one pending request. With no request present it is a
// pure no-op: no lock acquisition, no document writes. A returned error means
// the bridge itself failed; requests answered with an error response return
// nil, except malformed request documents, which are answered best-effort and
// still reported so the host can log the protocol bug.
func (l *Listener) Tick(ctx context.Context) error {
	reqPath := filepath.Join(l.opts.Dir, requestFile)
	if _, err := os.Stat(reqPath); os.IsNotExist(err) {
		return nil
	}

	raw, err := l.readRequest(reqPath)
	if err != nil {
		return err
	}
	if raw == nil {
		// Consumed between the stat and the locked read.
		return nil
	}

	req, decodeErr := decodeRequest(raw)
	if decodeErr != nil {
		// The client must not hang on a request it corrupted itself: answer
		// with a recovered token, or the sentinel every poller discards.
		token := recoverCorrelationID(raw)
		if token == "" {
			token = SentinelCorrelationID
		}
		resp := errorResponse(token, KindMalformedRequest, decodeErr.Error())
		if werr := l.respond(resp, raw); werr != nil {
			return werr
		}
		return fmt.Errorf("malformed request answered with %s: %w", KindMalformedRequest, decodeErr)
	}

	// Dispatch outside the lock so slow backend work never blocks the client.
	result, invokeErr := l.invoke(ctx, req.Method, req.Args)

	resp := &Response{
		CorrelationID: req.CorrelationID,
		CompletedAt:   time.Now().UTC(),
	}
	switch {
	case invokeErr != nil:
		var be *BackendError
		resp.Status = StatusError
		if errors.As(invokeErr, &be) {
			resp.Err = &ErrorInfo{Kind: be.Kind, Message: be.Message}
		} else {
			resp.Err = &ErrorInfo{Kind: KindInternal, Message: invokeErr.Error()}
		}
	default:
		encoded, merr := json.Marshal(result)
		if merr != nil {
			resp.Status = StatusError
			resp.Err = &ErrorInfo{Kind: KindInternal, Message: fmt.Sprintf("encoding result: %v", merr)}
		} else {
			resp.Status = StatusOK
			resp.Result = encoded
		}
	}

	return l.respond(resp, raw)
}

// invoke shields the tick loop from a panicking backend: the client still
// gets an error response and the host process stays up.
func (l *Listener) invoke(ctx context.Context, method string, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("backend panicked handling %s: %v", method, r)
		}
	}()
	return l.backend.Invoke(ctx, method, args)
}

// readRequest takes the lock just long enough to snapshot the request bytes.
func (l *Listener) readRequest(path string) (data []byte, err error) {
	release, err := l.lock.Acquire(l.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	data, err = os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading request: %w", err)
	}
	return data, nil
}

// respond atomically writes the response document and marks the request
// consumed in the same critical section. The request is only deleted if it is
// still byte-identical to the one just answered; a fresh request written by a
// client that gave up waiting must survive for the next tick.
func (l *Listener) respond(resp *Response, consumed []byte) (err error) {
	data, encErr := encodeResponse(resp, l.opts.MaxPayloadBytes)
	if errors.Is(encErr, ErrPayloadTooLarge) {
		fallback := errorResponse(resp.CorrelationID, KindPayloadTooLarge, encErr.Error())
		if data, encErr = encodeResponse(fallback, l.opts.MaxPayloadBytes); encErr != nil {
			return encErr
		}
	} else if encErr != nil {
		return encErr
	}

	release, err := l.lock.Acquire(l.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := writeFileAtomic(filepath.Join(l.opts.Dir, responseFile), data); err != nil {
		return err
	}

	reqPath := filepath.Join(l.opts.Dir, requestFile)
	current, rerr := os.ReadFile(reqPath)
	if rerr != nil {
		if os.IsNotExist(rerr) {
			return nil
		}
		return fmt.Errorf("re-reading request for consumption: %w", rerr)
	}
	if !bytes.Equal(current, consumed) {
		return nil
	}
	if err := os.Remove(reqPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("consuming request: %w", err)
	}
	return nil
}

func errorResponse(correlationID, kind, message string) *Response {
	return &Response{
		CorrelationID: correlationID,
		Status:        StatusError,
		Err:           &ErrorInfo{Kind: kind, Message: message},
		CompletedAt:   time.Now().UTC(),
	}
}
