package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Dir:             t.TempDir(),
		PollInterval:    5 * time.Millisecond,
		CallTimeout:     2 * time.Second,
		LockTimeout:     500 * time.Millisecond,
		LockStaleAfter:  time.Minute,
		MaxPayloadBytes: 1 << 20,
	}
}

func testBackend() Backend {
	return BackendFunc(func(_ context.Context, method string, args map[string]any) (any, error) {
		switch method {
		case "ping":
			return "pong", nil
		case "echo":
			return args, nil
		case "fail":
			return nil, &BackendError{Kind: "NoCapture", Message: "no capture loaded"}
		case "boom":
			return nil, fmt.Errorf("replay thread panicked")
		case "explode":
			panic("slice bounds out of range")
		case "big":
			return strings.Repeat("x", 64<<10), nil
		default:
			return nil, &BackendError{Kind: "UnknownMethod", Message: "unknown method: " + method}
		}
	})
}

// startHost ticks the listener from a background goroutine until the test ends.
func startHost(t *testing.T, l *Listener) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = l.Tick(ctx)
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitForFile(t *testing.T, path string) []byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil {
			return data
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("file %s never appeared", path)
	return nil
}

func TestCallPingRoundTrip(t *testing.T) {
	opts := testOptions(t)
	startHost(t, NewListener(opts, testBackend()))

	raw, err := NewClient(opts).Call(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	var result string
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	if result != "pong" {
		t.Fatalf("Call() result = %q, want %q", result, "pong")
	}
}

func TestCallEchoRoundTripsArguments(t *testing.T) {
	opts := testOptions(t)
	startHost(t, NewListener(opts, testBackend()))

	args := map[string]any{"event_id": float64(1234), "stage": "pixel"}
	raw, err := NewClient(opts).Call(context.Background(), "echo", args)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	if result["event_id"] != float64(1234) || result["stage"] != "pixel" {
		t.Fatalf("Call() result = %#v, want echoed args", result)
	}
}

func TestCallSurfacesBackendFailureAsRemoteError(t *testing.T) {
	opts := testOptions(t)
	startHost(t, NewListener(opts, testBackend()))

	_, err := NewClient(opts).Call(context.Background(), "fail", nil)

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("Call() error = %v, want *RemoteError", err)
	}
	if re.Kind != "NoCapture" || re.Message != "no capture loaded" {
		t.Fatalf("RemoteError = %+v, want kind/message passed through verbatim", re)
	}
	if errors.Is(err, ErrTransportTimeout) || errors.Is(err, ErrLockTimeout) {
		t.Fatal("backend failure must not look like a bridge failure")
	}
}

func TestCallWrapsUntypedBackendFailure(t *testing.T) {
	opts := testOptions(t)
	startHost(t, NewListener(opts, testBackend()))

	_, err := NewClient(opts).Call(context.Background(), "boom", nil)

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("Call() error = %v, want *RemoteError", err)
	}
	if re.Kind != KindInternal {
		t.Fatalf("RemoteError.Kind = %q, want %q", re.Kind, KindInternal)
	}
}

func TestTickAnswersWhenBackendPanics(t *testing.T) {
	opts := testOptions(t)
	startHost(t, NewListener(opts, testBackend()))
	client := NewClient(opts)

	_, err := client.Call(context.Background(), "explode", nil)

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("Call() error = %v, want *RemoteError", err)
	}
	if re.Kind != KindInternal || !strings.Contains(re.Message, "panicked") {
		t.Fatalf("RemoteError = %+v, want %s error naming the panic", re, KindInternal)
	}

	// The listener survived; the host keeps answering.
	raw, err := client.Call(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("Call() after panic error = %v", err)
	}
	if string(raw) != `"pong"` {
		t.Fatalf("Call() after panic result = %s, want pong", raw)
	}
}

func TestCallTimesOutWithoutHostAtConfiguredBoundary(t *testing.T) {
	opts := testOptions(t)
	opts.CallTimeout = 150 * time.Millisecond
	opts.PollInterval = 20 * time.Millisecond

	start := time.Now()
	_, err := NewClient(opts).Call(context.Background(), "ping", nil)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTransportTimeout) {
		t.Fatalf("Call() error = %v, want ErrTransportTimeout", err)
	}
	if elapsed < opts.CallTimeout {
		t.Fatalf("Call() returned after %s, want at least %s", elapsed, opts.CallTimeout)
	}
	// Allow a couple of poll intervals of slack past the deadline, no more.
	if elapsed > opts.CallTimeout+5*opts.PollInterval {
		t.Fatalf("Call() returned after %s, want close to %s", elapsed, opts.CallTimeout)
	}

	// The abandoned request stays in place; the next call supersedes it.
	if _, err := os.Stat(filepath.Join(opts.Dir, requestFile)); err != nil {
		t.Fatalf("abandoned request missing, stat error = %v", err)
	}
}

func TestPollerDiscardsResponseWithStaleToken(t *testing.T) {
	opts := testOptions(t)
	client := NewClient(opts)

	type outcome struct {
		raw json.RawMessage
		err error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		raw, err := client.Call(context.Background(), "ping", nil)
		resultCh <- outcome{raw, err}
	}()

	reqData := waitForFile(t, filepath.Join(opts.Dir, requestFile))
	req, err := decodeRequest(reqData)
	if err != nil {
		t.Fatalf("decoding in-flight request: %v", err)
	}

	stale := &Response{
		CorrelationID: "99999999-9999-9999-9999-999999999999",
		Status:        StatusOK,
		Result:        json.RawMessage(`"bogus"`),
		CompletedAt:   time.Now().UTC(),
	}
	staleData, _ := json.Marshal(stale)
	if err := writeFileAtomic(filepath.Join(opts.Dir, responseFile), staleData); err != nil {
		t.Fatalf("writing stale response: %v", err)
	}

	select {
	case out := <-resultCh:
		t.Fatalf("Call() accepted stale response: %s, %v", out.raw, out.err)
	case <-time.After(10 * opts.PollInterval):
	}

	fresh := &Response{
		CorrelationID: req.CorrelationID,
		Status:        StatusOK,
		Result:        json.RawMessage(`"real"`),
		CompletedAt:   time.Now().UTC(),
	}
	freshData, _ := json.Marshal(fresh)
	if err := writeFileAtomic(filepath.Join(opts.Dir, responseFile), freshData); err != nil {
		t.Fatalf("writing fresh response: %v", err)
	}

	out := <-resultCh
	if out.err != nil {
		t.Fatalf("Call() error = %v", out.err)
	}
	if string(out.raw) != `"real"` {
		t.Fatalf("Call() result = %s, want %q", out.raw, `"real"`)
	}
}

func TestCallSurfacesMalformedResponse(t *testing.T) {
	opts := testOptions(t)
	client := NewClient(opts)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Call(context.Background(), "ping", nil)
		errCh <- err
	}()

	waitForFile(t, filepath.Join(opts.Dir, requestFile))
	if err := writeFileAtomic(filepath.Join(opts.Dir, responseFile), []byte("{corrupt")); err != nil {
		t.Fatalf("writing corrupt response: %v", err)
	}

	if err := <-errCh; !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("Call() error = %v, want ErrMalformedResponse", err)
	}
}

func TestTickWithNoRequestIsPureNoOp(t *testing.T) {
	opts := testOptions(t)
	l := NewListener(opts, testBackend())

	for i := 0; i < 2; i++ {
		if err := l.Tick(context.Background()); err != nil {
			t.Fatalf("Tick() #%d error = %v", i+1, err)
		}
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		t.Fatalf("listing channel dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("no-op ticks created artifacts: %v", entries)
	}
}

func TestTickAnswersTruncatedRequestAndConsumesIt(t *testing.T) {
	opts := testOptions(t)
	l := NewListener(opts, testBackend())

	truncated := []byte(`{"correlation_id":"abc-123","method":"get_draw_calls","args":{"marker`)
	if err := os.WriteFile(filepath.Join(opts.Dir, requestFile), truncated, 0600); err != nil {
		t.Fatalf("writing truncated request: %v", err)
	}

	if err := l.Tick(context.Background()); err == nil {
		t.Fatal("Tick() error = nil, want protocol-bug report for malformed request")
	}

	data, err := os.ReadFile(filepath.Join(opts.Dir, responseFile))
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	resp, err := decodeResponse(data)
	if err != nil {
		t.Fatalf("decodeResponse() error = %v", err)
	}
	if resp.Status != StatusError || resp.Err == nil || resp.Err.Kind != KindMalformedRequest {
		t.Fatalf("response = %+v, want %s error", resp, KindMalformedRequest)
	}
	if resp.CorrelationID != "abc-123" {
		t.Fatalf("CorrelationID = %q, want recovered token %q", resp.CorrelationID, "abc-123")
	}

	if _, err := os.Stat(filepath.Join(opts.Dir, requestFile)); !os.IsNotExist(err) {
		t.Fatalf("truncated request not consumed, stat error = %v", err)
	}

	// The request is consumed: the next tick must be a no-op.
	if err := l.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() after consumption error = %v", err)
	}
}

func TestTickUsesSentinelTokenWhenNothingIsRecoverable(t *testing.T) {
	opts := testOptions(t)
	l := NewListener(opts, testBackend())

	if err := os.WriteFile(filepath.Join(opts.Dir, requestFile), []byte("garbage{{"), 0600); err != nil {
		t.Fatalf("writing garbage request: %v", err)
	}

	if err := l.Tick(context.Background()); err == nil {
		t.Fatal("Tick() error = nil, want protocol-bug report")
	}

	data := waitForFile(t, filepath.Join(opts.Dir, responseFile))
	resp, err := decodeResponse(data)
	if err != nil {
		t.Fatalf("decodeResponse() error = %v", err)
	}
	if resp.CorrelationID != SentinelCorrelationID {
		t.Fatalf("CorrelationID = %q, want sentinel %q", resp.CorrelationID, SentinelCorrelationID)
	}
}

func TestCallRejectsOversizedPayloadBeforeAnyWrite(t *testing.T) {
	opts := testOptions(t)
	opts.MaxPayloadBytes = 256
	client := NewClient(opts)

	args := map[string]any{"content_base64": strings.Repeat("A", 1024)}
	_, err := client.Call(context.Background(), "get_texture_data", args)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("Call() error = %v, want ErrPayloadTooLarge", err)
	}

	if _, err := os.Stat(filepath.Join(opts.Dir, requestFile)); !os.IsNotExist(err) {
		t.Fatalf("request document written despite oversized payload, stat error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(opts.Dir, lockFile)); !os.IsNotExist(err) {
		t.Fatalf("lock marker touched despite oversized payload, stat error = %v", err)
	}
}

func TestTickReplacesOversizedResponseWithPayloadTooLargeError(t *testing.T) {
	opts := testOptions(t)
	opts.MaxPayloadBytes = 512
	startHost(t, NewListener(opts, testBackend()))

	_, err := NewClient(opts).Call(context.Background(), "big", nil)

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("Call() error = %v, want *RemoteError", err)
	}
	if re.Kind != KindPayloadTooLarge {
		t.Fatalf("RemoteError.Kind = %q, want %q", re.Kind, KindPayloadTooLarge)
	}
}

func TestSecondCallSupersedesAbandonedRequest(t *testing.T) {
	opts := testOptions(t)
	opts.CallTimeout = 60 * time.Millisecond
	opts.PollInterval = 10 * time.Millisecond
	client := NewClient(opts)

	// First call is abandoned: nobody is ticking.
	if _, err := client.Call(context.Background(), "ping", nil); !errors.Is(err, ErrTransportTimeout) {
		t.Fatalf("Call() error = %v, want ErrTransportTimeout", err)
	}

	// A host shows up; the second call must succeed even though a stale
	// request document was left behind.
	opts2 := opts
	opts2.CallTimeout = 2 * time.Second
	startHost(t, NewListener(opts2, testBackend()))

	raw, err := NewClient(opts2).Call(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if string(raw) != `"pong"` {
		t.Fatalf("Call() result = %s, want pong", raw)
	}
}
