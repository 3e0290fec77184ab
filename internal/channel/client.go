package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Client is the querying side of the bridge: it writes request documents and
// polls for correlated responses. Only one call may be in flight at a time;
// the channel is a single-slot mailbox, not a queue.
type Client struct {
	opts Options
	lock *fileLock
}

// NewClient creates a client for the channel directory in opts.Dir.
func NewClient(opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		opts: opts,
		lock: newFileLock(opts.Dir, opts.LockStaleAfter),
	}
}

// Call issues method with args against the host process and waits for the
// matching response.
//
// Failure modes stay distinguishable: ErrPayloadTooLarge before any channel
// write, ErrLockTimeout / ErrTransportTimeout / ErrMalformedResponse when the
// channel itself is unhealthy, and *RemoteError when the host answered but
// the operation failed.
func (c *Client) Call(ctx context.Context, method string, args map[string]any) (json.RawMessage, error) {
	req := &Request{
		CorrelationID: uuid.NewString(),
		Method:        method,
		Args:          args,
		IssuedAt:      time.Now().UTC(),
	}

	data, err := encodeRequest(req, c.opts.MaxPayloadBytes)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.opts.Dir, 0700); err != nil {
		return nil, fmt.Errorf("creating channel dir: %w", err)
	}
	if err := c.writeRequest(data); err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
	}

	return c.poll(ctx, req.CorrelationID, method)
}

// writeRequest clears any leftover response and atomically replaces the
// request document, all under the lock.
func (c *Client) writeRequest(data []byte) (err error) {
	release, err := c.lock.Acquire(c.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	// Delete first so the poller can never observe an answer to an old call.
	respPath := filepath.Join(c.opts.Dir, responseFile)
	if err := os.Remove(respPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing previous response: %w", err)
	}

	return writeFileAtomic(filepath.Join(c.opts.Dir, requestFile), data)
}

// poll checks the channel at the configured interval until a response with a
// matching correlation token appears or the deadline elapses. Responses
// bearing any other token are stale and skipped.
func (c *Client) poll(ctx context.Context, correlationID, method string) (json.RawMessage, error) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s unanswered after %s", ErrTransportTimeout, method, c.opts.CallTimeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
			resp, found, err := c.readResponse()
			if err != nil {
				return nil, err
			}
			if !found || resp.CorrelationID != correlationID {
				continue
			}
			if resp.Status == StatusError {
				re := &RemoteError{Kind: KindInternal, Message: "host reported an error without details"}
				if resp.Err != nil {
					re.Kind, re.Message = resp.Err.Kind, resp.Err.Message
				}
				return nil, re
			}
			return resp.Result, nil
		}
	}
}

func (c *Client) readResponse() (*Response, bool, error) {
	data, err := os.ReadFile(filepath.Join(c.opts.Dir, responseFile))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading response: %w", err)
	}

	resp, err := decodeResponse(data)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}
