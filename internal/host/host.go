// Package host runs the capture-side process: it guards the channel directory
// against a second host, drives the bridge listener on a fixed tick and serves
// queries from the replay controller.
package host

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/capbridge/capbridge/internal/channel"
	"github.com/capbridge/capbridge/internal/config"
	"github.com/capbridge/capbridge/internal/paths"
	"github.com/capbridge/capbridge/internal/replay"
)

// hostLockName guards the channel directory: two hosts ticking one channel
// would race to consume requests.
const hostLockName = "host.lock"

// Run serves the channel until SIGINT or SIGTERM.
func Run(cfg *config.Config) error {
	opts := cfg.ChannelOptions()
	if err := paths.EnsureDir(opts.Dir); err != nil {
		return fmt.Errorf("creating channel dir: %w", err)
	}

	release, err := acquireHostLock(filepath.Join(opts.Dir, hostLockName))
	if err != nil {
		return err
	}
	defer release() //nolint:errcheck

	backend := replay.NewController(cfg.CaptureDir)
	listener := channel.NewListener(opts, backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "capbridge host: serving %s\n", opts.Dir)
	serve(ctx, listener, cfg.TickIntervalDuration())
	fmt.Fprintln(os.Stderr, "capbridge host: shutting down")
	return nil
}

// serve ticks the listener until the context is canceled. Tick errors are
// logged and the loop keeps going; a single bad request must not kill the
// host.
func serve(ctx context.Context, l *channel.Listener, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Tick(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "capbridge host: tick: %v\n", err)
			}
		}
	}
}

// acquireHostLock takes a non-blocking exclusive flock on the host lock file.
// Unlike the channel lock marker this is advisory and dies with the process,
// so a crashed host never needs reclamation here.
func acquireHostLock(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening host lock: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("another capture host is already serving this channel (%s)", path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return func() error {
		unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
		closeErr := f.Close()
		if unlockErr != nil {
			return unlockErr
		}
		return closeErr
	}, nil
}
