package channel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// lockRetryInterval is the backoff between acquisition attempts while another
// holder has the marker.
const lockRetryInterval = 10 * time.Millisecond

// lockInfo is recorded inside the marker file for staleness diagnosis.
type lockInfo struct {
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// fileLock arbitrates exclusive access to the channel directory through an
// atomic create-or-fail marker file. It is the sole source of mutual
// exclusion in the bridge: every multi-step document write is bracketed by
// Acquire/release.
type fileLock struct {
	path       string
	staleAfter time.Duration
}

func newFileLock(dir string, staleAfter time.Duration) *fileLock {
	return &fileLock{
		path:       filepath.Join(dir, lockFile),
		staleAfter: staleAfter,
	}
}

// Acquire takes the lock, reclaiming a marker left behind by a crashed holder
// once it is older than the staleness threshold. It returns a release
// function that removes the marker only while it still identifies this
// holder, so a stale takeover by another process is never undone.
func (l *fileLock) Acquire(timeout time.Duration) (release func() error, err error) {
	holder := fmt.Sprintf("%d@%s/%s", os.Getpid(), shortHostname(), uuid.NewString())
	deadline := time.Now().Add(timeout)
	reclaimed := false

	for {
		ok, err := l.tryAcquire(holder)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() error { return l.release(holder) }, nil
		}

		// Reclaim a crashed holder's marker at most once per acquisition.
		if !reclaimed && l.isStale() {
			reclaimed = true
			if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reclaiming stale lock %s: %w", l.path, err)
			}
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s held for over %s", ErrLockTimeout, l.path, timeout)
		}
		time.Sleep(lockRetryInterval)
	}
}

// tryAcquire attempts the atomic create-or-fail. Returns false when another
// holder already owns the marker.
func (l *fileLock) tryAcquire(holder string) (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("creating lock marker: %w", err)
	}

	info := lockInfo{Holder: holder, AcquiredAt: time.Now().UTC()}
	data, err := json.Marshal(info)
	if err == nil {
		_, err = f.Write(data)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(l.path)
		return false, fmt.Errorf("writing lock marker: %w", err)
	}
	return true, nil
}

// isStale reports whether the current marker is older than the staleness
// threshold. An unreadable or corrupt marker falls back to its mtime.
func (l *fileLock) isStale() bool {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return false
	}

	var info lockInfo
	if json.Unmarshal(data, &info) == nil && !info.AcquiredAt.IsZero() {
		return time.Since(info.AcquiredAt) > l.staleAfter
	}

	st, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	return time.Since(st.ModTime()) > l.staleAfter
}

func (l *fileLock) release(holder string) error {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		// Already reclaimed by someone who judged us crashed.
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading lock marker: %w", err)
	}

	var info lockInfo
	if err := json.Unmarshal(data, &info); err == nil && info.Holder != holder {
		return fmt.Errorf("lock %s now held by %s, not releasing", l.path, info.Holder)
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock marker: %w", err)
	}
	return nil
}

func shortHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}
