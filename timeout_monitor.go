package sdk

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StreamTimeouts guards a run stream against stalls. Zero fields disable the
// corresponding guard; the context passed to the streaming call still bounds
// the whole operation.
type StreamTimeouts struct {
	// TTFT limits the wait for the first event after the stream opens.
	TTFT time.Duration
	// Idle limits the gap between consecutive events.
	Idle time.Duration
	// Total limits the stream's overall duration.
	Total time.Duration
}

// HasAnyTimeout reports whether any guard is configured.
func (t StreamTimeouts) HasAnyTimeout() bool {
	return t.TTFT > 0 || t.Idle > 0 || t.Total > 0
}

// StreamTimeoutKind names which guard fired.
type StreamTimeoutKind string

const (
	StreamTimeoutTTFT  StreamTimeoutKind = "ttft"
	StreamTimeoutIdle  StreamTimeoutKind = "idle"
	StreamTimeoutTotal StreamTimeoutKind = "total"
)

// StreamTimeoutError reports that a stream guard fired before the stream
// completed.
type StreamTimeoutError struct {
	Kind    StreamTimeoutKind
	Timeout time.Duration
}

// Error implements the error interface.
func (e StreamTimeoutError) Error() string {
	return fmt.Sprintf("sdk: stream %s timeout after %s", e.Kind, e.Timeout)
}

// streamTimeoutMonitor watches a run stream's liveness from a side goroutine.
// When a guard fires it records the error and cancels the stream context,
// which closes the body and unblocks the reader.
type streamTimeoutMonitor struct {
	timeouts StreamTimeouts
	activity chan struct{}
	first    chan struct{} // closed once the first event arrives
	done     chan struct{}
	cancel   context.CancelFunc
	ctx      context.Context

	mu  sync.Mutex
	err error

	firstOnce sync.Once
}

// newStreamTimeoutMonitor wires a monitor to the stream's done channel and
// cancel function. Call start to begin watching.
func newStreamTimeoutMonitor(ctx context.Context, timeouts StreamTimeouts, done chan struct{}, cancel context.CancelFunc) *streamTimeoutMonitor {
	return &streamTimeoutMonitor{
		ctx:      ctx,
		timeouts: timeouts,
		activity: make(chan struct{}, 1),
		first:    make(chan struct{}),
		done:     done,
		cancel:   cancel,
	}
}

// start launches the watcher goroutine. No-op when nothing is configured.
func (m *streamTimeoutMonitor) start() {
	if !m.timeouts.HasAnyTimeout() {
		return
	}
	go m.run()
}

func (m *streamTimeoutMonitor) run() {
	var ttftTimer, idleTimer, totalTimer *time.Timer
	var ttftC, idleC, totalC <-chan time.Time
	if m.timeouts.TTFT > 0 {
		ttftTimer = time.NewTimer(m.timeouts.TTFT)
		ttftC = ttftTimer.C
	}
	if m.timeouts.Idle > 0 {
		idleTimer = time.NewTimer(m.timeouts.Idle)
		idleC = idleTimer.C
	}
	if m.timeouts.Total > 0 {
		totalTimer = time.NewTimer(m.timeouts.Total)
		totalC = totalTimer.C
	}
	defer func() {
		for _, t := range []*time.Timer{ttftTimer, idleTimer, totalTimer} {
			if t != nil {
				t.Stop()
			}
		}
	}()

	firstCh := m.first
	for {
		select {
		case <-m.done:
			return
		case <-m.ctx.Done():
			return
		case <-firstCh:
			firstCh = nil
			if ttftTimer != nil {
				ttftTimer.Stop()
				ttftC = nil
			}
		case <-m.activity:
			if idleTimer != nil {
				if !idleTimer.Stop() {
					select {
					case <-idleTimer.C:
					default:
					}
				}
				idleTimer.Reset(m.timeouts.Idle)
				idleC = idleTimer.C
			}
		case <-ttftC:
			m.fail(StreamTimeoutError{Kind: StreamTimeoutTTFT, Timeout: m.timeouts.TTFT})
			return
		case <-idleC:
			m.fail(StreamTimeoutError{Kind: StreamTimeoutIdle, Timeout: m.timeouts.Idle})
			return
		case <-totalC:
			m.fail(StreamTimeoutError{Kind: StreamTimeoutTotal, Timeout: m.timeouts.Total})
			return
		}
	}
}

// signalActivity resets the idle guard. Safe to call from the reader on every
// event.
func (m *streamTimeoutMonitor) signalActivity() {
	select {
	case m.activity <- struct{}{}:
	default:
	}
}

// signalFirst stops the TTFT guard. Safe to call more than once.
func (m *streamTimeoutMonitor) signalFirst() {
	m.firstOnce.Do(func() {
		close(m.first)
	})
}

func (m *streamTimeoutMonitor) fail(err StreamTimeoutError) {
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.mu.Unlock()
	m.cancel()
}

// timeoutErr returns the guard error, or nil when none fired.
func (m *streamTimeoutMonitor) timeoutErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}
