package engine

import (
	"log/slog"
	"sync"
	"time"
)

// FrameScheduler runs a callback once at the next frame boundary, like
// requestAnimationFrame. Handles identify pending requests for cancellation.
type FrameScheduler interface {
	RequestFrame(fn func()) int
	CancelFrame(handle int)
}

// TickerScheduler schedules frames on a fixed interval using timers. It
// drives the loop outside the browser.
type TickerScheduler struct {
	interval time.Duration

	mu     sync.Mutex
	next   int
	timers map[int]*time.Timer
}

// NewTickerScheduler creates a scheduler firing every interval.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	return &TickerScheduler{interval: interval, timers: make(map[int]*time.Timer)}
}

func (t *TickerScheduler) RequestFrame(fn func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	handle := t.next
	t.timers[handle] = time.AfterFunc(t.interval, func() {
		t.mu.Lock()
		_, live := t.timers[handle]
		delete(t.timers, handle)
		t.mu.Unlock()
		if live {
			fn()
		}
	})
	return handle
}

func (t *TickerScheduler) CancelFrame(handle int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[handle]; ok {
		timer.Stop()
		delete(t.timers, handle)
	}
}

// FrameLoop calls a frame function once per scheduled frame until stopped.
// A frame that panics is logged and the loop carries on.
type FrameLoop struct {
	scheduler FrameScheduler
	onFrame   func()

	mu      sync.Mutex
	running bool
	handle  int
	gen     uint64 // bumped by Start and Stop; a tick from an older run ends its chain
	frames  uint64
	failed  uint64
}

// NewFrameLoop creates a stopped loop.
func NewFrameLoop(scheduler FrameScheduler, onFrame func()) *FrameLoop {
	return &FrameLoop{scheduler: scheduler, onFrame: onFrame}
}

// Start begins requesting frames. Starting a running loop does nothing.
func (l *FrameLoop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	l.running = true
	l.gen++
	l.request()
}

// Stop cancels the pending frame. It is safe to call more than once.
func (l *FrameLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}
	l.running = false
	l.gen++
	l.scheduler.CancelFrame(l.handle)
}

// Running reports whether the loop is active.
func (l *FrameLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Stats returns the number of frames run and how many of them panicked.
func (l *FrameLoop) Stats() (frames, failed uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames, l.failed
}

// request schedules the next frame for the current run. l.mu must be held.
func (l *FrameLoop) request() {
	gen := l.gen
	l.handle = l.scheduler.RequestFrame(func() { l.tick(gen) })
}

func (l *FrameLoop) tick(gen uint64) {
	l.mu.Lock()
	if !l.running || l.gen != gen {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	ok := l.runFrame()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames++
	if !ok {
		l.failed++
	}
	if l.running && l.gen == gen {
		l.request()
	}
}

func (l *FrameLoop) runFrame() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("frame panicked", "panic", r)
			ok = false
		}
	}()
	l.onFrame()
	return true
}
