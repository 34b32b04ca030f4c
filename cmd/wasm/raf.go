//go:build js && wasm

package main

import (
	"sync"
	"syscall/js"
)

// rafScheduler schedules frames with the browser's requestAnimationFrame.
type rafScheduler struct {
	mu      sync.Mutex
	pending map[int]js.Func
}

func newRAFScheduler() *rafScheduler {
	return &rafScheduler{pending: make(map[int]js.Func)}
}

func (s *rafScheduler) RequestFrame(fn func()) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var handle int
	var cb js.Func
	cb = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		s.mu.Lock()
		delete(s.pending, handle)
		s.mu.Unlock()
		cb.Release()
		fn()
		return nil
	})
	handle = js.Global().Call("requestAnimationFrame", cb).Int()
	s.pending[handle] = cb
	return handle
}

func (s *rafScheduler) CancelFrame(handle int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.pending[handle]; ok {
		js.Global().Call("cancelAnimationFrame", handle)
		cb.Release()
		delete(s.pending, handle)
	}
}
