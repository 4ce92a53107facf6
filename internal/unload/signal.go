package unload

import (
	"os"
	"os/signal"
	"sync"
)

// SignalSource turns process signals into a teardown
type SignalSource struct {
	ch   chan struct{}
	sigs chan os.Signal
	done chan struct{}
	once sync.Once
	stop sync.Once
}

// NewSignalSource listens for sigs; Stop detaches it. With no sigs the
// source only fires through Fire.
func NewSignalSource(sigs ...os.Signal) *SignalSource {
	s := &SignalSource{
		ch:   make(chan struct{}),
		sigs: make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	if len(sigs) == 0 {
		return s
	}
	signal.Notify(s.sigs, sigs...)
	go func() {
		select {
		case <-s.sigs:
			s.Fire()
		case <-s.done:
		}
	}()
	return s
}

func (s *SignalSource) Teardown() <-chan struct{} {
	return s.ch
}

// Fire triggers teardown without a signal
func (s *SignalSource) Fire() {
	s.once.Do(func() { close(s.ch) })
}

// Stop detaches from the signal package
func (s *SignalSource) Stop() {
	s.stop.Do(func() {
		signal.Stop(s.sigs)
		close(s.done)
	})
}
