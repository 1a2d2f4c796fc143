// Package hashrouter keeps the application's path state in step with a URL fragment.
package hashrouter

import (
	"sync/atomic"

	"github.com/starford/headstone/internal/route"
)

// setReq writes fragment. When conditional is set the write only happens if
// the current fragment still normalizes to from.
type setReq struct {
	fragment    string
	from        string
	conditional bool
}

// Location owns a URL fragment the way a browser window does.
//
// A single internal goroutine owns the fragment and the subscriber set. Writes are
// queued and change signals are delivered to subscribers after the write, never
// synchronously inside SetFragment.
type Location struct {
	setCh         chan setReq
	getCh         chan chan string
	subscribeCh   chan chan string
	unsubscribeCh chan chan string

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewLocation starts a location holding the given initial fragment.
func NewLocation(initial string) *Location {
	l := &Location{
		setCh:         make(chan setReq, 64),
		getCh:         make(chan chan string),
		subscribeCh:   make(chan chan string),
		unsubscribeCh: make(chan chan string),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go l.run(initial)
	return l
}

func (l *Location) run(fragment string) {
	defer close(l.stopped)

	subs := make(map[chan string]struct{})

	for {
		select {
		case <-l.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-l.subscribeCh:
			subs[ch] = struct{}{}

		case ch := <-l.unsubscribeCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case resp := <-l.getCh:
			resp <- fragment

		case req := <-l.setCh:
			if req.fragment == fragment {
				continue
			}
			if req.conditional && route.Normalize(fragment) != req.from {
				continue
			}
			fragment = req.fragment
			for ch := range subs {
				select {
				case ch <- fragment:
				default:
					// Slow subscriber; it re-reads Fragment on its next signal.
				}
			}
		}
	}
}

// Fragment returns the current fragment.
func (l *Location) Fragment() string {
	if l.closed.Load() {
		return ""
	}
	resp := make(chan string, 1)
	select {
	case l.getCh <- resp:
	case <-l.stopped:
		return ""
	}
	select {
	case f := <-resp:
		return f
	case <-l.stopped:
		return ""
	}
}

// SetFragment schedules a fragment change. Subscribers observe it asynchronously.
func (l *Location) SetFragment(fragment string) {
	if l.closed.Load() {
		return
	}
	select {
	case l.setCh <- setReq{fragment: fragment}:
	case <-l.stopped:
	}
}

// Replace schedules a fragment change that only applies if the fragment at
// write time still normalizes to from. A newer navigation queued ahead of it
// wins.
func (l *Location) Replace(from, fragment string) {
	if l.closed.Load() {
		return
	}
	select {
	case l.setCh <- setReq{fragment: fragment, from: from, conditional: true}:
	case <-l.stopped:
	}
}

// Subscribe returns a channel that receives the fragment after every change.
func (l *Location) Subscribe() chan string {
	ch := make(chan string, 16)
	if l.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case l.subscribeCh <- ch:
	case <-l.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (l *Location) Unsubscribe(ch chan string) {
	if l.closed.Load() {
		return
	}
	select {
	case l.unsubscribeCh <- ch:
	case <-l.stopped:
	}
}

// Close stops the location loop and closes all subscriber channels.
func (l *Location) Close() {
	if l.closed.CompareAndSwap(false, true) {
		close(l.stopCh)
	}
	<-l.stopped
}
