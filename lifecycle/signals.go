package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Signal identifies one of the OS signals the Controller reacts to.
type Signal uint8

const (
	// SignalTerm requests a graceful stop. SIGINT is mapped here as well so
	// Ctrl-C in foreground mode behaves like SIGTERM.
	SignalTerm Signal = iota + 1
	// SignalHup requests a stop followed by a full restart of the loop.
	SignalHup
	// SignalUsr1 requests an in-place configuration reload.
	SignalUsr1
	// SignalUsr2 invokes the application's optional hook.
	SignalUsr2
)

func (s Signal) String() string {
	switch s {
	case SignalTerm:
		return "TERM"
	case SignalHup:
		return "HUP"
	case SignalUsr1:
		return "USR1"
	case SignalUsr2:
		return "USR2"
	default:
		return "unknown"
	}
}

// Event is one queued signal occurrence. Rapid-fire duplicates coalesce into
// Count; the Controller treats each event as a boolean per drain regardless.
type Event struct {
	Signal Signal
	Count  int
}

// Router decouples asynchronous signal delivery from the Controller. The OS
// delivery path only appends to the queue and pokes the wake channel; all
// interpretation happens when the Controller drains on its own goroutine.
type Router struct {
	mu    sync.Mutex
	queue []Event

	wake   chan struct{}
	notify chan os.Signal
	stopCh chan struct{}
	doneCh chan struct{}
}

func NewRouter() *Router {
	return &Router{
		wake:   make(chan struct{}, 1),
		notify: make(chan os.Signal, 16),
	}
}

// Start registers the OS signal handlers and begins routing deliveries into
// the queue.
func (r *Router) Start() {
	if r.stopCh != nil {
		return
	}
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	signal.Notify(r.notify,
		syscall.SIGTERM, syscall.SIGINT,
		syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
	go r.loop()
}

// Stop unregisters the handlers and waits for the routing goroutine to exit.
func (r *Router) Stop() {
	if r.stopCh == nil {
		return
	}
	signal.Stop(r.notify)
	close(r.stopCh)
	<-r.doneCh
	r.stopCh = nil
	r.doneCh = nil
}

func (r *Router) loop() {
	defer close(r.doneCh)
	for {
		select {
		case sig := <-r.notify:
			r.Inject(fromOS(sig))
		case <-r.stopCh:
			return
		}
	}
}

func fromOS(sig os.Signal) Signal {
	switch sig {
	case syscall.SIGTERM, syscall.SIGINT:
		return SignalTerm
	case syscall.SIGHUP:
		return SignalHup
	case syscall.SIGUSR1:
		return SignalUsr1
	case syscall.SIGUSR2:
		return SignalUsr2
	default:
		return 0
	}
}

// Inject appends an event to the queue, coalescing with the previous event
// when it carries the same signal, and wakes a sleeping Controller. It is
// safe to call from any goroutine; the config file watcher and tests use it
// to deliver synthetic events.
func (r *Router) Inject(sig Signal) {
	if sig == 0 {
		return
	}
	r.mu.Lock()
	if n := len(r.queue); n > 0 && r.queue[n-1].Signal == sig {
		r.queue[n-1].Count++
	} else {
		r.queue = append(r.queue, Event{Signal: sig, Count: 1})
	}
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Drain removes and returns all queued events in arrival order.
func (r *Router) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.queue
	r.queue = nil
	return events
}

func (r *Router) hasPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue) > 0
}
