package status

import (
	"sort"
	"sync"
	"time"
)

// State is a value snapshot of the shared connection state.
type State struct {
	Connected      bool      `json:"connected"`
	LastChecked    time.Time `json:"last_checked"`
	FailedServices []string  `json:"failed_services"`
	RetryCount     int       `json:"retry_count"`
	Retrying       bool      `json:"retrying"`
}

// Tracker owns the single shared connection state. All mutation goes through
// its methods under one mutex; reads are value snapshots. Subscribers receive
// a snapshot after every change through non-blocking sends, so a slow
// subscriber may skip intermediate states but always observes a later one.
type Tracker struct {
	mu          sync.Mutex
	connected   bool
	lastChecked time.Time
	failed      map[string]struct{}
	retryCount  int
	retrying    bool

	nextSub int
	subs    map[int]chan State

	now func() time.Time
}

// NewTracker starts in the connected state with no failed services.
func NewTracker() *Tracker {
	return &Tracker{
		connected:   true,
		lastChecked: time.Now().UTC(),
		failed:      make(map[string]struct{}),
		subs:        make(map[int]chan State),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetStatus records a reachability report. An empty service means the report
// covers the endpoint as a whole: connected with no service clears the failed
// set entirely. retryCount resets to zero on every connected report and is
// otherwise left alone; incrementing is the caller's explicit decision.
func (t *Tracker) SetStatus(connected bool, service string) {
	t.mu.Lock()
	t.connected = connected
	t.lastChecked = t.now()
	switch {
	case !connected && service != "":
		t.failed[service] = struct{}{}
	case connected && service != "":
		delete(t.failed, service)
	case connected:
		t.failed = make(map[string]struct{})
	}
	if connected {
		t.retryCount = 0
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.publish(snap)
}

// SetRetrying flags whether a check is currently in flight.
func (t *Tracker) SetRetrying(flag bool) {
	t.mu.Lock()
	t.retrying = flag
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.publish(snap)
}

// IncrementRetryCount bumps the consecutive-failure counter.
func (t *Tracker) IncrementRetryCount() {
	t.mu.Lock()
	t.retryCount++
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.publish(snap)
}

// Reset restores the initial state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.connected = true
	t.lastChecked = t.now()
	t.failed = make(map[string]struct{})
	t.retryCount = 0
	t.retrying = false
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.publish(snap)
}

// Snapshot returns the current state by value.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Subscribe registers for state-change snapshots. The returned func removes
// the subscription; the channel is closed on removal.
func (t *Tracker) Subscribe() (<-chan State, func()) {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	ch := make(chan State, 1)
	t.subs[id] = ch
	t.mu.Unlock()

	return ch, func() {
		t.mu.Lock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
		t.mu.Unlock()
	}
}

func (t *Tracker) snapshotLocked() State {
	services := make([]string, 0, len(t.failed))
	for s := range t.failed {
		services = append(services, s)
	}
	sort.Strings(services)
	return State{
		Connected:      t.connected,
		LastChecked:    t.lastChecked,
		FailedServices: services,
		RetryCount:     t.retryCount,
		Retrying:       t.retrying,
	}
}

func (t *Tracker) publish(snap State) {
	t.mu.Lock()
	for _, ch := range t.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so the fresh one can replace it.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	t.mu.Unlock()
}
