package client

import (
	"encoding/json"
	"sync"
)

// reply is what a pending call resolves to.
type reply struct {
	result json.RawMessage
	err    error
}

type pendingCall struct {
	method string
	ch     chan reply
}

// pendingTable maps outstanding request ids to their completion slots. An
// entry leaves the table under mu before its slot is written or closed, so
// each slot is completed exactly once.
type pendingTable struct {
	mu     sync.Mutex
	calls  map[uint64]*pendingCall
	closed bool

	metrics *metrics
}

func newPendingTable(m *metrics) *pendingTable {
	return &pendingTable{
		calls:   make(map[uint64]*pendingCall),
		metrics: m,
	}
}

// register adds a slot for id. It fails once the table has been swept.
func (t *pendingTable) register(id uint64, method string) (*pendingCall, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrConnectionClosed
	}
	call := &pendingCall{method: method, ch: make(chan reply, 1)}
	t.calls[id] = call
	t.metrics.pendingAdd(1)
	return call, nil
}

// take removes and returns the entry for id.
func (t *pendingTable) take(id uint64) (*pendingCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	call, ok := t.calls[id]
	if ok {
		delete(t.calls, id)
		t.metrics.pendingAdd(-1)
	}
	return call, ok
}

// sweep closes the table and fails every outstanding call with err.
func (t *pendingTable) sweep(err error) int {
	t.mu.Lock()
	calls := t.calls
	t.calls = make(map[uint64]*pendingCall)
	t.closed = true
	t.metrics.pendingAdd(-float64(len(calls)))
	t.mu.Unlock()

	for _, call := range calls {
		call.ch <- reply{err: err}
	}
	return len(calls)
}

// abandon closes the table and every outstanding slot without a value. It is
// used when the loop dies in a state where no reply can be trusted.
func (t *pendingTable) abandon() int {
	t.mu.Lock()
	calls := t.calls
	t.calls = make(map[uint64]*pendingCall)
	t.closed = true
	t.metrics.pendingAdd(-float64(len(calls)))
	t.mu.Unlock()

	for _, call := range calls {
		close(call.ch)
	}
	return len(calls)
}

func (t *pendingTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
