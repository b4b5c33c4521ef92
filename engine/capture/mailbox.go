package capture

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-overlay/common"
)

// mailbox holds the most recent frame produced by a background reader.
// A frame that is replaced before being taken counts as dropped.
type mailbox struct {
	mu      sync.Mutex
	latest  *common.Frame
	dropped atomic.Uint64
}

func (m *mailbox) put(f *common.Frame) {
	m.mu.Lock()
	if m.latest != nil {
		m.dropped.Add(1)
	}
	m.latest = f
	m.mu.Unlock()
}

func (m *mailbox) take() (*common.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.latest
	m.latest = nil
	return f, f != nil
}
