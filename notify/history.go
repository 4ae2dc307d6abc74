// Package notify is the notification layer: it logs session events and keeps
// the most recent messages for the on-screen terminal.
package notify

import (
	"fmt"
	"sync"
	"time"
)

// History is a fixed-size ring of recent messages.
type History struct {
	mutex    sync.RWMutex
	lines    []string
	maxLines int
	index    int
	full     bool
	now      func() time.Time
}

// NewHistory creates a ring holding up to maxLines messages.
func NewHistory(maxLines int) *History {
	if maxLines < 1 {
		maxLines = 1
	}
	return &History{
		lines:    make([]string, maxLines),
		maxLines: maxLines,
		now:      time.Now,
	}
}

// Add stores a timestamped message, evicting the oldest when full.
func (h *History) Add(line string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.lines[h.index] = fmt.Sprintf("[%s] %s", h.now().Format("15:04:05"), line)
	h.index = (h.index + 1) % h.maxLines
	if h.index == 0 {
		h.full = true
	}
}

// Recent returns the stored messages, oldest first.
func (h *History) Recent() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.full {
		out := make([]string, 0, h.maxLines)
		for i := 0; i < h.maxLines; i++ {
			out = append(out, h.lines[(h.index+i)%h.maxLines])
		}
		return out
	}
	return append([]string(nil), h.lines[:h.index]...)
}

// Last returns the newest message, or "" when empty.
func (h *History) Last() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.full && h.index == 0 {
		return ""
	}
	return h.lines[(h.index-1+h.maxLines)%h.maxLines]
}
