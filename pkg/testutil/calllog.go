package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// CallLog records collaborator calls in the order they happen. It is safe
// for concurrent use.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// NewCallLog creates an empty CallLog.
func NewCallLog() *CallLog {
	return &CallLog{}
}

// Add appends a formatted call.
func (l *CallLog) Add(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded calls.
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// Has reports whether call was recorded.
func (l *CallLog) Has(call string) bool {
	return l.Index(call) >= 0
}

// Index returns the position of the first occurrence of call, or -1.
func (l *CallLog) Index(call string) int {
	for i, c := range l.Calls() {
		if c == call {
			return i
		}
	}
	return -1
}

// CountPrefix counts the calls starting with prefix.
func (l *CallLog) CountPrefix(prefix string) int {
	n := 0
	for _, c := range l.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
