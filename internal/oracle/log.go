package oracle

import (
	"context"
	"sync"

	id "clubdomains/pkg/domain"
)

// Publisher emits verification requests. Implementations assign Sequence.
type Publisher interface {
	Publish(ctx context.Context, req VerificationRequest) (VerificationRequest, error)
}

// Log is an in-memory, append-only request log. A request's Sequence is its
// 1-based position; oracles poll it with Since.
type Log struct {
	mu     sync.RWMutex
	events []VerificationRequest
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Publish(_ context.Context, req VerificationRequest) (VerificationRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req.Fee = id.Copy(req.Fee)
	req.Sequence = uint64(len(l.events)) + 1
	l.events = append(l.events, req)
	return req, nil
}

// Since returns up to limit requests with Sequence greater than after.
func (l *Log) Since(after uint64, limit int) []VerificationRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if after >= uint64(len(l.events)) {
		return nil
	}
	tail := l.events[after:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]VerificationRequest, len(tail))
	copy(out, tail)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
