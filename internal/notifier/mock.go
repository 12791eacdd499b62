package notifier

import (
	"context"
	"sync"

	"github.com/wyfcoding/etfarb/internal/platform/logger"
)

// MockSender logs and records every send, for tests and for deployments
// without a configured notification channel.
type MockSender struct {
	mu   sync.Mutex
	sent []Delivery
}

// Delivery is one recorded MockSender.Send call.
type Delivery struct {
	Target  string
	Subject string
	Content string
}

// NewMockSender builds an empty MockSender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

func (s *MockSender) Send(ctx context.Context, target, subject, content string) error {
	s.mu.Lock()
	s.sent = append(s.sent, Delivery{Target: target, Subject: subject, Content: content})
	s.mu.Unlock()
	logger.Info(ctx, "mock notification sent", "target", target, "subject", subject)
	return nil
}

// Sent returns every delivery recorded so far.
func (s *MockSender) Sent() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.sent))
	copy(out, s.sent)
	return out
}
