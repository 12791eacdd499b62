// Package notifier implements the sender boundary (spec §1 "Out of scope:
// notification delivery") that the original teacher's notification module
// implies should fire automatically once a TradingSignal is emitted: every
// accepted signal gets announced through whichever Sender the deployment
// wires in (Kafka, webhook, or a mock for tests).
package notifier

import "context"

// Sender delivers a notification to target, adapted from the teacher's
// notification/domain.Sender interface.
type Sender interface {
	Send(ctx context.Context, target, subject, content string) error
}
