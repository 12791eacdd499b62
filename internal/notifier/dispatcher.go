package notifier

import (
	"context"
	"fmt"

	"github.com/wyfcoding/etfarb/internal/platform/logger"
	"github.com/wyfcoding/etfarb/internal/signal"
)

// Dispatcher turns an emitted TradingSignal into a notification, fanning it
// out to every configured Sender. Failures are logged and swallowed per §7
// "Propagation policy" — a notification failure must never abort a scan.
type Dispatcher struct {
	senders []namedSender
	target  string
}

type namedSender struct {
	name   string
	sender Sender
}

// NewDispatcher builds a Dispatcher that passes target to every sender's
// Send: the Kafka sender uses it as the message key, the mock sender records
// it, and the webhook sender ignores it in favour of its own bound URL.
func NewDispatcher(target string) *Dispatcher {
	return &Dispatcher{target: target}
}

// Register adds a named Sender to the fan-out set.
func (d *Dispatcher) Register(name string, s Sender) {
	d.senders = append(d.senders, namedSender{name: name, sender: s})
}

// SenderNames returns the registered sender names, in registration order,
// for the §6 GET /api/plugins inventory.
func (d *Dispatcher) SenderNames() []string {
	out := make([]string, len(d.senders))
	for i, ns := range d.senders {
		out[i] = ns.name
	}
	return out
}

// Notify formats ts and delivers it to every registered sender. Matches the
// engine.Engine.Notify callback signature.
func (d *Dispatcher) Notify(ctx context.Context, ts *signal.TradingSignal) {
	subject := fmt.Sprintf("arbitrage signal: %s -> %s", ts.StockCode, ts.ETFCode)
	content := fmt.Sprintf(
		"%s limit-up mapped to %s (%s) weight %s, confidence %s (%.3f), risk %s: %s",
		ts.StockCode, ts.ETFCode, ts.ETFName, ts.Weight.String(),
		ts.ConfidenceLevel, ts.ConfidenceScore, ts.RiskLevel, ts.Reason,
	)

	for _, ns := range d.senders {
		if err := ns.sender.Send(ctx, d.target, subject, content); err != nil {
			logger.Warn(ctx, "notification delivery failed", "sender", ns.name, "stock_code", ts.StockCode, "error", err)
		}
	}
}
