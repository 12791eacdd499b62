package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/etfarb/internal/signal"
)

func TestDispatcherFansOutToEverySender(t *testing.T) {
	a := NewMockSender()
	b := NewMockSender()
	d := NewDispatcher("ops-channel")
	d.Register("a", a)
	d.Register("b", b)

	ts := &signal.TradingSignal{
		Timestamp:       time.Now(),
		StockCode:       "600519",
		ETFCode:         "510300",
		ETFName:         "CSI 300 ETF",
		Weight:          decimal.NewFromFloat(0.085),
		ConfidenceLevel: signal.ConfidenceHigh,
		ConfidenceScore: 0.915,
		RiskLevel:       signal.RiskMedium,
		Reason:          "weight 8.50%",
	}
	d.Notify(context.Background(), ts)

	require.Len(t, a.Sent(), 1)
	require.Len(t, b.Sent(), 1)
	assert.Equal(t, "ops-channel", a.Sent()[0].Target)
	assert.Contains(t, a.Sent()[0].Content, "600519")
	assert.Contains(t, a.Sent()[0].Content, "510300")
}

func TestDispatcherWithNoSendersIsNoop(t *testing.T) {
	d := NewDispatcher("ops-channel")
	ts := &signal.TradingSignal{StockCode: "600519", ETFCode: "510300"}
	assert.NotPanics(t, func() { d.Notify(context.Background(), ts) })
}
