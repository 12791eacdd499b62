package application

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/wyfcoding/etfarb/internal/signal"
)

var csvHeader = []string{
	"timestamp", "stock_code", "stock_name", "stock_price", "etf_code",
	"etf_name", "etf_weight", "confidence", "risk_level", "reason",
}

// SignalsToCSV renders signals as the §6 "CSV export of signals": UTF-8
// with a BOM, every field quoted regardless of content (encoding/csv only
// quotes fields that need it, so the line is built by hand here).
func SignalsToCSV(signals []signal.TradingSignal) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	writeRow(&buf, csvHeader)
	for _, s := range signals {
		writeRow(&buf, []string{
			s.Timestamp.Format("2006-01-02T15:04:05"),
			s.StockCode,
			s.StockName,
			s.StockPrice.String(),
			s.ETFCode,
			s.ETFName,
			s.Weight.String(),
			fmt.Sprintf("%.4f", s.ConfidenceScore),
			string(s.RiskLevel),
			s.Reason,
		})
	}
	return buf.Bytes()
}

func writeRow(buf *bytes.Buffer, fields []string) {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	buf.WriteString(strings.Join(quoted, ","))
	buf.WriteString("\n")
}
