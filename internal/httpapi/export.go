package httpapi

import (
	"bytes"
	"encoding/csv"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"kardex/backend/internal/domain"
)

var transferColumns = []string{
	"date", "folio", "item_code", "origin", "destination", "reference",
	"sent_qty", "received_qty", "unit_cost", "origin_value", "received_value", "value_gap", "status",
}

func transferRow(p domain.TransferPair) []string {
	return []string{
		p.Date.Format(time.RFC3339),
		p.Folio,
		p.ItemCode,
		p.Origin,
		p.Destination,
		p.Reference,
		p.OriginQuantity.String(),
		p.DestinationQuantity.String(),
		p.OriginUnitCost.StringFixed(2),
		p.OriginValue.StringFixed(2),
		p.ReceivedValue.StringFixed(2),
		p.ValueDiscrepancy.StringFixed(2),
		p.Status(),
	}
}

func transferReportToCSV(report domain.TransferReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write(transferColumns)
	for _, pair := range report.Pairs {
		_ = w.Write(transferRow(pair))
	}
	_ = w.Write(nil)
	_ = w.Write([]string{"summary", "run_id", report.RunID})
	_ = w.Write([]string{"summary", "total_sent", report.TotalSent.StringFixed(2)})
	_ = w.Write([]string{"summary", "total_received", report.TotalReceived.StringFixed(2)})
	_ = w.Write([]string{"summary", "balance", report.Balance.StringFixed(2)})
	_ = w.Write([]string{"summary", "discrepancies", strconv.Itoa(report.DiscrepancyCount)})
	_ = w.Write([]string{"summary", "unresolved", strconv.Itoa(len(report.Unresolved))})
	for _, warning := range report.Warnings {
		_ = w.Write([]string{"warning", warning.Branch + "/" + warning.Side, warning.Message})
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// html/template escapes every reference and warning message.
var transferReportHTMLTmpl = template.Must(template.New("transfer-report").Funcs(template.FuncMap{
	"money": func(v decimal.Decimal) string { return v.StringFixed(2) },
	"day":   func(t time.Time) string { return t.Format("2006-01-02") },
}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Transfers from {{.Origin}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    .bad { color: #b00020; font-weight: bold; }
    .warn { background: #fff4e5; padding: 8px; }
  </style>
</head>
<body>
  <h2>Transfers from {{.Origin}}</h2>
  <p>{{day .Range.From}} to {{day .Range.To}} | Run {{.RunID}}</p>
  {{range .Warnings}}<p class="warn">{{.Branch}} ({{.Side}}) unavailable: {{.Message}}</p>{{end}}
  <p>Sent: {{money .TotalSent}} | Received: {{money .TotalReceived}} | Balance: {{money .Balance}} | Discrepancies: {{.DiscrepancyCount}}</p>

  <table>
    <thead><tr><th>Date</th><th>Folio</th><th>Item</th><th>Destination</th><th>Sent</th><th>Received</th><th>Value gap</th><th>Status</th></tr></thead>
    <tbody>{{range .Pairs}}<tr><td>{{day .Date}}</td><td>{{.Folio}}</td><td>{{.ItemCode}}</td><td>{{.Destination}}</td><td style="text-align:right;">{{.OriginQuantity}}</td><td style="text-align:right;">{{.DestinationQuantity}}</td><td style="text-align:right;">{{money .ValueDiscrepancy}}</td><td{{if .QuantityDiscrepancy}} class="bad"{{end}}>{{.Status}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Without destination</h3>
  <table>
    <thead><tr><th>Date</th><th>Folio</th><th>Item</th><th>Reference</th></tr></thead>
    <tbody>{{range .Unresolved}}<tr><td>{{day .Date}}</td><td>{{.Folio}}</td><td>{{.ItemCode}}</td><td>{{.Reference}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func transferReportToPrintableHTML(report domain.TransferReport) string {
	var buf bytes.Buffer
	if err := transferReportHTMLTmpl.Execute(&buf, report); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

const (
	xlsxTransfersSheet = "Transfers"
	xlsxSummarySheet   = "Summary"
)

func writeTransferReportXLSX(w io.Writer, report domain.TransferReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", xlsxTransfersSheet); err != nil {
		return err
	}
	header := make([]any, len(transferColumns))
	for i, column := range transferColumns {
		header[i] = column
	}
	if err := f.SetSheetRow(xlsxTransfersSheet, "A1", &header); err != nil {
		return err
	}
	for i, p := range report.Pairs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			p.Date.Format("2006-01-02"),
			p.Folio,
			p.ItemCode,
			p.Origin,
			p.Destination,
			p.Reference,
			p.OriginQuantity.InexactFloat64(),
			p.DestinationQuantity.InexactFloat64(),
			p.OriginUnitCost.InexactFloat64(),
			p.OriginValue.InexactFloat64(),
			p.ReceivedValue.InexactFloat64(),
			p.ValueDiscrepancy.InexactFloat64(),
			p.Status(),
		}
		if err := f.SetSheetRow(xlsxTransfersSheet, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(xlsxSummarySheet); err != nil {
		return err
	}
	summary := [][]any{
		{"run_id", report.RunID},
		{"origin", report.Origin},
		{"from", report.Range.From.Format("2006-01-02")},
		{"to", report.Range.To.Format("2006-01-02")},
		{"total_sent", report.TotalSent.InexactFloat64()},
		{"total_received", report.TotalReceived.InexactFloat64()},
		{"balance", report.Balance.InexactFloat64()},
		{"discrepancies", report.DiscrepancyCount},
		{"unresolved", len(report.Unresolved)},
	}
	for _, warning := range report.Warnings {
		summary = append(summary, []any{"warning", warning.Branch + "/" + warning.Side + ": " + warning.Message})
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSummarySheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}
