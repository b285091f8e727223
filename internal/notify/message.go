// Package notify delivers alerts about newly unified insider records.
package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/normalize"
)

// Message is a rendered alert for one record.
type Message struct {
	Subject string                `json:"subject"`
	Text    string                `json:"text"`
	HTML    string                `json:"-"`
	Record  *domain.InsiderRecord `json:"record"`
}

// BuildMessage renders the alert for rec.
func BuildMessage(rec *domain.InsiderRecord) Message {
	qty := "N/A"
	if rec.NumberOfSecurities != nil {
		qty = FormatIndian(*rec.NumberOfSecurities)
	}
	company := orDash(rec.CompanyName)
	txnType := rec.TransactionType
	if txnType == "" {
		txnType = "Transaction"
	}
	date := transactionDate(rec)

	subject := strings.TrimSpace(fmt.Sprintf("[%s] %s – %s of %s %s",
		rec.Exchange, company, txnType, qty, rec.SecurityType))

	lines := []string{
		"Exchange: " + string(rec.Exchange),
		"Symbol: " + orDash(rec.ScripCode),
		"Company: " + company,
		"Person: " + orDash(rec.PersonName),
		"Category: " + orDash(rec.Category),
		"Type: " + orDash(rec.TransactionType),
		"Qty: " + rawQuantity(rec),
		"Security: " + orDash(rec.SecurityType),
		"Date: " + date,
	}
	if rec.XBRLLink != nil && *rec.XBRLLink != "" {
		lines = append(lines, "XBRL: "+*rec.XBRLLink)
	}

	xbrl := "-"
	if rec.XBRLLink != nil && *rec.XBRLLink != "" {
		xbrl = fmt.Sprintf(`<a href="%s">View filing</a>`, html.EscapeString(*rec.XBRLLink))
	}
	esc := html.EscapeString
	body := fmt.Sprintf(`<div style="font-family:system-ui,Segoe UI,Roboto,Arial,sans-serif;line-height:1.5">
  <h2 style="margin:0 0 8px">%s (%s)</h2>
  <p style="margin:0 0 12px"><strong>%s</strong> of <strong>%s</strong> %s on <strong>%s</strong> via <strong>%s</strong>.</p>
  <table style="border-collapse:collapse"><tbody>
    <tr><td style="padding:4px 8px;color:#555">Person</td><td style="padding:4px 8px">%s</td></tr>
    <tr><td style="padding:4px 8px;color:#555">Category</td><td style="padding:4px 8px">%s</td></tr>
    <tr><td style="padding:4px 8px;color:#555">XBRL</td><td style="padding:4px 8px">%s</td></tr>
  </tbody></table>
</div>`,
		esc(company), esc(orDash(rec.ScripCode)),
		esc(txnType), qty, esc(rec.SecurityType), esc(date), esc(string(rec.Exchange)),
		esc(orDash(rec.PersonName)), esc(orDash(rec.Category)), xbrl)

	return Message{
		Subject: subject,
		Text:    strings.Join(lines, "\n"),
		HTML:    body,
		Record:  rec,
	}
}

// FormatIndian groups digits the en-IN way: 1234567 -> "12,34,567".
func FormatIndian(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return sign + s
	}

	head, tail := s[:len(s)-3], s[len(s)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return sign + strings.Join(groups, ",") + "," + tail
}

func rawQuantity(rec *domain.InsiderRecord) string {
	if rec.NumberOfSecurities == nil {
		return "-"
	}
	return strconv.FormatInt(*rec.NumberOfSecurities, 10)
}

func transactionDate(rec *domain.InsiderRecord) string {
	if rec.TransactionDate != 0 {
		return normalize.NormalizeDate(rec.TransactionDate)
	}
	if t := normalize.StringValue(rec.TransactionDateText); t != "" {
		return t
	}
	return "-"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
