package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mailgun/mailgun-go/v4"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage/memory"
)

func str(s string) *string { return &s }
func i64(n int64) *int64   { return &n }

func sampleRecord() *domain.InsiderRecord {
	return &domain.InsiderRecord{
		Exchange:           domain.ExchangeNSE,
		ScripCode:          "INFY",
		CompanyName:        "Infosys Limited",
		PersonName:         "Promoter Trust",
		Category:           "7(2)",
		SecurityType:       "Equity Shares",
		TransactionType:    "Sell",
		NumberOfSecurities: i64(1234567),
		TransactionDate:    1709629200000, // 05/03/2024 14:30 IST
		XBRLLink:           str("https://www.nseindia.com/xbrl/1.xml"),
	}
}

func TestFormatIndian(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{100000, "1,00,000"},
		{1234567, "12,34,567"},
		{123456789, "12,34,56,789"},
		{-1500, "-1,500"},
	}
	for _, tt := range tests {
		if got := FormatIndian(tt.in); got != tt.want {
			t.Errorf("FormatIndian(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage(sampleRecord())

	wantSubject := "[NSE] Infosys Limited – Sell of 12,34,567 Equity Shares"
	if msg.Subject != wantSubject {
		t.Errorf("subject = %q, want %q", msg.Subject, wantSubject)
	}

	wantText := strings.Join([]string{
		"Exchange: NSE",
		"Symbol: INFY",
		"Company: Infosys Limited",
		"Person: Promoter Trust",
		"Category: 7(2)",
		"Type: Sell",
		"Qty: 1234567",
		"Security: Equity Shares",
		"Date: 05/03/2024",
		"XBRL: https://www.nseindia.com/xbrl/1.xml",
	}, "\n")
	if msg.Text != wantText {
		t.Errorf("text = %q, want %q", msg.Text, wantText)
	}
	if !strings.Contains(msg.HTML, `<a href="https://www.nseindia.com/xbrl/1.xml">View filing</a>`) {
		t.Errorf("html missing xbrl link: %s", msg.HTML)
	}
}

func TestBuildMessage_Defaults(t *testing.T) {
	msg := BuildMessage(&domain.InsiderRecord{Exchange: domain.ExchangeBSE, ScripCode: "500325"})

	if msg.Subject != "[BSE] - – Transaction of N/A" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if strings.Contains(msg.Text, "XBRL") {
		t.Error("expected no XBRL line")
	}
	if !strings.Contains(msg.Text, "Date: -") {
		t.Errorf("expected unknown date, got %q", msg.Text)
	}
}

type recordingChannel struct {
	name string
	err  error
	mu   sync.Mutex
	msgs []Message
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestDispatcher_Notify(t *testing.T) {
	ctx := context.Background()
	store := memory.NewUnifiedInsiderStore()
	id, err := store.Insert(ctx, "key-1", sampleRecord())
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	failing := &recordingChannel{name: "failing", err: errors.New("down")}
	ok := &recordingChannel{name: "ok"}
	d := NewDispatcher(store, nil, failing, ok)

	err = d.Notify(ctx, id)
	if err == nil || !strings.Contains(err.Error(), "failing: down") {
		t.Fatalf("expected joined channel error, got %v", err)
	}
	if len(ok.msgs) != 1 {
		t.Fatalf("expected delivery past failing channel, got %d", len(ok.msgs))
	}
	if ok.msgs[0].Record.ID != id {
		t.Errorf("expected record id %s, got %s", id, ok.msgs[0].Record.ID)
	}
}

func TestDispatcher_MissingRecord(t *testing.T) {
	ch := &recordingChannel{name: "ok"}
	d := NewDispatcher(memory.NewUnifiedInsiderStore(), nil, ch)

	if err := d.Notify(context.Background(), "missing"); err != nil {
		t.Fatalf("expected nil error for missing record, got %v", err)
	}
	if len(ch.msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(ch.msgs))
	}
}

func TestWebhookChannel_Send(t *testing.T) {
	var got WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer server.Close()

	msg := BuildMessage(sampleRecord())
	if err := (WebhookChannel{URL: server.URL}).Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Event != "insider.created" || got.Message.Subject != msg.Subject {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestWebhookChannel_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := (WebhookChannel{URL: server.URL}).Send(context.Background(), Message{})
	var he *httpError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected httpError 502, got %v", err)
	}
}

type fakeMailer struct {
	impl *mailgun.MailgunImpl
	fail map[string]bool
	sent []string
}

func (f *fakeMailer) NewMessage(from, subject, text string, to ...string) *mailgun.Message {
	f.sent = append(f.sent, to...)
	return f.impl.NewMessage(from, subject, text, to...)
}

func (f *fakeMailer) Send(_ context.Context, _ *mailgun.Message) (string, string, error) {
	last := f.sent[len(f.sent)-1]
	if f.fail[last] {
		return "rejected", "", errors.New("rejected")
	}
	return "queued", "<id@example.com>", nil
}

type staticRecipients []string

func (r staticRecipients) AllEmails(context.Context) ([]string, error) { return r, nil }

func TestEmailChannel_SendsPerRecipient(t *testing.T) {
	mailer := &fakeMailer{
		impl: mailgun.NewMailgun("example.com", "key"),
		fail: map[string]bool{"b@example.com": true},
	}
	ch := newEmailChannel(mailer, "alerts@example.com",
		staticRecipients{"a@example.com", "b@example.com", "c@example.com"}, nil)

	err := ch.Send(context.Background(), BuildMessage(sampleRecord()))
	if err == nil || !strings.Contains(err.Error(), "b@example.com") {
		t.Fatalf("expected error for b@example.com, got %v", err)
	}
	if len(mailer.sent) != 3 {
		t.Errorf("expected 3 messages, got %d", len(mailer.sent))
	}
}

func TestEmailChannel_NoRecipients(t *testing.T) {
	mailer := &fakeMailer{impl: mailgun.NewMailgun("example.com", "key")}
	ch := newEmailChannel(mailer, "alerts@example.com", staticRecipients{}, nil)

	if err := ch.Send(context.Background(), Message{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("expected no messages, got %d", len(mailer.sent))
	}
}
