package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/notify"
	"insider-pipeline/internal/orchestrator"
	"insider-pipeline/internal/query"
	"insider-pipeline/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeJobs struct {
	err     error
	summary *orchestrator.Summary
	job     orchestrator.Job
	filter  domain.RowFilter
}

func (f *fakeJobs) RunWithFilter(_ context.Context, job orchestrator.Job, filter domain.RowFilter) (*orchestrator.Summary, error) {
	f.job, f.filter = job, filter
	if f.summary == nil && f.err == nil {
		return &orchestrator.Summary{Job: job, Inserted: 1}, nil
	}
	return f.summary, f.err
}

type fakeSearcher struct {
	err error
}

func (f *fakeSearcher) Search(_ context.Context, question, date string) (*query.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(question) == "" {
		return nil, query.ErrEmptyQuery
	}
	return &query.SearchResult{
		Query:     question,
		Namespace: "10-03-2024",
		Matches:   []domain.VectorMatch{{ID: "v1", Score: 0.9}},
	}, nil
}

type fixture struct {
	deps   Deps
	router *gin.Engine
	jobs   *fakeJobs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	unified := memory.NewUnifiedInsiderStore()
	ctx := context.Background()
	qty := int64(100)
	_, err := unified.Insert(ctx, "k1", &domain.InsiderRecord{
		ID: "rec-1", Exchange: domain.ExchangeBSE, ScripCode: "500325",
		NumberOfSecurities: &qty, CreatedAt: testNow.Add(-time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	_, err = unified.Insert(ctx, "k2", &domain.InsiderRecord{
		ID: "rec-2", Exchange: domain.ExchangeNSE, ScripCode: "RELIANCE",
		NumberOfSecurities: &qty, CreatedAt: testNow.Add(-48 * time.Hour).UnixMilli(),
	})
	require.NoError(t, err)

	deals := memory.NewBulkDealStore()
	_, err = deals.Insert(ctx, "d1", &domain.BulkDeal{
		ScripCode: "500325", ClientName: "ACME FUND", DateText: "05/03/2024",
		DealType: domain.DealTypeBuy, Quantity: 10, Price: decimal.NewFromInt(5), TotalValue: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	actions := memory.NewCorporateActionStore()
	_, err = actions.Insert(ctx, "a1", &domain.CorporateAction{ScripCode: "500325", Purpose: "Dividend", ExDate: testNow.Add(24 * time.Hour).UnixMilli()})
	require.NoError(t, err)
	_, err = actions.Insert(ctx, "a2", &domain.CorporateAction{ScripCode: "500325", Purpose: "Split", ExDate: testNow.Add(-24 * time.Hour).UnixMilli()})
	require.NoError(t, err)

	jobs := &fakeJobs{}
	deps := Deps{
		Unified:          unified,
		BulkDeals:        deals,
		CorporateActions: actions,
		Subscribers:      memory.NewSubscriberStore(),
		Jobs:             jobs,
		Searcher:         &fakeSearcher{},
		CronSecret:       "s3cret",
		Clock:            func() time.Time { return testNow },
	}
	return &fixture{deps: deps, router: NewRouter(deps), jobs: jobs}
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "").Code)

	f.deps.Ready = func(context.Context) error { return errors.New("db down") }
	f.router = NewRouter(f.deps)
	w := f.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db down")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecentInsiderUsesCreatedAtWindow(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/insider/recent", "")
	require.Equal(t, http.StatusOK, w.Code)

	var recs []domain.InsiderRecord
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "rec-1", recs[0].ID)
}

func TestListInsiderByExchange(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/insider?exchange=nse", "")
	require.Equal(t, http.StatusOK, w.Code)
	var recs []domain.InsiderRecord
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, domain.ExchangeNSE, recs[0].Exchange)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/insider?exchange=LSE", "").Code)

	w = f.do(http.MethodGet, "/api/insider?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &recs))
	assert.Len(t, recs, 1)
}

func TestInsiderByIDAndScrip(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/insider/rec-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec domain.InsiderRecord
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rec))
	assert.Equal(t, "RELIANCE", rec.ScripCode)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/insider/missing", "").Code)

	w = f.do(http.MethodGet, "/api/insider/scrip/500325", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w).Meta["count"])
}

func TestBulkDealsAndUpcomingActions(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/bulk-deals?client=ACME%20FUND", "")
	require.Equal(t, http.StatusOK, w.Code)
	var deals []domain.BulkDeal
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &deals))
	require.Len(t, deals, 1)
	assert.True(t, deals[0].TotalValue.Equal(decimal.NewFromInt(50)))

	w = f.do(http.MethodGet, "/api/corporate-actions/upcoming", "")
	require.Equal(t, http.StatusOK, w.Code)
	var actions []domain.CorporateAction
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &actions))
	require.Len(t, actions, 1)
	assert.Equal(t, "Dividend", actions[0].Purpose)
}

func TestCronRequiresBearerSecret(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/cron/bse_insider", "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		f.do(http.MethodPost, "/api/cron/bse_insider", "", "Authorization", "Bearer wrong").Code)
	assert.Empty(t, f.jobs.job)

	w := f.do(http.MethodPost, "/api/cron/bse_insider?scrip=500325", "", "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orchestrator.JobBSEInsider, f.jobs.job)
	assert.Equal(t, "500325", f.jobs.filter.ScripCode)
}

func TestCronTriggersReindex(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/cron/reindex_vectors", "", "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orchestrator.JobReindexVectors, f.jobs.job)
}

func TestCronEmptySecretRejectsAll(t *testing.T) {
	f := newFixture(t)
	f.deps.CronSecret = ""
	f.router = NewRouter(f.deps)

	assert.Equal(t, http.StatusUnauthorized,
		f.do(http.MethodPost, "/api/cron/all", "", "Authorization", "Bearer ").Code)
}

func TestCronErrors(t *testing.T) {
	f := newFixture(t)
	auth := []string{"Authorization", "Bearer s3cret"}

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/cron/nope", "", auth...).Code)

	f.jobs.err = orchestrator.ErrRunInProgress
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/cron/nse_insider", "", auth...).Code)

	f.jobs.err = errors.New("scrape failed")
	f.jobs.summary = &orchestrator.Summary{Job: orchestrator.JobNSEInsider, Failed: 1}
	w := f.do(http.MethodPost, "/api/cron/nse_insider", "", auth...)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "scrape failed")
}

func TestAIQuery(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/ai/query", `{"query":"who sold?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, true, env.Meta["success"])
	assert.Equal(t, "10-03-2024", env.Meta["namespace"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/ai/query", `{"query":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/ai/query", `not json`).Code)

	f.deps.Searcher = &fakeSearcher{err: query.ErrNoData}
	f.router = NewRouter(f.deps)
	w = f.do(http.MethodPost, "/api/ai/query", `{"query":"anything"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, decode(t, w).Meta["success"])
}

func TestUpsertSubscriber(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/subscribers", `{"externalId":"u1","name":"A","email":"a@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	emails, err := f.deps.Subscribers.AllEmails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, emails)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/subscribers", `{"name":"no id"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/subscribers", `{"externalId":"u2","email":"bad"}`).Code)
}

func TestFeedBroadcast(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultFeedConfig()
	feed := NewFeed(&cfg, nil)
	defer feed.Close()
	f.deps.Feed = feed
	srv := httptest.NewServer(NewRouter(f.deps))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := &domain.InsiderRecord{ID: "rec-1", Exchange: domain.ExchangeBSE, ScripCode: "500325"}
	require.NoError(t, feed.Send(context.Background(), notify.Message{Subject: "[BSE] test", Record: rec}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type    string               `json:"type"`
		Subject string               `json:"subject"`
		Record  domain.InsiderRecord `json:"record"`
	}
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "insider", event.Type)
	assert.Equal(t, "[BSE] test", event.Subject)
	assert.Equal(t, "rec-1", event.Record.ID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return feed.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
