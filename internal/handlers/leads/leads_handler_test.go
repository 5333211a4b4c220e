// internal/handlers/leads/leads_handler_test.go
package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/lead"
	"github.com/andre-sav/panopticon/internal/domain/timeline"
	xerrors "github.com/andre-sav/panopticon/internal/pkg/errors"
	"github.com/andre-sav/panopticon/internal/service/dashboard"
	leadsService "github.com/andre-sav/panopticon/internal/service/leads"
)

type fakeBoard struct {
	view    dashboard.View
	err     error
	gotQ    dashboard.Query
	options leadsService.Options
}

func (f *fakeBoard) Board(_ context.Context, q dashboard.Query) (dashboard.View, error) {
	f.gotQ = q
	return f.view, f.err
}

func (f *fakeBoard) Options(_ context.Context) leadsService.Options {
	return f.options
}

type fakeRefresher struct {
	err    error
	called int
}

func (f *fakeRefresher) Refresh(_ context.Context) error {
	f.called++
	return f.err
}

type fakeHistories struct {
	history    timeline.History
	historyErr error
	flows      []timeline.Flow
	flowsErr   error
	gotLeadID  string
}

func (f *fakeHistories) LeadHistory(_ context.Context, leadID string) (timeline.History, error) {
	f.gotLeadID = leadID
	return f.history, f.historyErr
}

func (f *fakeHistories) StageFlows(_ context.Context) ([]timeline.Flow, error) {
	return f.flows, f.flowsErr
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Warning string          `json:"warning"`
	Error   string          `json:"error"`
}

func setupRouter(board Board, refresher Refresher, histories Histories) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewLeadsHandler(board, refresher, histories, zap.NewNop())

	r := gin.New()
	r.GET("/leads", h.GetBoard)
	r.POST("/leads/refresh", h.Refresh)
	r.GET("/leads/options", h.GetOptions)
	r.GET("/leads/transitions", h.GetTransitions)
	r.GET("/leads/:id/history", h.GetHistory)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestGetBoardPassesParsedQuery(t *testing.T) {
	board := &fakeBoard{view: dashboard.View{LastRefresh: time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC)}}
	r := setupRouter(board, &fakeRefresher{}, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodGet,
		"/leads?stage=Green&owner=Jessica&range=last_7_days&sort=owner")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Green", board.gotQ.Filters.Stage)
	assert.Equal(t, "Jessica", board.gotQ.Filters.Owner)
	assert.Equal(t, lead.RangeLast7, board.gotQ.Filters.DateRange)
	assert.Equal(t, lead.SortOwner, board.gotQ.Sort)
}

func TestGetBoardDefaultsToUrgency(t *testing.T) {
	board := &fakeBoard{}
	r := setupRouter(board, &fakeRefresher{}, &fakeHistories{})

	w, _ := doRequest(t, r, http.MethodGet, "/leads")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, lead.SortUrgency, board.gotQ.Sort)
	assert.False(t, board.gotQ.Filters.Active())
}

func TestGetBoardRejectsUnknownRange(t *testing.T) {
	r := setupRouter(&fakeBoard{}, &fakeRefresher{}, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodGet, "/leads?range=last_90_days")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestGetBoardRejectsUnknownSortKey(t *testing.T) {
	r := setupRouter(&fakeBoard{}, &fakeRefresher{}, &fakeHistories{})

	w, _ := doRequest(t, r, http.MethodGet, "/leads?sort=height")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBoardMetaDistinguishesFilteredEmpty(t *testing.T) {
	// 12 leads exist, none match: shown=0 with filtered=true tells the
	// frontend to say "nothing matches" instead of "no data".
	board := &fakeBoard{view: dashboard.View{
		Records:  []lead.DisplayRecord{},
		Total:    12,
		Filtered: true,
	}}
	r := setupRouter(board, &fakeRefresher{}, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodGet, "/leads?stage=Green")
	assert.Equal(t, http.StatusOK, w.Code)

	var meta boardMeta
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Equal(t, 12, meta.Total)
	assert.Equal(t, 0, meta.Shown)
	assert.True(t, meta.Filtered)
}

func TestGetBoardCarriesStaleDataWarning(t *testing.T) {
	board := &fakeBoard{view: dashboard.View{Warning: "Some data may be missing. Showing cached data."}}
	r := setupRouter(board, &fakeRefresher{}, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodGet, "/leads")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Some data may be missing. Showing cached data.", env.Warning)
}

func TestGetBoardBeforeFirstFetch(t *testing.T) {
	board := &fakeBoard{err: xerrors.ErrNoSnapshot}
	r := setupRouter(board, &fakeRefresher{}, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodGet, "/leads")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, env.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "no_data", data["kind"])
}

func TestGetBoardAuthFailureReadsDifferently(t *testing.T) {
	board := &fakeBoard{err: xerrors.NewFetchError(xerrors.FetchAuth, "invalid refresh token", nil)}
	r := setupRouter(board, &fakeRefresher{}, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodGet, "/leads")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, env.Message, "reconnect")

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "auth", data["kind"])
}

func TestRefreshSuccessReturnsCounts(t *testing.T) {
	refresher := &fakeRefresher{}
	board := &fakeBoard{view: dashboard.View{
		Counts:      lead.StatusCounts{Stale: 3, AtRisk: 2, Healthy: 5},
		Total:       10,
		LastRefresh: time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC),
	}}
	r := setupRouter(board, refresher, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodPost, "/leads/refresh")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, 1, refresher.called)

	var meta boardMeta
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Equal(t, 3, meta.Counts.Stale)
	assert.Equal(t, 10, meta.Total)
}

func TestRefreshConflictWhileRunning(t *testing.T) {
	refresher := &fakeRefresher{err: xerrors.ErrRefreshInProgress}
	r := setupRouter(&fakeBoard{}, refresher, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodPost, "/leads/refresh")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
}

func TestRefreshUpstreamFailure(t *testing.T) {
	refresher := &fakeRefresher{err: xerrors.NewFetchError(xerrors.FetchTimeout, "request timed out", nil)}
	r := setupRouter(&fakeBoard{}, refresher, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodPost, "/leads/refresh")

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "timeout", data["kind"])
}

func TestGetOptions(t *testing.T) {
	board := &fakeBoard{options: leadsService.Options{
		Stages: []string{"Green - Approved By Locator"},
		Owners: []string{"Marcus Johnson"},
	}}
	r := setupRouter(board, &fakeRefresher{}, &fakeHistories{})

	w, env := doRequest(t, r, http.MethodGet, "/leads/options")

	assert.Equal(t, http.StatusOK, w.Code)

	var opts leadsService.Options
	require.NoError(t, json.Unmarshal(env.Data, &opts))
	assert.Equal(t, []string{"Green - Approved By Locator"}, opts.Stages)
	assert.Equal(t, []string{"Marcus Johnson"}, opts.Owners)
}

func TestGetHistory(t *testing.T) {
	from, to := "HLM Follow up", "Green - Approved By Locator"
	at := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	histories := &fakeHistories{history: timeline.History{
		{FromStage: &from, ToStage: &to, ChangedAt: &at},
	}}
	r := setupRouter(&fakeBoard{}, &fakeRefresher{}, histories)

	w, env := doRequest(t, r, http.MethodGet, "/leads/42/history")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", histories.gotLeadID)

	var got timeline.History
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, to, *got[0].ToStage)
}

func TestGetHistoryEmptyTimelineIsNotAnError(t *testing.T) {
	r := setupRouter(&fakeBoard{}, &fakeRefresher{}, &fakeHistories{history: nil})

	w, env := doRequest(t, r, http.MethodGet, "/leads/42/history")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestGetHistoryUpstreamFailure(t *testing.T) {
	histories := &fakeHistories{historyErr: xerrors.NewFetchError(xerrors.FetchConnection, "connection refused", nil)}
	r := setupRouter(&fakeBoard{}, &fakeRefresher{}, histories)

	w, env := doRequest(t, r, http.MethodGet, "/leads/42/history")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, env.Success)
}

func TestGetTransitions(t *testing.T) {
	histories := &fakeHistories{flows: []timeline.Flow{
		{FromStage: "HLM Follow up", ToStage: "Green - Approved By Locator", Count: 4},
	}}
	r := setupRouter(&fakeBoard{}, &fakeRefresher{}, histories)

	w, env := doRequest(t, r, http.MethodGet, "/leads/transitions")

	assert.Equal(t, http.StatusOK, w.Code)

	var flows []timeline.Flow
	require.NoError(t, json.Unmarshal(env.Data, &flows))
	require.Len(t, flows, 1)
	assert.Equal(t, 4, flows[0].Count)
}
