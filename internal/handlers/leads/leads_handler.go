// internal/handlers/leads/leads_handler.go
package leads

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/lead"
	"github.com/andre-sav/panopticon/internal/domain/timeline"
	"github.com/andre-sav/panopticon/internal/middleware"
	xerrors "github.com/andre-sav/panopticon/internal/pkg/errors"
	"github.com/andre-sav/panopticon/internal/pkg/response"
	"github.com/andre-sav/panopticon/internal/service/dashboard"
	leadsService "github.com/andre-sav/panopticon/internal/service/leads"
)

// Board is the slice of the dashboard service this handler consumes.
type Board interface {
	Board(ctx context.Context, q dashboard.Query) (dashboard.View, error)
	Options(ctx context.Context) leadsService.Options
}

// Refresher triggers the explicit fetch-and-replace cycle.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Histories serves per-lead stage timelines and the aggregated flows.
type Histories interface {
	LeadHistory(ctx context.Context, leadID string) (timeline.History, error)
	StageFlows(ctx context.Context) ([]timeline.Flow, error)
}

type LeadsHandler struct {
	board     Board
	refresher Refresher
	histories Histories
	logger    *zap.Logger
}

func NewLeadsHandler(board Board, refresher Refresher, histories Histories, logger *zap.Logger) *LeadsHandler {
	return &LeadsHandler{
		board:     board,
		refresher: refresher,
		histories: histories,
		logger:    logger,
	}
}

// boardMeta is the list metadata attached to every board response so
// the frontend can tell "no data" apart from "nothing matches".
type boardMeta struct {
	Counts      lead.StatusCounts `json:"counts"`
	Total       int               `json:"total"`
	Shown       int               `json:"shown"`
	Filtered    bool              `json:"filtered"`
	LastRefresh string            `json:"last_refresh,omitempty"`
}

// GetBoard serves the filtered, sorted dashboard rows.
// GET /api/v1/leads?stage=&owner=&range=&sort=
func (h *LeadsHandler) GetBoard(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		response.ValidationError(c, "invalid query parameter", err)
		return
	}

	view, err := h.board.Board(c.Request.Context(), q)
	if err != nil {
		h.renderBoardError(c, err)
		return
	}

	meta := boardMeta{
		Counts:   view.Counts,
		Total:    view.Total,
		Shown:    len(view.Records),
		Filtered: view.Filtered,
	}
	if !view.LastRefresh.IsZero() {
		meta.LastRefresh = view.LastRefresh.UTC().Format(time.RFC3339)
	}

	response.SuccessWithMeta(c, http.StatusOK, "leads retrieved", view.Records, meta, view.Warning)
}

// Refresh discards the held snapshot and fetches a fresh one. Only
// ever runs on an explicit call; there is no timer behind it.
// POST /api/v1/leads/refresh
func (h *LeadsHandler) Refresh(c *gin.Context) {
	if err := h.refresher.Refresh(c.Request.Context()); err != nil {
		if xerrors.Is(err, xerrors.ErrRefreshInProgress) {
			response.Error(c, http.StatusConflict, "a refresh is already running", nil)
			return
		}
		middleware.RecordRefresh("failed")
		middleware.RecordFetchError(string(xerrors.FetchKindOf(err)))
		h.renderBoardError(c, err)
		return
	}
	middleware.RecordRefresh("ok")

	view, err := h.board.Board(c.Request.Context(), dashboard.Query{})
	if err != nil {
		// The refresh itself succeeded; report that even if the view
		// could not be assembled.
		h.logger.Warn("refreshed but failed to assemble board", zap.Error(err))
		response.Success(c, http.StatusOK, "leads refreshed", nil)
		return
	}
	middleware.SetStatusCounts(view.Counts.Stale, view.Counts.AtRisk, view.Counts.Healthy)

	response.SuccessWithMeta(c, http.StatusOK, "leads refreshed", nil, boardMeta{
		Counts:      view.Counts,
		Total:       view.Total,
		Shown:       view.Total,
		LastRefresh: view.LastRefresh.UTC().Format(time.RFC3339),
	}, view.Warning)
}

// GetOptions serves the filter dropdown choices derived from the
// current snapshot.
// GET /api/v1/leads/options
func (h *LeadsHandler) GetOptions(c *gin.Context) {
	response.Success(c, http.StatusOK, "filter options", h.board.Options(c.Request.Context()))
}

// GetHistory serves one lead's stage transitions. An empty timeline is
// a normal result (the lead never changed stage); only an upstream
// failure is an error.
// GET /api/v1/leads/:id/history
func (h *LeadsHandler) GetHistory(c *gin.Context) {
	leadID := c.Param("id")
	if leadID == "" {
		response.ValidationError(c, "lead id is required", nil)
		return
	}

	history, err := h.histories.LeadHistory(c.Request.Context(), leadID)
	if err != nil {
		h.logger.Error("failed to load stage history", zap.String("lead_id", leadID), zap.Error(err))
		response.UpstreamError(c, "failed to load stage history", err)
		return
	}
	if history == nil {
		history = timeline.History{}
	}

	response.Success(c, http.StatusOK, "stage history retrieved", history)
}

// GetTransitions serves the aggregated from→to stage edges for the
// pipeline flow diagram, built from every cached timeline.
// GET /api/v1/leads/transitions
func (h *LeadsHandler) GetTransitions(c *gin.Context) {
	flows, err := h.histories.StageFlows(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to aggregate stage flows", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to aggregate stage flows", err)
		return
	}
	if flows == nil {
		flows = []timeline.Flow{}
	}

	response.Success(c, http.StatusOK, "stage flows retrieved", flows)
}

// parseQuery validates the board query parameters. Unknown values are
// rejected rather than silently treated as "all" so a frontend typo
// never shows a misleadingly unfiltered board.
func parseQuery(c *gin.Context) (dashboard.Query, error) {
	var q dashboard.Query

	dateRange, ok := lead.ParseDateRange(c.Query("range"))
	if !ok {
		return q, xerrors.Wrap(xerrors.ErrInvalidInput, "unknown date range "+c.Query("range"))
	}
	sortKey, ok := lead.ParseSortKey(c.Query("sort"))
	if !ok {
		return q, xerrors.Wrap(xerrors.ErrInvalidInput, "unknown sort key "+c.Query("sort"))
	}

	q.Filters = lead.FilterState{
		Stage:     c.Query("stage"),
		Owner:     c.Query("owner"),
		DateRange: dateRange,
	}
	q.Sort = sortKey
	return q, nil
}

// renderBoardError maps board/refresh failures onto responses the
// frontend renders as distinct guidance: no data yet, credential
// problems, and transient upstream outages all read differently.
func (h *LeadsHandler) renderBoardError(c *gin.Context, err error) {
	if xerrors.Is(err, xerrors.ErrNoSnapshot) {
		response.Error(c, http.StatusServiceUnavailable, "no lead data loaded yet, trigger a refresh", nil,
			gin.H{"kind": "no_data"})
		return
	}

	kind := xerrors.FetchKindOf(err)
	h.logger.Error("board unavailable", zap.String("kind", string(kind)), zap.Error(err))

	switch kind {
	case xerrors.FetchAuth:
		response.Error(c, http.StatusBadGateway, "CRM authentication failed, reconnect Zoho", err,
			gin.H{"kind": string(kind)})
	case xerrors.FetchRateLimited:
		response.Error(c, http.StatusBadGateway, "CRM rate limit reached, try again shortly", err,
			gin.H{"kind": string(kind)})
	case xerrors.FetchTimeout, xerrors.FetchConnection:
		response.Error(c, http.StatusBadGateway, "CRM is unreachable, try again", err,
			gin.H{"kind": string(kind)})
	default:
		response.Error(c, http.StatusBadGateway, "failed to load leads", err,
			gin.H{"kind": string(kind)})
	}
}
