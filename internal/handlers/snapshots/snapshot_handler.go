// internal/handlers/snapshots/snapshot_handler.go
package snapshots

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/lead"
	"github.com/andre-sav/panopticon/internal/pkg/response"
)

const (
	defaultWindowDays = 30
	maxWindowDays     = 365
)

// Lister is the slice of the snapshot repository this handler consumes.
type Lister interface {
	ListSince(ctx context.Context, days int) ([]lead.StatusSnapshot, error)
}

type SnapshotHandler struct {
	snapshots Lister
	logger    *zap.Logger
}

func NewSnapshotHandler(snapshots Lister, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		snapshots: snapshots,
		logger:    logger,
	}
}

// GetTrend serves the daily tier counts for the trend chart, oldest
// day first. Days without a snapshot are simply absent; the chart
// handles gaps.
// GET /api/v1/snapshots?days=30
func (h *SnapshotHandler) GetTrend(c *gin.Context) {
	if h.snapshots == nil {
		response.Error(c, http.StatusNotImplemented, "trend snapshots are not configured", nil)
		return
	}

	days := defaultWindowDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxWindowDays {
			response.ValidationError(c, "days must be between 1 and 365", err)
			return
		}
		days = n
	}

	rows, err := h.snapshots.ListSince(c.Request.Context(), days)
	if err != nil {
		h.logger.Error("failed to load status snapshots", zap.Int("days", days), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to load status snapshots", err)
		return
	}
	if rows == nil {
		rows = []lead.StatusSnapshot{}
	}

	response.SuccessWithMeta(c, http.StatusOK, "status snapshots retrieved", rows,
		gin.H{"days": days, "count": len(rows)}, "")
}
