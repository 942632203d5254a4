package reporting

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gestor-comercial/gestor/internal/platform/httpx"
)

// Handler serves the rollup projections consumed by the display layer.
type Handler struct {
	logger  *slog.Logger
	service *Service
	group   singleflight.Group
	printer *message.Printer
}

// NewHandler builds the reporting handler. Amounts in the formatted summary
// follow es-MX conventions.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		printer: message.NewPrinter(language.MustParse("es-MX")),
	}
}

// MountRoutes registers reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rollup", h.monthlyRollup)
	r.Get("/rollup/summary", h.rollupSummary)
}

func (h *Handler) monthlyRollup(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	buckets, err := h.fetch(r.Context(), filter)
	if err != nil {
		h.logger.Error("monthly rollup failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

type summaryRow struct {
	Period   string `json:"period"`
	Inflows  string `json:"inflows"`
	Outflows string `json:"outflows"`
	Net      string `json:"net"`
}

// rollupSummary returns the same buckets with amounts formatted for display.
func (h *Handler) rollupSummary(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	buckets, err := h.fetch(r.Context(), filter)
	if err != nil {
		h.logger.Error("rollup summary failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	rows := make([]summaryRow, 0, len(buckets))
	for _, bucket := range buckets {
		rows = append(rows, summaryRow{
			Period:   bucket.Period,
			Inflows:  h.printer.Sprintf("$%.2f", bucket.Inflows),
			Outflows: h.printer.Sprintf("$%.2f", bucket.Outflows),
			Net:      h.printer.Sprintf("$%.2f", bucket.Inflows-bucket.Outflows),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"summary": rows})
}

// fetch collapses concurrent recomputations of the same window.
func (h *Handler) fetch(ctx context.Context, filter RollupFilter) ([]PeriodBucket, error) {
	key := filter.From.Format("2006-01-02") + ":" + filter.To.Format("2006-01-02")
	result := h.group.DoChan(key, func() (interface{}, error) {
		return h.service.GetMonthlyRollup(ctx, filter)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]PeriodBucket), nil
	}
}

func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (RollupFilter, bool) {
	var filter RollupFilter
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return filter, false
		}
		filter.From = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return filter, false
		}
		filter.To = parsed
	}
	return filter, true
}
