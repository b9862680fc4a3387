package archive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/archive/entity"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/httpx"
)

// Archiver runs the archival transition.
type Archiver interface {
	ArchiveDueOrders(ctx context.Context) (*entity.RunResult, error)
}

// Queries serves archive reads.
type Queries interface {
	ListArchiveDates(ctx context.Context) ([]calendar.LocalDate, error)
	ListArchiveDetail(ctx context.Context, date calendar.LocalDate) ([]entity.Entry, error)
	Zone() calendar.Zone
}

// Handler exposes the archive index, archive detail and the archival trigger.
type Handler struct {
	archiver Archiver
	queries  Queries
	logger   *zap.SugaredLogger
}

func NewHandler(a Archiver, q Queries, logger *zap.SugaredLogger) *Handler {
	return &Handler{archiver: a, queries: q, logger: logger}
}

// DateItem is one archive index row.
type DateItem struct {
	ArchiveDate string `json:"archiveDate"`
}

// DetailItem is one archived line.
type DetailItem struct {
	ItemName  string `json:"itemName"`
	Quantity  int    `json:"quantity"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
}

// RunResponse answers the archival trigger.
type RunResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	MovedCount int64  `json:"movedCount"`
}

// Archives serves GET /archives; a ?day= parameter switches to the detail view.
func (h *Handler) Archives(w http.ResponseWriter, r *http.Request) {
	if day := r.URL.Query().Get("day"); day != "" {
		h.detail(w, r, day)
		return
	}
	dates, err := h.queries.ListArchiveDates(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, "list archive dates", err)
		return
	}
	out := make([]DateItem, 0, len(dates))
	for _, d := range dates {
		out = append(out, DateItem{ArchiveDate: d.Display()})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Detail serves GET /archives/{date}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, r.PathValue("date"))
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request, raw string) {
	date, err := calendar.ParseDate(raw)
	if err != nil {
		httpx.WriteError(w, h.logger, "list archive detail", ErrMissingDate)
		return
	}
	entries, err := h.queries.ListArchiveDetail(r.Context(), date)
	if err != nil {
		httpx.WriteError(w, h.logger, "list archive detail", err)
		return
	}
	zone := h.queries.Zone()
	out := make([]DetailItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, DetailItem{
			ItemName:  e.ItemName,
			Quantity:  e.Quantity,
			Timestamp: zone.Local(e.CreatedAt).Format(time.RFC3339Nano),
			Username:  e.Username,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Run serves POST /archive-orders.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.archiver.ArchiveDueOrders(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, "archive orders", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, RunResponse{
		Success:    true,
		Message:    fmt.Sprintf("Archived %d order lines dated before %s.", res.MovedCount, res.Today.Display()),
		MovedCount: res.MovedCount,
	})
}
