package order

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/order/entity"
)

// Orders is what the handler needs from the order service.
type Orders interface {
	SubmitOrder(ctx context.Context, username string, items []entity.ItemInput) (*entity.Submission, error)
	ListToday(ctx context.Context) ([]entity.OrderLine, error)
	Zone() calendar.Zone
}

// Handler exposes order submission and the today view.
type Handler struct {
	svc    Orders
	logger *zap.SugaredLogger
}

func NewHandler(svc Orders, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// ItemRequest is one requested item.
type ItemRequest struct {
	ItemName     string `json:"itemName" validate:"required"`
	ItemQuantity int    `json:"itemQuantity" validate:"gte=1"`
}

// SubmitRequest is the submit-order body.
type SubmitRequest struct {
	Username string        `json:"username"`
	Items    []ItemRequest `json:"items" validate:"dive"`
}

// TodayLine is one row of the today view.
type TodayLine struct {
	ID             int64  `json:"id"`
	ItemName       string `json:"itemName"`
	Quantity       int    `json:"quantity"`
	LocalTimestamp string `json:"localTimestamp"`
	Username       string `json:"username"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, "submit order", err)
		return
	}
	items := make([]entity.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, entity.ItemInput{Name: it.ItemName, Quantity: it.ItemQuantity})
	}
	sub, err := h.svc.SubmitOrder(r.Context(), req.Username, items)
	if err != nil {
		httpx.WriteError(w, h.logger, "submit order", err)
		return
	}
	h.logger.Infow("order submitted", "user_id", sub.UserID, "lines", len(sub.Lines), "local_date", sub.LocalDate.String())
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "Order submitted successfully!"})
}

func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.ListToday(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, "list today", err)
		return
	}
	zone := h.svc.Zone()
	out := make([]TodayLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, TodayLine{
			ID:             l.ID,
			ItemName:       l.ItemName,
			Quantity:       l.Quantity,
			LocalTimestamp: zone.Local(l.CreatedAt).Format(time.RFC3339Nano),
			Username:       l.Username,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
