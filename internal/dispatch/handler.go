package dispatch

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

// ActorHeader carries the id of the user performing a dispatch action.
const ActorHeader = "X-Actor-ID"

// Router is satisfied by *http.ServeMux and telemetry.RouteMux.
type Router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

type Handler struct {
	sessions *Sessions
	logger   *slog.Logger
}

func NewHandler(sessions *Sessions, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger,
	}
}

// Register mounts the dispatch routes on mux.
func (h *Handler) Register(mux Router) {
	mux.HandleFunc("POST /vendors/{vendorId}/queue/refresh", h.HandleRefresh)
	mux.HandleFunc("GET /vendors/{vendorId}/queue", h.HandleQueue)
	mux.HandleFunc("POST /vendors/{vendorId}/queue/next", h.HandleDispatchNext)
	mux.HandleFunc("POST /vendors/{vendorId}/queue/orders/{orderId}/dispatch", h.HandleDispatchOrder)
	mux.HandleFunc("PATCH /orders/{orderId}/items/{itemId}/status", h.HandleItemStatus)
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	vendorID := r.PathValue("vendorId")
	if vendorID == "" {
		h.writeError(w, http.StatusBadRequest, "missing vendor id")
		return
	}

	ctrl := h.sessions.For(vendorID)
	if _, err := ctrl.Refresh(r.Context(), vendorID); err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ctrl.Snapshot(vendorID))
}

func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	vendorID := r.PathValue("vendorId")
	if vendorID == "" {
		h.writeError(w, http.StatusBadRequest, "missing vendor id")
		return
	}

	h.writeJSON(w, http.StatusOK, h.sessions.For(vendorID).Snapshot(vendorID))
}

type dispatchResponse struct {
	Dispatched bool         `json:"dispatched"`
	Order      *QueuedOrder `json:"order,omitempty"`
}

func (h *Handler) HandleDispatchNext(w http.ResponseWriter, r *http.Request) {
	vendorID := r.PathValue("vendorId")
	if vendorID == "" {
		h.writeError(w, http.StatusBadRequest, "missing vendor id")
		return
	}

	next, err := h.sessions.For(vendorID).DispatchNext(r.Context(), vendorID, actor(r, vendorID))
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, dispatchResponse{Dispatched: next != nil, Order: next})
}

func (h *Handler) HandleDispatchOrder(w http.ResponseWriter, r *http.Request) {
	vendorID := r.PathValue("vendorId")
	orderID := r.PathValue("orderId")
	if vendorID == "" || orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing vendor or order id")
		return
	}

	order, err := h.sessions.For(vendorID).DispatchSpecific(r.Context(), orderID, actor(r, vendorID))
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type itemStatusRequest struct {
	Status   domain.ItemStatus `json:"status"`
	VendorID string            `json:"vendor_id"`
}

// HandleItemStatus changes one line item on behalf of a vendor. The vendor is
// taken from the body, falling back to the actor header.
func (h *Handler) HandleItemStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	itemID := r.PathValue("itemId")
	if orderID == "" || itemID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order or item id")
		return
	}

	var req itemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vendorID := req.VendorID
	if vendorID == "" {
		vendorID = r.Header.Get(ActorHeader)
	}
	if vendorID == "" {
		h.writeError(w, http.StatusBadRequest, "missing vendor id")
		return
	}

	order, err := h.sessions.For(vendorID).UpdateItemStatus(r.Context(), orderID, itemID, vendorID, req.Status)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func actor(r *http.Request, fallback string) string {
	if id := r.Header.Get(ActorHeader); id != "" {
		return id
	}
	return fallback
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	var storeErr *StoreError
	switch {
	case errors.Is(err, ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrItemNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, ErrForbidden):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidStatus):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrOrderCancelled):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &storeErr):
		h.writeError(w, http.StatusInternalServerError, "order store unavailable")
	default:
		h.logger.Error("unexpected dispatch error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
