package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

// ActorHeader carries the id of the user performing an order action.
const ActorHeader = "X-Actor-ID"

// Router is satisfied by *http.ServeMux and telemetry.RouteMux.
type Router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

type Handler struct {
	svc           *Service
	logger        *slog.Logger
	ordersPlaced  metric.Int64Counter
	cancellations metric.Int64Counter
}

func NewHandler(svc *Service, logger *slog.Logger) (*Handler, error) {
	meter := otel.Meter("orders")

	ordersPlaced, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders accepted at checkout"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	cancellations, err := meter.Int64Counter("orders.cancelled",
		metric.WithDescription("Orders cancelled by customers or admins"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		svc:           svc,
		logger:        logger,
		ordersPlaced:  ordersPlaced,
		cancellations: cancellations,
	}, nil
}

func (h *Handler) Register(mux Router) {
	mux.HandleFunc("POST /orders", h.HandleCreate)
	mux.HandleFunc("GET /orders", h.HandleList)
	mux.HandleFunc("GET /orders/{id}", h.HandleGet)
	mux.HandleFunc("PATCH /orders/{id}/status", h.HandleUpdateStatus)
	mux.HandleFunc("POST /orders/{id}/cancel", h.HandleCancel)
	mux.HandleFunc("DELETE /orders/{id}", h.HandleDelete)
	mux.HandleFunc("GET /vendors/{vendorId}/orders", h.HandleVendorOrders)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.Checkout(r.Context(), req)
	if err != nil {
		h.writeFailure(w, err, "failed to create order")
		return
	}

	h.ordersPlaced.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("delivery.type", string(order.DeliveryType)),
	))
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err, "failed to get order")
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.List(r.Context(), r.URL.Query().Get("customer_id"))
	if err != nil {
		h.writeFailure(w, err, "failed to list orders")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.SetStatus(r.Context(), id, req.Status, r.Header.Get(ActorHeader))
	if err != nil {
		h.writeFailure(w, err, "failed to update order status")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.svc.Cancel(r.Context(), id, r.Header.Get(ActorHeader))
	if err != nil {
		h.writeFailure(w, err, "failed to cancel order")
		return
	}

	h.cancellations.Add(r.Context(), 1)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeFailure(w, err, "failed to delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleVendorOrders(w http.ResponseWriter, r *http.Request) {
	vendorID := r.PathValue("vendorId")
	if vendorID == "" {
		h.writeError(w, http.StatusBadRequest, "missing vendor id")
		return
	}

	status := domain.ItemStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		h.writeError(w, http.StatusBadRequest, "invalid item status")
		return
	}

	view, err := h.svc.Vendor(r.Context(), vendorID, status)
	if err != nil {
		h.writeFailure(w, err, "failed to list vendor orders")
		return
	}

	h.logger.Info("vendor orders listed", "vendor_id", vendorID, "count", len(view.Orders))
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidStatus):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidState):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, "error", err)
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
