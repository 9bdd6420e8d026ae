package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Handler struct {
	stock     Stock
	logger    *slog.Logger
	movements metric.Int64Counter
}

func NewHandler(stock Stock, logger *slog.Logger) (*Handler, error) {
	movements, err := otel.Meter("inventory").Int64Counter("inventory.stock.movements",
		metric.WithDescription("Units reserved or released"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		stock:     stock,
		logger:    logger,
		movements: movements,
	}, nil
}

type Router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

func (h *Handler) Register(mux Router) {
	mux.HandleFunc("GET /stock", h.HandleListStock)
	mux.HandleFunc("GET /stock/{productId}", h.HandleGetStock)
	mux.HandleFunc("POST /stock/{productId}/reserve", h.HandleReserve)
	mux.HandleFunc("POST /stock/{productId}/release", h.HandleRelease)
}

func (h *Handler) HandleListStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.stock.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list stock", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if vendorID := r.URL.Query().Get("vendor_id"); vendorID != "" {
		filtered := levels[:0]
		for _, level := range levels {
			if level.VendorID == vendorID {
				filtered = append(filtered, level)
			}
		}
		levels = filtered
	}

	h.logger.Info("stock listed", "count", len(levels))
	h.writeJSON(w, http.StatusOK, levels)
}

func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	stock, err := h.stock.GetStock(r.Context(), productID)
	if err != nil {
		h.logger.Error("failed to get stock", "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if stock == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, stock)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, "reserve", h.stock.Reserve)
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, "release", h.stock.Release)
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request, op string, move func(ctx context.Context, productID string, quantity int) error) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		h.writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	stock, err := h.stock.GetStock(r.Context(), productID)
	if err != nil {
		h.logger.Error("failed to get stock", "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if stock == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := move(r.Context(), productID, req.Quantity); err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrInsufficientReserved) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to "+op+" stock", "error", err, "product_id", productID, "quantity", req.Quantity)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	stock, err = h.stock.GetStock(r.Context(), productID)
	if err != nil {
		h.logger.Error("failed to get updated stock", "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.movements.Add(r.Context(), int64(req.Quantity), metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("vendor.id", stock.VendorID),
	))
	h.logger.Info("stock "+op+"d", "product_id", productID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, stock)
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
