// Package gateway is the single public entry point of the storefront. It
// routes customer, vendor and admin calls to the orders, dispatch and
// inventory services.
package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Router is satisfied by *http.ServeMux and telemetry.RouteMux.
type Router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

// Upstreams groups the proxies for each backing service.
type Upstreams struct {
	Orders    *ServiceProxy
	Dispatch  *ServiceProxy
	Inventory *ServiceProxy
}

type Handler struct {
	upstreams Upstreams
	logger    *slog.Logger
}

func NewHandler(upstreams Upstreams, logger *slog.Logger) *Handler {
	return &Handler{
		upstreams: upstreams,
		logger:    logger,
	}
}

func (h *Handler) Register(mux Router) {
	mux.HandleFunc("GET /orders", h.HandleOrders)
	mux.HandleFunc("POST /orders", h.HandleOrders)
	mux.HandleFunc("GET /orders/{id}", h.HandleOrders)
	mux.HandleFunc("DELETE /orders/{id}", h.HandleOrders)
	mux.HandleFunc("PATCH /orders/{id}/status", h.HandleOrders)
	mux.HandleFunc("POST /orders/{id}/cancel", h.HandleOrders)
	mux.HandleFunc("GET /vendors/{vendorId}/orders", h.HandleOrders)

	mux.HandleFunc("GET /vendors/{vendorId}/queue", h.HandleDispatch)
	mux.HandleFunc("POST /vendors/{vendorId}/queue/refresh", h.HandleDispatch)
	mux.HandleFunc("POST /vendors/{vendorId}/queue/next", h.HandleDispatch)
	mux.HandleFunc("POST /vendors/{vendorId}/queue/orders/{orderId}/dispatch", h.HandleDispatch)
	mux.HandleFunc("PATCH /orders/{orderId}/items/{itemId}/status", h.HandleDispatch)

	mux.HandleFunc("GET /inventory/stock", h.HandleInventory)
	mux.HandleFunc("GET /inventory/stock/{productId}", h.HandleInventory)
	mux.HandleFunc("POST /inventory/stock/{productId}/reserve", h.HandleInventory)
	mux.HandleFunc("POST /inventory/stock/{productId}/release", h.HandleInventory)
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.upstreams.Orders, r.URL.Path)
}

func (h *Handler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.upstreams.Dispatch, r.URL.Path)
}

func (h *Handler) HandleInventory(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/inventory")
	h.proxyRequest(w, r, h.upstreams.Inventory, path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
