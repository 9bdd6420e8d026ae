// Package email is the notification sink. It validates and logs outgoing
// customer mail; actual delivery is simulated with a short latency.
package email

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"net/mail"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Message is the body of POST /send.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Handler struct {
	logger *slog.Logger
	sent   metric.Int64Counter
	delay  func() time.Duration
}

func NewHandler(logger *slog.Logger) (*Handler, error) {
	sent, err := otel.Meter("email").Int64Counter("email.sent",
		metric.WithDescription("Notification emails accepted for delivery"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		logger: logger,
		sent:   sent,
		delay: func() time.Duration {
			return time.Duration(50+rand.Intn(151)) * time.Millisecond
		},
	}, nil
}

type Router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

func (h *Handler) Register(mux Router) {
	mux.HandleFunc("POST /send", h.HandleSend)
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg.To == "" {
		h.writeError(w, http.StatusBadRequest, "missing recipient")
		return
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid recipient address")
		return
	}
	if msg.Subject == "" {
		h.writeError(w, http.StatusBadRequest, "missing subject")
		return
	}

	select {
	case <-time.After(h.delay()):
	case <-r.Context().Done():
		h.writeError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}

	h.sent.Add(r.Context(), 1)
	h.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
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
