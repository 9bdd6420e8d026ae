package email

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_HandleSend(t *testing.T) {
	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	h.delay = func() time.Duration { return 0 }

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"to":"ana@example.com","subject":"Order shipped","body":"on its way"}`, http.StatusOK},
		{"missing recipient", `{"subject":"Order shipped"}`, http.StatusBadRequest},
		{"bad recipient", `{"to":"not-an-address","subject":"Order shipped"}`, http.StatusBadRequest},
		{"missing subject", `{"to":"ana@example.com"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.HandleSend(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
