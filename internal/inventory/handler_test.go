package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

type memoryStock struct {
	mu     sync.Mutex
	levels map[string]domain.StockLevel
	err    error
}

func newMemoryStock(levels ...domain.StockLevel) *memoryStock {
	m := &memoryStock{levels: map[string]domain.StockLevel{}}
	for _, l := range levels {
		m.levels[l.ProductID] = l
	}
	return m
}

func (m *memoryStock) ListAll(context.Context) ([]domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.StockLevel, 0, len(m.levels))
	for _, l := range m.levels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *memoryStock) GetStock(_ context.Context, productID string) (*domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	l, ok := m.levels[productID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *memoryStock) Reserve(_ context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.levels[productID]
	if l.Available < quantity {
		return ErrInsufficientStock
	}
	l.Available -= quantity
	l.Reserved += quantity
	m.levels[productID] = l
	return nil
}

func (m *memoryStock) Release(_ context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.levels[productID]
	if l.Reserved < quantity {
		return ErrInsufficientReserved
	}
	l.Available += quantity
	l.Reserved -= quantity
	m.levels[productID] = l
	return nil
}

func newTestMux(t *testing.T, stock Stock) *http.ServeMux {
	t.Helper()
	h, err := NewHandler(stock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func TestHandler_ReserveAndRelease(t *testing.T) {
	stock := newMemoryStock(domain.StockLevel{ProductID: "p1", VendorID: "v1", Available: 10})
	mux := newTestMux(t, stock)

	tests := []struct {
		name      string
		path      string
		body      string
		want      int
		available int
		reserved  int
	}{
		{"reserve", "/stock/p1/reserve", `{"quantity":4}`, http.StatusOK, 6, 4},
		{"reserve too many", "/stock/p1/reserve", `{"quantity":7}`, http.StatusConflict, 6, 4},
		{"release", "/stock/p1/release", `{"quantity":3}`, http.StatusOK, 9, 1},
		{"release too many", "/stock/p1/release", `{"quantity":2}`, http.StatusConflict, 9, 1},
		{"zero quantity", "/stock/p1/reserve", `{"quantity":0}`, http.StatusBadRequest, 9, 1},
		{"bad json", "/stock/p1/reserve", `{`, http.StatusBadRequest, 9, 1},
		{"unknown product", "/stock/p9/reserve", `{"quantity":1}`, http.StatusNotFound, 9, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}

			level, _ := stock.GetStock(context.Background(), "p1")
			if level.Available != tt.available || level.Reserved != tt.reserved {
				t.Errorf("expected %d/%d, got %d/%d", tt.available, tt.reserved, level.Available, level.Reserved)
			}
		})
	}
}

func TestHandler_ListStock(t *testing.T) {
	mux := newTestMux(t, newMemoryStock(
		domain.StockLevel{ProductID: "p1", VendorID: "v1", Available: 1},
		domain.StockLevel{ProductID: "p2", VendorID: "v2", Available: 2},
	))

	req := httptest.NewRequest(http.MethodGet, "/stock?vendor_id=v2", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var levels []domain.StockLevel
	if err := json.NewDecoder(rec.Body).Decode(&levels); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(levels) != 1 || levels[0].ProductID != "p2" {
		t.Errorf("expected only v2's product, got %+v", levels)
	}
}

func TestHandler_StoreError(t *testing.T) {
	stock := newMemoryStock()
	stock.err = errors.New("db down")
	mux := newTestMux(t, stock)

	for _, path := range []string{"/stock", "/stock/p1"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected 500, got %d", path, rec.Code)
		}
	}
}
