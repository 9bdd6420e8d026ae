package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
	"github.com/joao-fontenele/storefront-dispatch/internal/email"
)

func (h *Handler) reserveStock(ctx context.Context, items []domain.LineItem) ([]domain.LineItem, error) {
	var reserved []domain.LineItem

	for _, item := range items {
		status, err := h.moveStock(ctx, "reserve", item)
		if err != nil {
			return reserved, err
		}

		if status == http.StatusConflict {
			return reserved, fmt.Errorf("insufficient stock for item %s", item.ID)
		}
		if status != http.StatusOK {
			return reserved, fmt.Errorf("inventory service returned status %d for item %s", status, item.ID)
		}

		reserved = append(reserved, item)
	}

	return reserved, nil
}

// releaseStock is best effort. Failures are logged and the remaining items
// are still released.
func (h *Handler) releaseStock(ctx context.Context, items []domain.LineItem) {
	for _, item := range items {
		status, err := h.moveStock(ctx, "release", item)
		if err != nil {
			h.logger.Error("failed to release stock", "error", err, "item_id", item.ID)
			continue
		}
		if status != http.StatusOK {
			h.logger.Error("failed to release stock", "status", status, "item_id", item.ID)
		}
	}
}

func (h *Handler) moveStock(ctx context.Context, op string, item domain.LineItem) (int, error) {
	endpoint := fmt.Sprintf("%s/stock/%s/%s", h.urls.Inventory, url.PathEscape(item.ID), op)
	resp, err := h.do(ctx, http.MethodPost, endpoint, map[string]int{"quantity": item.Quantity}, nil)
	if err != nil {
		return 0, fmt.Errorf("%s stock for item %s: %w", op, item.ID, err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func (h *Handler) sendEmail(ctx context.Context, msg email.Message) error {
	if msg.To == "" {
		h.logger.Warn("no recipient for email", "subject", msg.Subject)
		return nil
	}

	resp, err := h.do(ctx, http.MethodPost, h.urls.Email+"/send", msg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}
	return nil
}

func (h *Handler) updateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	endpoint := fmt.Sprintf("%s/orders/%s/status", h.urls.Orders, url.PathEscape(orderID))
	header := http.Header{"X-Actor-ID": {Actor}}

	resp, err := h.do(ctx, http.MethodPatch, endpoint, map[string]string{"status": string(status)}, header)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orders service returned status %d", resp.StatusCode)
	}
	return nil
}

func (h *Handler) do(ctx context.Context, method, endpoint string, body any, header http.Header) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	return h.httpClient.Do(req)
}
