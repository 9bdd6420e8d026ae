package dispatch

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func order(id string, delivery domain.DeliveryType, age time.Duration, total float64) domain.Order {
	return domain.Order{
		ID:           id,
		DeliveryType: delivery,
		Total:        total,
		Status:       domain.OrderStatusPending,
		CreatedAt:    domain.NewTimestamp(testNow.Add(-age)),
	}
}

func assertHeap(t *testing.T, q *Queue) {
	t.Helper()
	for i := 1; i < len(q.items); i++ {
		parent := (i - 1) / 2
		if q.items[i].Priority > q.items[parent].Priority {
			t.Fatalf("heap violated at %d: %v > parent %v", i, q.items[i].Priority, q.items[parent].Priority)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		order domain.Order
		want  float64
	}{
		{"new normal", order("a", domain.DeliveryNormal, 0, 0), 100},
		{"new express", order("a", domain.DeliveryExpress, 0, 0), 1000},
		{"two hours old", order("a", domain.DeliveryNormal, 2*time.Hour, 0), 110},
		{"age capped", order("a", domain.DeliveryNormal, 48*time.Hour, 0), 150},
		{"value", order("a", domain.DeliveryExpress, 0, 550), 1005.5},
		{"value capped", order("a", domain.DeliveryExpress, 0, 10000), 1020},
		{"future timestamp", order("a", domain.DeliveryNormal, -time.Hour, 0), 100},
		{"both capped", order("a", domain.DeliveryNormal, 100*time.Hour, 5000), 170},
		{"unknown type scores as normal", order("a", "", 0, 0), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.order, testNow); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("missing created at counts as now", func(t *testing.T) {
		o := order("a", domain.DeliveryNormal, 0, 0)
		o.CreatedAt = domain.Timestamp{}
		if got := Score(o, testNow); got != 100 {
			t.Errorf("expected 100, got %v", got)
		}
	})
}

func TestScore_ExpressAlwaysOutranksNormal(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		express := order("e", domain.DeliveryExpress,
			time.Duration(r.Float64()*10*float64(time.Hour)), r.Float64()*2000)
		normal := order("n", domain.DeliveryNormal,
			time.Duration(r.Float64()*10*float64(time.Hour)), r.Float64()*2000)

		if Score(express, testNow) <= Score(normal, testNow) {
			t.Fatalf("normal %+v outranked express %+v", normal, express)
		}
	}
}

func TestQueue_DequeueOrder(t *testing.T) {
	q := NewQueue(clock)
	for i, p := range []float64{1000, 100, 1050, 900} {
		q.push(QueuedOrder{Order: domain.Order{ID: strconv.Itoa(i)}, Priority: p})
		assertHeap(t, q)
	}

	var got []float64
	for {
		item, ok := q.Dequeue()
		if !ok {
			break
		}
		got = append(got, item.Priority)
		assertHeap(t, q)
	}

	want := []float64{1050, 1000, 900, 100}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestQueue_HeapInvariantUnderRandomOperations(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	q := NewQueue(clock)

	for i := 0; i < 500; i++ {
		switch r.Intn(4) {
		case 0, 1:
			delivery := domain.DeliveryNormal
			if r.Intn(2) == 0 {
				delivery = domain.DeliveryExpress
			}
			q.Enqueue(order(strconv.Itoa(i), delivery,
				time.Duration(r.Intn(20))*time.Hour, float64(r.Intn(3000))))
		case 2:
			before, hadHead := q.Peek()
			got, ok := q.Dequeue()
			if ok != hadHead || (ok && got.Priority != before.Priority) {
				t.Fatalf("dequeue %v/%v disagrees with peek %v/%v", got.Priority, ok, before.Priority, hadHead)
			}
		case 3:
			if q.Len() > 0 {
				q.Remove(q.items[r.Intn(q.Len())].ID)
			}
		}
		assertHeap(t, q)
	}
}

func TestQueue_Empty(t *testing.T) {
	q := NewQueue(nil)

	if item, ok := q.Dequeue(); ok || item.ID != "" {
		t.Errorf("expected empty sentinel, got %+v, %v", item, ok)
	}
	if _, ok := q.Peek(); ok {
		t.Error("expected Peek to report empty")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
	express, normal := q.ByType()
	if express == nil || normal == nil || len(express)+len(normal) != 0 {
		t.Errorf("expected empty non-nil slices, got %v %v", express, normal)
	}
}

func TestQueue_Enqueue(t *testing.T) {
	q := NewQueue(clock)
	item := q.Enqueue(order("a", domain.DeliveryExpress, time.Hour, 100))

	if item.Priority != 1006 {
		t.Errorf("expected priority 1006, got %v", item.Priority)
	}
	if !item.QueuedAt.Equal(testNow) {
		t.Errorf("expected queued at %v, got %v", testNow, item.QueuedAt)
	}
	if head, _ := q.Peek(); head.ID != "a" {
		t.Errorf("expected a at head, got %s", head.ID)
	}
}

func TestQueue_ByType(t *testing.T) {
	q := NewQueue(clock)
	q.Enqueue(order("n-low", domain.DeliveryNormal, 0, 0))
	q.Enqueue(order("e-low", domain.DeliveryExpress, 0, 0))
	q.Enqueue(order("n-high", domain.DeliveryNormal, 5*time.Hour, 0))
	q.Enqueue(order("e-high", domain.DeliveryExpress, 0, 900))
	q.Enqueue(order("legacy", "", time.Hour, 0))

	express, normal := q.ByType()

	ids := func(items []QueuedOrder) []string {
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = item.ID
		}
		return out
	}

	if got := ids(express); len(got) != 2 || got[0] != "e-high" || got[1] != "e-low" {
		t.Errorf("unexpected express order %v", got)
	}
	if got := ids(normal); len(got) != 3 || got[0] != "n-high" || got[1] != "legacy" || got[2] != "n-low" {
		t.Errorf("unexpected normal order %v", got)
	}
	if q.Len() != 5 {
		t.Errorf("ByType must not drain the queue, length %d", q.Len())
	}
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue(clock)
	for i := 0; i < 10; i++ {
		q.Enqueue(order(strconv.Itoa(i), domain.DeliveryNormal, time.Duration(i)*time.Hour, 0))
	}

	if !q.Remove("9") {
		t.Fatal("expected head to be removed")
	}
	if q.Remove("9") {
		t.Error("second remove should report nothing removed")
	}
	if q.Len() != 9 {
		t.Errorf("expected 9 left, got %d", q.Len())
	}
	assertHeap(t, q)

	if head, _ := q.Peek(); head.ID != "8" {
		t.Errorf("expected 8 at head, got %s", head.ID)
	}
}

func TestQueue_Reset(t *testing.T) {
	q := NewQueue(clock)
	q.Enqueue(order("a", domain.DeliveryNormal, 0, 0))
	q.Reset()

	if q.Len() != 0 {
		t.Errorf("expected empty queue after reset, got %d", q.Len())
	}
}
