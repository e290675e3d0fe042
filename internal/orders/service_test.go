package orders

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)

func seededService(t *testing.T) *Service {
	t.Helper()
	store := NewMemStore()
	store.SeedDemo(testNow)
	return NewService(store)
}

func TestGet(t *testing.T) {
	svc := seededService(t)

	o, err := svc.Get(context.Background(), "01JDEMO0ORDER0000000000001")
	if err != nil {
		t.Fatal(err)
	}
	if o.OrderNumber != "ORD-2024-001" || o.Status != StatusDelivered {
		t.Errorf("unexpected order: %+v", o)
	}
	if len(o.Items) != 1 || o.Items[0].Name != "Laptop" || o.Items[0].UnitPrice != 1200 {
		t.Errorf("unexpected items: %+v", o.Items)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := seededService(t)

	_, err := svc.Get(context.Background(), "01NOSUCHORDER0000000000000")
	var api *APIError
	if !errors.As(err, &api) || api.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestList_DefaultNewestFirst(t *testing.T) {
	svc := seededService(t)

	rows, total, err := svc.List(context.Background(), Page{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(rows) != 4 {
		t.Fatalf("expected 4 orders, got total=%d len=%d", total, len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].CreatedAt.After(rows[i-1].CreatedAt) {
			t.Errorf("expected newest first at index %d", i)
		}
	}
}

func TestList_Paging(t *testing.T) {
	svc := seededService(t)
	ctx := context.Background()

	rows, total, err := svc.List(ctx, Page{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(rows) != 2 {
		t.Fatalf("expected total 4 with 2 rows, got total=%d len=%d", total, len(rows))
	}

	rows2, _, err := svc.List(ctx, Page{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows2) != 2 {
		t.Fatalf("expected 2 rows on second page, got %d", len(rows2))
	}
	if rows[0].OrderULID == rows2[0].OrderULID {
		t.Error("pages must not overlap")
	}

	// 範囲外オフセットは空
	rows3, _, err := svc.List(ctx, Page{Offset: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows3) != 0 {
		t.Errorf("expected empty page, got %d", len(rows3))
	}
}

func TestListDeliveredSince(t *testing.T) {
	store := NewMemStore()
	store.SeedDemo(testNow)

	rows, err := store.ListDeliveredSince(context.Background(), testNow.Add(-ReturnWindow))
	if err != nil {
		t.Fatal(err)
	}
	// shipped と 45日前の注文は対象外
	if len(rows) != 2 {
		t.Fatalf("expected 2 delivered orders in window, got %d", len(rows))
	}
	for _, o := range rows {
		if o.Status != StatusDelivered {
			t.Errorf("expected delivered, got %s", o.Status)
		}
	}
}
