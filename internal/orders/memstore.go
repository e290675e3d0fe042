package orders

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore はデモモード・テスト用のインメモリ注文カタログ。
type MemStore struct {
	mu     sync.RWMutex
	orders []Order
	nextID int64
}

func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

// Put は注文を投入する（シード用）。OrderID は採番し直す。
func (s *MemStore) Put(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.OrderID = s.nextID
	s.nextID++
	for i := range o.Items {
		o.Items[i].OrderItemID = int64(i + 1)
	}
	s.orders = append(s.orders, o)
}

// SeedDemo はデモ環境のサンプル注文を投入する
func (s *MemStore) SeedDemo(now time.Time) {
	s.Put(Order{
		OrderULID:     "01JDEMO0ORDER0000000000001",
		OrderNumber:   "ORD-2024-001",
		CustomerName:  "田中 太郎",
		CustomerEmail: "tanaka@example.com",
		CustomerPhone: "090-0000-0001",
		Status:        StatusDelivered,
		TotalAmount:   1200,
		CreatedAt:     now.Add(-5 * 24 * time.Hour),
		Items: []OrderItem{
			{ItemULID: "01JDEMO0ITEM00000000000001", Name: "Laptop", Quantity: 1, UnitPrice: 1200},
		},
	})
	s.Put(Order{
		OrderULID:     "01JDEMO0ORDER0000000000002",
		OrderNumber:   "ORD-2024-002",
		CustomerName:  "鈴木 花子",
		CustomerEmail: "suzuki@example.com",
		CustomerPhone: "090-0000-0002",
		Status:        StatusDelivered,
		TotalAmount:   180,
		CreatedAt:     now.Add(-12 * 24 * time.Hour),
		Items: []OrderItem{
			{ItemULID: "01JDEMO0ITEM00000000000002", Name: "Wireless Mouse", Quantity: 2, UnitPrice: 40},
			{ItemULID: "01JDEMO0ITEM00000000000003", Name: "USB-C Hub", Quantity: 1, UnitPrice: 100},
		},
	})
	// 対象外: 配達前
	s.Put(Order{
		OrderULID:     "01JDEMO0ORDER0000000000003",
		OrderNumber:   "ORD-2024-003",
		CustomerName:  "佐藤 次郎",
		CustomerEmail: "sato@example.com",
		Status:        StatusShipped,
		TotalAmount:   560,
		CreatedAt:     now.Add(-2 * 24 * time.Hour),
		Items: []OrderItem{
			{ItemULID: "01JDEMO0ITEM00000000000004", Name: "Monitor 27\"", Quantity: 2, UnitPrice: 280},
		},
	})
	// 対象外: 30日窓の外
	s.Put(Order{
		OrderULID:     "01JDEMO0ORDER0000000000004",
		OrderNumber:   "ORD-2023-917",
		CustomerName:  "高橋 三奈",
		CustomerEmail: "takahashi@example.com",
		Status:        StatusDelivered,
		TotalAmount:   75,
		CreatedAt:     now.Add(-45 * 24 * time.Hour),
		Items: []OrderItem{
			{ItemULID: "01JDEMO0ITEM00000000000005", Name: "Keyboard", Quantity: 1, UnitPrice: 75},
		},
	})
}

func cloneOrder(o Order) Order {
	cp := o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return cp
}

func (s *MemStore) GetByULID(ctx context.Context, ulid string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.orders {
		if s.orders[i].OrderULID == ulid {
			cp := cloneOrder(s.orders[i])
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemStore) List(ctx context.Context, p Page) ([]Order, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0, len(s.orders))
	for i := range s.orders {
		out = append(out, cloneOrder(s.orders[i]))
	}
	asc := strings.ToLower(p.Order) == "asc"
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := int64(len(out))
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset >= len(out) {
		return nil, total, nil
	}
	end := p.Offset + p.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[p.Offset:end], total, nil
}

func (s *MemStore) ListDeliveredSince(ctx context.Context, cutoff time.Time) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Order
	for i := range s.orders {
		o := s.orders[i]
		if o.Status != StatusDelivered {
			continue
		}
		if o.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
