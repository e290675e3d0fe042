package orders

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store は注文カタログへの読み取り専用アクセス。
// 返品側はこのインターフェース越しに注文を参照するだけで、書き換えは行わない。
type Store interface {
	GetByULID(ctx context.Context, ulid string) (*Order, error) // 見つからなければ (nil, nil)
	List(ctx context.Context, p Page) ([]Order, int64, error)
	ListDeliveredSince(ctx context.Context, cutoff time.Time) ([]Order, error)
}

type SQLStore struct{ db *sql.DB }

func NewStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) GetByULID(ctx context.Context, ulid string) (*Order, error) {
	const q = `
	SELECT order_id, order_ulid, order_number, customer_name, customer_email, customer_phone,
	       status, total_amount, created_at
	FROM orders WHERE order_ulid = ?`

	var o Order
	err := s.db.QueryRowContext(ctx, q, ulid).Scan(
		&o.OrderID, &o.OrderULID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.Status, &o.TotalAmount, &o.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := s.loadItems(ctx, o.OrderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (s *SQLStore) loadItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	const q = `
	SELECT order_item_id, item_ulid, name, quantity, unit_price
	FROM order_items WHERE order_id = ? ORDER BY order_item_id`

	rows, err := s.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderItemID, &it.ItemULID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLStore) List(ctx context.Context, p Page) ([]Order, int64, error) {
	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := fmt.Sprintf(`
	SELECT order_id, order_ulid, order_number, customer_name, customer_email, customer_phone,
	       status, total_amount, created_at
	FROM orders ORDER BY created_at %s LIMIT ? OFFSET ?`, order)

	rows, err := s.db.QueryContext(ctx, q, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.OrderID, &o.OrderULID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.Status, &o.TotalAmount, &o.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListDeliveredSince: 配達済みかつ created_at >= cutoff の注文（境界は含む）。
// 返品フォームが明細を選べるよう items も付けて返す。
func (s *SQLStore) ListDeliveredSince(ctx context.Context, cutoff time.Time) ([]Order, error) {
	const q = `
	SELECT order_id, order_ulid, order_number, customer_name, customer_email, customer_phone,
	       status, total_amount, created_at
	FROM orders
	WHERE status = ? AND created_at >= ?
	ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, StatusDelivered, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.OrderID, &o.OrderULID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.Status, &o.TotalAmount, &o.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := s.loadItems(ctx, out[i].OrderID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}
