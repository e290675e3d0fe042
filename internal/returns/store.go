package returns

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	pfdb "ATLAS-backend/internal/platform/db"
)

// Store は返品コレクションへの操作をまとめたもの。
// プロセス全体で1つだけ生成し、Service に渡して使う。
// 実装はMySQL（SQLStore）とインメモリ（MemStore）の2つ。
type Store interface {
	Insert(ctx context.Context, r *Return) error
	GetByULID(ctx context.Context, ulid string) (*Return, error)
	List(ctx context.Context, f Filter, p Page) ([]Return, int64, error)
	UpdateStatus(ctx context.Context, ulid string, upd StatusUpdate) (*Return, error)
	Delete(ctx context.Context, ulid string) (bool, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	SumRefunds(ctx context.Context, status string) (float64, error) // status空なら全件
}

type SQLStore struct{ db *sql.DB }

func NewStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// Insert: 返品本体と明細を1トランザクションで書き込む
func (s *SQLStore) Insert(ctx context.Context, r *Return) error {
	return pfdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx pfdb.DBTX) error {
		const q = `
		INSERT INTO return_requests
		(return_ulid, order_ulid, order_number, customer_name, customer_email, customer_phone,
		 reason, status, disposition, refund_amount, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		res, err := tx.ExecContext(ctx, q,
			r.ReturnULID, r.OrderULID, r.OrderNumber, r.CustomerName, r.CustomerEmail, r.CustomerPhone,
			r.Reason, r.Status, r.Disposition, r.RefundAmount, nullStrOrNil(r.Notes),
			r.CreatedAt, r.UpdatedAt,
		)
		if err != nil {
			return err
		}
		id, _ := res.LastInsertId()
		r.ReturnID = id

		const iq = `
		INSERT INTO return_items
		(item_ulid, return_id, order_item_ulid, name, quantity, item_condition, reason, refund_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

		for i := range r.Items {
			it := &r.Items[i]
			ires, err := tx.ExecContext(ctx, iq,
				it.ItemULID, r.ReturnID, it.OrderItemULID, it.Name, it.Quantity,
				it.Condition, nullStrOrNil(it.Reason), it.RefundAmount,
			)
			if err != nil {
				return err
			}
			iid, _ := ires.LastInsertId()
			it.ReturnItemID = iid
		}
		return nil
	})
}

const returnColumns = `
	return_id, return_ulid, order_ulid, order_number, customer_name, customer_email, customer_phone,
	reason, status, disposition, refund_amount, notes, processed_by, processed_at, created_at, updated_at`

func scanReturn(row interface{ Scan(dest ...any) error }) (*Return, error) {
	var r Return
	err := row.Scan(
		&r.ReturnID, &r.ReturnULID, &r.OrderULID, &r.OrderNumber,
		&r.CustomerName, &r.CustomerEmail, &r.CustomerPhone,
		&r.Reason, &r.Status, &r.Disposition, &r.RefundAmount,
		&r.Notes, &r.ProcessedBy, &r.ProcessedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLStore) GetByULID(ctx context.Context, ulid string) (*Return, error) {
	q := `SELECT` + returnColumns + ` FROM return_requests WHERE return_ulid = ?`
	r, err := scanReturn(s.db.QueryRowContext(ctx, q, ulid))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound("return not found")
		}
		return nil, err
	}

	items, err := s.loadItems(ctx, r.ReturnID)
	if err != nil {
		return nil, err
	}
	r.Items = items
	return r, nil
}

func (s *SQLStore) loadItems(ctx context.Context, returnID int64) ([]ReturnItem, error) {
	const q = `
	SELECT return_item_id, item_ulid, order_item_ulid, name, quantity, item_condition, reason, refund_amount
	FROM return_items WHERE return_id = ? ORDER BY return_item_id`

	rows, err := s.db.QueryContext(ctx, q, returnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ReturnItem
	for rows.Next() {
		var it ReturnItem
		if err := rows.Scan(
			&it.ReturnItemID, &it.ItemULID, &it.OrderItemULID, &it.Name,
			&it.Quantity, &it.Condition, &it.Reason, &it.RefundAmount,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLStore) List(ctx context.Context, f Filter, p Page) ([]Return, int64, error) {
	where, args := buildWhere(f)

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

	// created_at が同時刻でも挿入の逆順（新しい順）が安定するよう return_id を添える
	q := fmt.Sprintf(`SELECT`+returnColumns+` FROM return_requests %s ORDER BY created_at %s, return_id %s LIMIT ? OFFSET ?`,
		where, order, order)
	argsQ := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, q, argsQ...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Return
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	cq := `SELECT COUNT(*) FROM return_requests ` + where
	if err := s.db.QueryRowContext(ctx, cq, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	for i := range out {
		items, err := s.loadItems(ctx, out[i].ReturnID)
		if err != nil {
			return nil, 0, err
		}
		out[i].Items = items
	}
	return out, total, nil
}

func buildWhere(f Filter) (string, []any) {
	sb := strings.Builder{}
	sb.WriteString(`WHERE 1=1`)
	args := []any{}
	if f.Status != nil {
		sb.WriteString(` AND status = ?`)
		args = append(args, *f.Status)
	}
	if f.OrderNumber != nil {
		sb.WriteString(` AND order_number = ?`)
		args = append(args, *f.OrderNumber)
	}
	if f.From != nil {
		sb.WriteString(` AND created_at >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		sb.WriteString(` AND created_at < ?`)
		args = append(args, *f.To)
	}
	return sb.String(), args
}

func (s *SQLStore) UpdateStatus(ctx context.Context, ulid string, upd StatusUpdate) (*Return, error) {
	sb := strings.Builder{}
	sb.WriteString(`UPDATE return_requests SET status = ?, processed_by = ?, processed_at = ?, updated_at = ?`)
	args := []any{upd.Status, upd.ProcessedBy, upd.ProcessedAt, upd.UpdatedAt}
	if upd.Notes != nil {
		sb.WriteString(`, notes = ?`)
		args = append(args, *upd.Notes)
	}
	sb.WriteString(` WHERE return_ulid = ?`)
	args = append(args, ulid)

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return nil, err
	}
	// 対象なしはここで NOT_FOUND になる
	return s.GetByULID(ctx, ulid)
}

// Delete: 対象がなくてもエラーにしない（結果は false で返す）
func (s *SQLStore) Delete(ctx context.Context, ulid string) (bool, error) {
	var deleted bool
	err := pfdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx pfdb.DBTX) error {
		var returnID int64
		err := tx.QueryRowContext(ctx, `SELECT return_id FROM return_requests WHERE return_ulid = ?`, ulid).Scan(&returnID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM return_items WHERE return_id = ?`, returnID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM return_requests WHERE return_id = ?`, returnID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (s *SQLStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(Statuses))
	err := pfdb.ReadOnly(ctx, s.db, func(ctx context.Context, tx pfdb.DBTX) error {
		rows, err := tx.QueryContext(ctx, `SELECT status, COUNT(*) FROM return_requests GROUP BY status`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var st string
			var n int64
			if err := rows.Scan(&st, &n); err != nil {
				return err
			}
			counts[st] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *SQLStore) SumRefunds(ctx context.Context, status string) (float64, error) {
	q := `SELECT COALESCE(SUM(refund_amount),0) FROM return_requests`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	var sum float64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func nullStrOrNil(ns sql.NullString) any {
	if ns.Valid {
		return ns.String
	}
	return nil
}
