package returns

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"ATLAS-backend/internal/orders"
	"ATLAS-backend/internal/platform/cache"
)

// ===== Error model (orders/settings と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// OrderSource は注文カタログへの読み取り口。
// orders.Store がそのまま満たす（書き込みメソッドはここには出さない）。
type OrderSource interface {
	GetByULID(ctx context.Context, ulid string) (*orders.Order, error)
	ListDeliveredSince(ctx context.Context, cutoff time.Time) ([]orders.Order, error)
}

// Notifier はステータス変更通知のフック。nil なら通知なし。
type Notifier interface {
	ReturnStatusChanged(ctx context.Context, r ReturnResponse)
}

// ===== Service本体 =====

type Service struct {
	store    Store
	catalog  OrderSource
	clock    Clock
	id       IDGen
	cache    *cache.Client
	notifier Notifier
}

func NewService(store Store, catalog OrderSource, c *cache.Client, n Notifier) *Service {
	return &Service{
		store:    store,
		catalog:  catalog,
		clock:    realClock{},
		id:       ulidGen{},
		cache:    c,
		notifier: n,
	}
}

// 返品作成。注文・顧客情報は注文からコピーし、refund_amount は明細合計で確定する。
func (s *Service) Create(ctx context.Context, req CreateReturnRequest, idemKey string) (*ReturnResponse, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, ErrInvalid("reason is required")
	}
	if len(req.Items) == 0 {
		return nil, ErrInvalid("at least one item is required")
	}
	for i, it := range req.Items {
		if it.Quantity < 1 {
			return nil, ErrInvalid(fmt.Sprintf("items[%d]: quantity must be >= 1", i))
		}
		if it.RefundAmount < 0 || math.IsNaN(it.RefundAmount) {
			return nil, ErrInvalid(fmt.Sprintf("items[%d]: refund_amount must be >= 0", i))
		}
		if it.Condition != "" && !validCondition(it.Condition) {
			return nil, ErrInvalid(fmt.Sprintf("items[%d]: condition must be new, used or damaged", i))
		}
	}

	// Idempotency-Key が既知なら作成済みの返品をそのまま返す
	if prev, ok := s.cache.LookupIdempotency(ctx, idemKey); ok {
		return s.Get(ctx, prev)
	}

	order, err := s.catalog.GetByULID(ctx, req.OrderULID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound("order not found")
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	r := &Return{
		ReturnULID:    idStr,
		OrderULID:     order.OrderULID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		Reason:        req.Reason,
		Status:        StatusPending,
		// 作成時点では明細のconditionに関わらず restock。実際の処分は倉庫検品後に決まる
		Disposition: DispositionRestock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Notes != nil && *req.Notes != "" {
		r.Notes = sql.NullString{String: *req.Notes, Valid: true}
	}

	var total float64
	for _, in := range req.Items {
		itemID, err := s.id.New()
		if err != nil {
			return nil, err
		}
		cond := in.Condition
		if cond == "" {
			cond = ConditionNew
		}
		it := ReturnItem{
			ItemULID:      itemID,
			OrderItemULID: in.OrderItemULID,
			Name:          in.Name,
			Quantity:      in.Quantity,
			Condition:     cond,
			RefundAmount:  in.RefundAmount,
		}
		if in.Reason != nil && *in.Reason != "" {
			it.Reason = sql.NullString{String: *in.Reason, Valid: true}
		}
		total += in.RefundAmount
		r.Items = append(r.Items, it)
	}
	r.RefundAmount = total

	if err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}

	// 記録に失敗した/別リクエストに先を越された場合はそちらの結果を正とする
	if winner, first := s.cache.RememberIdempotency(ctx, idemKey, r.ReturnULID); !first {
		return s.Get(ctx, winner)
	}

	resp := buildReturnResponse(r)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, ulid string) (*ReturnResponse, error) {
	if ulid == "" {
		return nil, ErrInvalid("return_ulid is required")
	}
	r, err := s.store.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}
	resp := buildReturnResponse(r)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, f Filter, p Page) ([]ReturnResponse, int64, error) {
	if f.Status != nil && !validStatus(*f.Status) {
		return nil, 0, ErrInvalid("unknown status: " + *f.Status)
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ReturnResponse, 0, len(rows))
	for i := range rows {
		out = append(out, buildReturnResponse(&rows[i]))
	}
	return out, total, nil
}

// 承認。actor（操作者ID）必須。
func (s *Service) Approve(ctx context.Context, ulid, actor string) (*ReturnResponse, error) {
	return s.transition(ctx, ulid, StatusApproved, actor, nil)
}

// 却下。理由必須で notes に記録する。
func (s *Service) Reject(ctx context.Context, ulid, actor, reason string) (*ReturnResponse, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrInvalid("reason is required")
	}
	return s.transition(ctx, ulid, StatusRejected, actor, &reason)
}

// 完了。前状態が approved かどうかは確認しない。
func (s *Service) Complete(ctx context.Context, ulid, actor string) (*ReturnResponse, error) {
	return s.transition(ctx, ulid, StatusCompleted, actor, nil)
}

func (s *Service) transition(ctx context.Context, ulid, status, actor string, notes *string) (*ReturnResponse, error) {
	if ulid == "" {
		return nil, ErrInvalid("return_ulid is required")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, ErrInvalid("actor is required")
	}

	now := s.clock.Now()
	r, err := s.store.UpdateStatus(ctx, ulid, StatusUpdate{
		Status:      status,
		ProcessedBy: actor,
		ProcessedAt: now,
		Notes:       notes,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	resp := buildReturnResponse(r)
	if s.notifier != nil {
		s.notifier.ReturnStatusChanged(ctx, resp)
	}
	return &resp, nil
}

// 削除。対象がなくてもエラーにしない（リトライ安全にするため）。
func (s *Service) Delete(ctx context.Context, ulid string) error {
	if ulid == "" {
		return ErrInvalid("return_ulid is required")
	}
	deleted, err := s.store.Delete(ctx, ulid)
	if err != nil {
		return err
	}
	if !deleted {
		log.Printf("[WARN] delete requested for unknown return: %s", ulid)
	}
	return nil
}

// 返品受付可能な注文: 配達済みかつ作成から30日以内（境界は含む）
func (s *Service) EligibleOrders(ctx context.Context) ([]orders.OrderResponse, error) {
	cutoff := s.clock.Now().Add(-orders.ReturnWindow)
	rows, err := s.catalog.ListDeliveredSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	out := make([]orders.OrderResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDTO())
	}
	return out, nil
}

// ダッシュボード集計。保存せず都度導出する。
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	// 0件のステータスもキーとして返す（カード表示側で欠損判定させない）
	full := make(map[string]int64, len(Statuses))
	var total int64
	for _, st := range Statuses {
		full[st] = counts[st]
		total += counts[st]
	}

	all, err := s.store.SumRefunds(ctx, "")
	if err != nil {
		return nil, err
	}
	completed, err := s.store.SumRefunds(ctx, StatusCompleted)
	if err != nil {
		return nil, err
	}

	return &StatsResponse{
		Total:            total,
		CountByStatus:    full,
		TotalRefunds:     all,
		CompletedRefunds: completed,
	}, nil
}
