package returns

import (
	"database/sql"
	"time"
)

// Return は return_requests テーブルの1行＋明細を表す。
// 注文番号・顧客情報は作成時点のスナップショット（元の注文や顧客の変更は反映しない）。
type Return struct {
	ReturnID      int64
	ReturnULID    string
	OrderULID     string
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Reason        string
	Status        string
	Disposition   string
	RefundAmount  float64 // 作成時に明細の合計で確定。以後の明細編集では再計算しない
	Notes         sql.NullString
	ProcessedBy   sql.NullString
	ProcessedAt   sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []ReturnItem
}

// ReturnItem は return_items テーブルの1行を表す
type ReturnItem struct {
	ReturnItemID  int64
	ItemULID      string
	OrderItemULID string // 元注文明細への参照
	Name          string
	Quantity      int
	Condition     string // new | used | damaged
	Reason        sql.NullString
	RefundAmount  float64
}

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusProcessed = "processed"
	StatusCompleted = "completed"

	DispositionRestock = "restock"
	DispositionDamage  = "damage"
	DispositionDiscard = "discard"

	ConditionNew     = "new"
	ConditionUsed    = "used"
	ConditionDamaged = "damaged"
)

// Statuses は集計時のキー順（UIのステータスカード順と揃える）
var Statuses = []string{StatusPending, StatusApproved, StatusRejected, StatusProcessed, StatusCompleted}

func validStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func validCondition(s string) bool {
	return s == ConditionNew || s == ConditionUsed || s == ConditionDamaged
}

// 返品リスト取得用の検索条件
type Filter struct {
	Status      *string
	OrderNumber *string
	From        *time.Time
	To          *time.Time
}

// ステータス遷移時にまとめて書き込む更新内容
type StatusUpdate struct {
	Status      string
	ProcessedBy string
	ProcessedAt time.Time
	Notes       *string // nil なら既存値を保持
	UpdatedAt   time.Time
}
