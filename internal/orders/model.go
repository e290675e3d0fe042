package orders

import "time"

// Order は orders テーブルの1行＋明細を表す。
// 顧客情報は注文時点のスナップショットとして注文行に持つ（後からの顧客変更は反映しない）。
type Order struct {
	OrderID       int64
	OrderULID     string
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Status        string // pending | shipped | delivered | cancelled
	TotalAmount   float64
	CreatedAt     time.Time
	Items         []OrderItem
}

// OrderItem は order_items テーブルの1行を表す
type OrderItem struct {
	OrderItemID int64
	ItemULID    string
	Name        string
	Quantity    int
	UnitPrice   float64
}

const (
	StatusPending   = "pending"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// 返品受付の対象になるのは配達済みから30日以内の注文
const ReturnWindow = 30 * 24 * time.Hour
