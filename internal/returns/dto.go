package returns

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type Page struct {
	Limit  int
	Offset int
	Order  string // asc | desc（created_at 基準、既定は desc＝新しい順）
}

// 返品作成リクエスト
type CreateReturnRequest struct {
	OrderULID string             `json:"order_ulid" binding:"required"`
	Reason    string             `json:"reason" binding:"required"`
	Items     []CreateReturnItem `json:"items" binding:"required"`
	Notes     *string            `json:"notes,omitempty"`
}

type CreateReturnItem struct {
	OrderItemULID string  `json:"item_ulid" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Quantity      int     `json:"quantity"`
	Condition     string  `json:"condition"`
	Reason        *string `json:"reason,omitempty"`
	RefundAmount  float64 `json:"refund_amount"`
}

// 承認・完了リクエスト（操作者はJWTのsubから取るため本文は空でも良い）
type TransitionRequest struct {
	Actor string `json:"actor,omitempty"`
}

// 却下リクエスト（理由必須）
type RejectRequest struct {
	Actor  string `json:"actor,omitempty"`
	Reason string `json:"reason" binding:"required"`
}

type ReturnItemResponse struct {
	ItemULID      string  `json:"item_ulid"`
	OrderItemULID string  `json:"order_item_ulid"`
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	Condition     string  `json:"condition"`
	Reason        *string `json:"reason,omitempty"`
	RefundAmount  float64 `json:"refund_amount"`
}

type ReturnResponse struct {
	ReturnULID    string               `json:"return_ulid"`
	OrderULID     string               `json:"order_ulid"`
	OrderNumber   string               `json:"order_number"`
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	CustomerPhone string               `json:"customer_phone,omitempty"`
	Reason        string               `json:"reason"`
	Status        string               `json:"status"`
	Disposition   string               `json:"disposition"`
	RefundAmount  float64              `json:"refund_amount"`
	Notes         *string              `json:"notes,omitempty"`
	ProcessedBy   *string              `json:"processed_by,omitempty"`
	ProcessedAt   *time.Time           `json:"processed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Items         []ReturnItemResponse `json:"items"`
}

// ダッシュボードのステータスカード用の集計（保存はしない、都度導出）
type StatsResponse struct {
	Total            int64            `json:"total"`
	CountByStatus    map[string]int64 `json:"count_by_status"`
	TotalRefunds     float64          `json:"total_refunds"`
	CompletedRefunds float64          `json:"completed_refunds"`
}

func buildReturnResponse(r *Return) ReturnResponse {
	resp := ReturnResponse{
		ReturnULID:    r.ReturnULID,
		OrderULID:     r.OrderULID,
		OrderNumber:   r.OrderNumber,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		Reason:        r.Reason,
		Status:        r.Status,
		Disposition:   r.Disposition,
		RefundAmount:  r.RefundAmount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Notes.Valid {
		val := r.Notes.String
		resp.Notes = &val
	}
	if r.ProcessedBy.Valid {
		val := r.ProcessedBy.String
		resp.ProcessedBy = &val
	}
	if r.ProcessedAt.Valid {
		val := r.ProcessedAt.Time
		resp.ProcessedAt = &val
	}
	resp.Items = make([]ReturnItemResponse, 0, len(r.Items))
	for _, it := range r.Items {
		ir := ReturnItemResponse{
			ItemULID:      it.ItemULID,
			OrderItemULID: it.OrderItemULID,
			Name:          it.Name,
			Quantity:      it.Quantity,
			Condition:     it.Condition,
			RefundAmount:  it.RefundAmount,
		}
		if it.Reason.Valid {
			val := it.Reason.String
			ir.Reason = &val
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}
