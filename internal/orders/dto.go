package orders

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type Page struct {
	Limit  int
	Offset int
	Order  string // asc | desc
}

type OrderItemResponse struct {
	OrderItemID int64   `json:"order_item_id"`
	ItemULID    string  `json:"item_ulid"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type OrderResponse struct {
	OrderULID     string              `json:"order_ulid"`
	OrderNumber   string              `json:"order_number"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	Status        string              `json:"status"`
	TotalAmount   float64             `json:"total_amount"`
	CreatedAt     time.Time           `json:"created_at"`
	Items         []OrderItemResponse `json:"items,omitempty"`
}

func (o *Order) ToDTO() OrderResponse {
	resp := OrderResponse{
		OrderULID:     o.OrderULID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			OrderItemID: it.OrderItemID,
			ItemULID:    it.ItemULID,
			Name:        it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return resp
}
