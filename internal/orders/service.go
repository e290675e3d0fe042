package orders

import (
	"context"
	"errors"
	"fmt"
)

// ===== Error model (returns/settings と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GET /orders
func (s *Service) List(ctx context.Context, p Page) ([]OrderResponse, int64, error) {
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	rows, total, err := s.store.List(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]OrderResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDTO())
	}
	return out, total, nil
}

// GET /orders/:order_ulid
func (s *Service) Get(ctx context.Context, ulid string) (*OrderResponse, error) {
	if ulid == "" {
		return nil, ErrInvalid("order_ulid is required")
	}
	o, err := s.store.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound("order not found")
	}
	resp := o.ToDTO()
	return &resp, nil
}
