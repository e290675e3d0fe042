package returns

import (
	"context"
	"database/sql"
	"strings"
	"sync"
)

// MemStore はデモモード・テスト用のインメモリ実装。
// 先頭挿入で保持し、新しい返品が先に並ぶ（List の desc と一致）。
type MemStore struct {
	mu      sync.RWMutex
	returns []Return // 先頭が最新
	nextID  int64
}

func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

func cloneReturn(r Return) Return {
	cp := r
	cp.Items = append([]ReturnItem(nil), r.Items...)
	return cp
}

func (s *MemStore) Insert(ctx context.Context, r *Return) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ReturnID = s.nextID
	s.nextID++
	for i := range r.Items {
		r.Items[i].ReturnItemID = int64(i + 1)
	}
	// 先頭に積む
	s.returns = append([]Return{cloneReturn(*r)}, s.returns...)
	return nil
}

func (s *MemStore) GetByULID(ctx context.Context, ulid string) (*Return, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.returns {
		if s.returns[i].ReturnULID == ulid {
			cp := cloneReturn(s.returns[i])
			return &cp, nil
		}
	}
	return nil, ErrNotFound("return not found")
}

func matches(r *Return, f Filter) bool {
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.OrderNumber != nil && r.OrderNumber != *f.OrderNumber {
		return false
	}
	if f.From != nil && r.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !r.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (s *MemStore) List(ctx context.Context, f Filter, p Page) ([]Return, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Return
	for i := range s.returns {
		if matches(&s.returns[i], f) {
			out = append(out, cloneReturn(s.returns[i]))
		}
	}
	if strings.ToLower(p.Order) == "asc" {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

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

func (s *MemStore) UpdateStatus(ctx context.Context, ulid string, upd StatusUpdate) (*Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.returns {
		if s.returns[i].ReturnULID != ulid {
			continue
		}
		r := &s.returns[i]
		r.Status = upd.Status
		r.ProcessedBy = sql.NullString{String: upd.ProcessedBy, Valid: true}
		r.ProcessedAt = sql.NullTime{Time: upd.ProcessedAt, Valid: true}
		if upd.Notes != nil {
			r.Notes = sql.NullString{String: *upd.Notes, Valid: true}
		}
		r.UpdatedAt = upd.UpdatedAt
		cp := cloneReturn(*r)
		return &cp, nil
	}
	return nil, ErrNotFound("return not found")
}

func (s *MemStore) Delete(ctx context.Context, ulid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.returns {
		if s.returns[i].ReturnULID == ulid {
			s.returns = append(s.returns[:i], s.returns[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64, len(Statuses))
	for i := range s.returns {
		counts[s.returns[i].Status]++
	}
	return counts, nil
}

func (s *MemStore) SumRefunds(ctx context.Context, status string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	for i := range s.returns {
		if status != "" && s.returns[i].Status != status {
			continue
		}
		sum += s.returns[i].RefundAmount
	}
	return sum, nil
}
