package auth

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MemStore: デモモード用のインメモリ実装。MySQLなしで起動できる。
type MemStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemStore() *MemStore {
	return &MemStore{accounts: make(map[string]Account)}
}

// SeedDemoAdmin: admin / admin のデモアカウントを投入する
func (s *MemStore) SeedDemoAdmin() error {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts["admin"] = Account{
		ID:           "admin",
		Name:         "Demo Admin",
		PasswordHash: string(hash),
		Role:         "admin",
	}
	return nil
}

func (s *MemStore) GetByID(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := a
	return &cp, nil
}

func (s *MemStore) Create(ctx context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = *a
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return 0, nil
	}
	delete(s.accounts, id)
	return 1, nil
}
