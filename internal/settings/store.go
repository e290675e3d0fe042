package settings

import (
	"context"
	"database/sql"
	"sync"
)

// Store は設定のキー/バリュー永続化。値はセクションごとのJSON文字列。
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type SQLStore struct{ db *sql.DB }

func NewStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `SELECT v FROM settings WHERE k = ?`
	var v string
	err := s.db.QueryRowContext(ctx, q, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	const q = `
	INSERT INTO settings (k, v) VALUES (?, ?)
	ON DUPLICATE KEY UPDATE v = VALUES(v)`
	_, err := s.db.ExecContext(ctx, q, key, value)
	return err
}

// MemStore はデモモード・テスト用のインメモリ実装
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
