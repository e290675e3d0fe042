package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// APIError は設定・返品系と同じ形のエラーモデル
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func NewInvalidArgument(msg string) *APIError {
	return &APIError{Code: "INVALID_ARGUMENT", Message: msg}
}
func NewNotFound(msg string) *APIError { return &APIError{Code: "NOT_FOUND", Message: msg} }
func NewInternal(msg string) *APIError { return &APIError{Code: "INTERNAL", Message: msg} }

func toHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "INVALID_ARGUMENT":
			return http.StatusBadRequest
		case "NOT_FOUND":
			return http.StatusNotFound
		case "CONFLICT":
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// Snapshotter は設定一式の取得・書き戻しを提供する（settings.Service が満たす）
type Snapshotter interface {
	Snapshot(ctx context.Context) (map[string]json.RawMessage, error)
	RestoreSnapshot(ctx context.Context, snap map[string]json.RawMessage) error
}

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type Service struct {
	store    *Store
	settings Snapshotter
	clock    Clock
}

func NewService(store *Store, settings Snapshotter) *Service {
	return &Service{store: store, settings: settings, clock: realClock{}}
}

// Create は現在の設定全セクションをスナップショットして保存する
func (s *Service) Create(ctx context.Context, kind, actor string) (*BackupRecord, error) {
	if kind == "" {
		kind = KindManual
	}
	if kind != KindManual && kind != KindAuto {
		return nil, NewInvalidArgument(fmt.Sprintf("invalid backup kind: %s", kind))
	}

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, NewInternal("failed to snapshot settings: " + err.Error())
	}

	sections := make([]string, 0, len(snap))
	var size int64
	for k, v := range snap {
		sections = append(sections, k)
		size += int64(len(v))
	}

	rec := BackupRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusCompleted,
		SizeBytes: size,
		Sections:  sections,
		CreatedBy: actor,
		CreatedAt: s.clock.Now(),
	}

	if err := s.store.put(&payload{Record: rec, Snapshot: snap}); err != nil {
		return nil, NewInternal("failed to store backup: " + err.Error())
	}
	log.Printf("[INFO] backup created: id=%s kind=%s size=%d", rec.ID, rec.Kind, rec.SizeBytes)
	return &rec, nil
}

func (s *Service) List(ctx context.Context) ([]BackupRecord, error) {
	recs, err := s.store.list()
	if err != nil {
		return nil, NewInternal("failed to list backups: " + err.Error())
	}
	return recs, nil
}

func (s *Service) Get(ctx context.Context, id string) (*BackupRecord, error) {
	p, err := s.store.get(id)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, NewNotFound(fmt.Sprintf("backup not found: %s", id))
		}
		return nil, NewInternal("failed to load backup: " + err.Error())
	}
	return &p.Record, nil
}

// Restore はスナップショットを設定ストアへ書き戻し、復元時刻を記録する
func (s *Service) Restore(ctx context.Context, id string) (*BackupRecord, error) {
	p, err := s.store.get(id)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, NewNotFound(fmt.Sprintf("backup not found: %s", id))
		}
		return nil, NewInternal("failed to load backup: " + err.Error())
	}

	if err := s.settings.RestoreSnapshot(ctx, p.Snapshot); err != nil {
		return nil, NewInternal("failed to restore settings: " + err.Error())
	}

	rec, err := s.store.markRestored(id, s.clock.Now())
	if err != nil {
		return nil, NewInternal("failed to mark backup restored: " + err.Error())
	}
	log.Printf("[INFO] backup restored: id=%s sections=%d", rec.ID, len(rec.Sections))
	return rec, nil
}

// Delete は冪等。存在しないIDでもエラーにしない
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.delete(id); err != nil {
		return NewInternal("failed to delete backup: " + err.Error())
	}
	return nil
}
