package backup

import (
	"encoding/json"
	"time"
)

// BackupRecord は設定バックアップ1件のメタデータ
type BackupRecord struct {
	ID         string     `json:"id"` // uuid
	Kind       string     `json:"kind"` // manual | auto
	Status     string     `json:"status"`
	SizeBytes  int64      `json:"size_bytes"`
	Sections   []string   `json:"sections"`
	CreatedBy  string     `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	RestoredAt *time.Time `json:"restored_at,omitempty"`
}

const (
	KindManual = "manual"
	KindAuto   = "auto"

	StatusCompleted = "completed"
)

// payload はBoltに保存する実体（メタデータ＋設定スナップショット）
type payload struct {
	Record   BackupRecord               `json:"record"`
	Snapshot map[string]json.RawMessage `json:"snapshot"`
}
