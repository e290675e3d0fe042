package backup

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "backups"

// ErrNotExist はバックアップが存在しないときに返す
var ErrNotExist = errors.New("backup not found")

// Store はBoltDBファイル1つに全バックアップを保存する。
// 外部のDBプロセスに依存しないため、バックアップ先としてDB自身を使わずに済む。
type Store struct {
	db *bolt.DB
}

func NewStore(path string) (*Store, error) {
	// 既定の data/backups.db のような置き場所は初回起動時にまだ無い
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	// バケット作成は冪等
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(p *payload) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return b.Put([]byte(p.Record.ID), data)
	})
}

func (s *Store) get(id string) (*payload, error) {
	var p payload
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotExist
		}
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// list はメタデータのみを新しい順で返す
func (s *Store) list() ([]BackupRecord, error) {
	var out []BackupRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.ForEach(func(k, v []byte) error {
			var p payload
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, p.Record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	// JSONで null ではなく [] を返すため
	if out == nil {
		out = []BackupRecord{}
	}
	return out, nil
}

// delete: 存在しないキーの削除はBolt側で何もしない（リトライ安全）
func (s *Store) delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Delete([]byte(id))
	})
}

func (s *Store) markRestored(id string, t time.Time) (*BackupRecord, error) {
	var rec BackupRecord
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotExist
		}
		var p payload
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		p.Record.RestoredAt = &t
		data, err := json.Marshal(&p)
		if err != nil {
			return err
		}
		rec = p.Record
		return b.Put([]byte(id), data)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
