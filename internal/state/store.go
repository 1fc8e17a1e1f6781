package state

import (
	"database/sql"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Watermark is the persisted high-water mark for one trigger instance.
// LastUID is only meaningful within the stored UIDValidity epoch.
type Watermark struct {
	TriggerID   string
	Mailbox     string
	LastUID     uint32
	UIDValidity uint32
}

// Store provides access to watermarks and the binary attachment table
type Store struct {
	db     *DB
	logger *logrus.Logger
}

// NewStore creates a new store instance
func NewStore(db *DB, logger *logrus.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// GetWatermark returns the watermark for a trigger instance, or nil when
// none has been recorded yet.
func (s *Store) GetWatermark(triggerID string) (*Watermark, error) {
	var w Watermark
	err := s.db.db.QueryRow(
		"SELECT trigger_id, mailbox, last_uid, uid_validity FROM watermarks WHERE trigger_id = ?",
		triggerID,
	).Scan(&w.TriggerID, &w.Mailbox, &w.LastUID, &w.UIDValidity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark: %w", err)
	}
	return &w, nil
}

// SetWatermark upserts the watermark for a trigger instance
func (s *Store) SetWatermark(w *Watermark) error {
	query := `
		INSERT INTO watermarks (trigger_id, mailbox, last_uid, uid_validity, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(trigger_id) DO UPDATE SET
			mailbox = excluded.mailbox,
			last_uid = excluded.last_uid,
			uid_validity = excluded.uid_validity,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.db.Exec(query, w.TriggerID, w.Mailbox, w.LastUID, w.UIDValidity); err != nil {
		return fmt.Errorf("failed to upsert watermark: %w", err)
	}
	return nil
}

// Put stores one attachment binary under the given key, replacing any
// previous content for that key. Implements the enrichment pipeline's
// binary-store collaborator.
func (s *Store) Put(key, filename, contentType string, content []byte) error {
	query := `
		INSERT INTO attachments (key, filename, content_type, size, content, stored_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			filename = excluded.filename,
			content_type = excluded.content_type,
			size = excluded.size,
			content = excluded.content,
			stored_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.db.Exec(query, key, filename, contentType, len(content), content); err != nil {
		return fmt.Errorf("failed to store attachment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"key":  key,
		"size": humanize.Bytes(uint64(len(content))),
	}).Debug("Stored attachment binary")
	return nil
}

// GetAttachment reads back a stored attachment binary by key
func (s *Store) GetAttachment(key string) (filename, contentType string, content []byte, err error) {
	err = s.db.db.QueryRow(
		"SELECT filename, content_type, content FROM attachments WHERE key = ?", key,
	).Scan(&filename, &contentType, &content)
	if err == sql.ErrNoRows {
		return "", "", nil, fmt.Errorf("attachment not found: %s", key)
	}
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return filename, contentType, content, nil
}
