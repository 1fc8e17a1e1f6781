package email

import (
	"fmt"
	"path"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/pkg/types"
)

// BinaryStore is the external collaborator that materializes attachment
// content. The pipeline only decides key names and hands off the bytes.
type BinaryStore interface {
	Put(key, filename, contentType string, content []byte) error
}

// AttachmentFilter decides which parsed attachments survive projection.
// Zero values disable the corresponding constraint.
type AttachmentFilter struct {
	MaxSize         int64
	AllowedMIME     []string
	FilenamePattern string
}

// FilterFromConfig builds an AttachmentFilter from trigger configuration.
func FilterFromConfig(t *config.TriggerConfig) AttachmentFilter {
	var allowed []string
	for _, m := range strings.Split(t.AllowedMIMECSV, ",") {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			allowed = append(allowed, m)
		}
	}
	return AttachmentFilter{
		MaxSize:         t.MaxAttachmentSize,
		AllowedMIME:     allowed,
		FilenamePattern: t.FilenamePattern,
	}
}

// keep applies the constraints in fixed order: size, MIME allow-list,
// filename pattern.
func (f *AttachmentFilter) keep(part *enmime.Part) bool {
	if f.MaxSize > 0 && int64(len(part.Content)) > f.MaxSize {
		return false
	}

	if len(f.AllowedMIME) > 0 {
		ct := strings.ToLower(part.ContentType)
		found := false
		for _, allowed := range f.AllowedMIME {
			if ct == allowed {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.FilenamePattern != "" {
		ok, err := path.Match(f.FilenamePattern, part.FileName)
		if err != nil || !ok {
			return false
		}
	}

	return true
}

// projectAttachments filters parsed attachments and builds their metadata
// records. In binary mode surviving content is registered with the store
// under "{prefix}{index}", where the index counts only kept attachments.
func projectAttachments(parts []*enmime.Part, filter AttachmentFilter, mode, keyPrefix string, store BinaryStore) ([]types.Attachment, error) {
	attachments := make([]types.Attachment, 0, len(parts))

	kept := 0
	for _, part := range parts {
		if !filter.keep(part) {
			continue
		}

		contentType := strings.ToLower(strings.TrimSpace(part.ContentType))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		meta := types.Attachment{
			Filename:    part.FileName,
			ContentType: contentType,
			Size:        len(part.Content),
		}

		if mode == config.AttachmentsBinary {
			key := fmt.Sprintf("%s%d", keyPrefix, kept)
			if store == nil {
				return nil, &ValidationError{Reason: "binary attachment mode requires a binary store"}
			}
			if err := store.Put(key, part.FileName, contentType, part.Content); err != nil {
				return nil, fmt.Errorf("failed to store attachment %q: %w", key, err)
			}
			meta.BinaryKey = key
		}

		attachments = append(attachments, meta)
		kept++
	}

	return attachments, nil
}
