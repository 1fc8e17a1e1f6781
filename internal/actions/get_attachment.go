package actions

import (
	"encoding/base64"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/email"
	"github.com/brandon/mailflow/internal/state"
)

// GetAttachmentAction reads back an attachment binary previously
// materialized under a binary key
type GetAttachmentAction struct {
	store  *state.Store
	logger *logrus.Logger
}

// NewGetAttachmentAction creates a new get attachment action
func NewGetAttachmentAction(store *state.Store, logger *logrus.Logger) *GetAttachmentAction {
	return &GetAttachmentAction{store: store, logger: logger}
}

// Name returns the action name
func (a *GetAttachmentAction) Name() string {
	return "get_attachment"
}

// Description returns the action description
func (a *GetAttachmentAction) Description() string {
	return "Read back a stored attachment binary by its key"
}

// InputSchema returns the JSON schema for action inputs
func (a *GetAttachmentAction) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"key": map[string]interface{}{
				"type":        "string",
				"description": "Binary key from a message's attachment metadata",
			},
		},
		"required": []string{"key"},
	}
}

// Execute executes the action
func (a *GetAttachmentAction) Execute(params map[string]interface{}) (interface{}, error) {
	key := stringParam(params, "key", "")
	if key == "" {
		return nil, &email.ValidationError{Reason: "key is required"}
	}

	filename, contentType, content, err := a.store.GetAttachment(key)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"key":         key,
		"filename":    filename,
		"contentType": contentType,
		"size":        len(content),
		"content":     base64.StdEncoding.EncodeToString(content),
	}, nil
}
