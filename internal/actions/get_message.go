package actions

import (
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/internal/email"
	"github.com/brandon/mailflow/internal/state"
)

// GetMessageAction fetches and enriches one message, or a batch of
// messages with continue-on-fail semantics
type GetMessageAction struct {
	dialer *email.Dialer
	store  *state.Store
	logger *logrus.Logger
}

// NewGetMessageAction creates a new get message action
func NewGetMessageAction(dialer *email.Dialer, store *state.Store, logger *logrus.Logger) *GetMessageAction {
	return &GetMessageAction{dialer: dialer, store: store, logger: logger}
}

// Name returns the action name
func (a *GetMessageAction) Name() string {
	return "get_message"
}

// Description returns the action description
func (a *GetMessageAction) Description() string {
	return "Fetch one message (by UID or Message-ID) or a batch of UIDs, with parsed body and filtered attachments"
}

// InputSchema returns the JSON schema for action inputs
func (a *GetMessageAction) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Mailbox path (default: INBOX)",
			},
			"uid": map[string]interface{}{
				"type":        "integer",
				"description": "Message UID",
			},
			"message_id": map[string]interface{}{
				"type":        "string",
				"description": "Message-ID header value, used when uid is absent",
			},
			"uids": map[string]interface{}{
				"type":        "string",
				"description": "Comma-separated UID list for batch fetch; malformed entries are dropped",
			},
			"include_raw": map[string]interface{}{
				"type":        "boolean",
				"description": "Include the full raw source bytes",
			},
			"attachments": map[string]interface{}{
				"type":        "string",
				"description": "Attachment mode: none, metadataOnly or binary (default: none)",
			},
			"binary_prefix": map[string]interface{}{
				"type":        "string",
				"description": "Binary key prefix (default: attachment_)",
			},
			"max_attachment_size": map[string]interface{}{
				"type":        "integer",
				"description": "Drop attachments larger than this many bytes",
			},
			"allowed_mime": map[string]interface{}{
				"type":        "string",
				"description": "Comma-separated MIME allow-list",
			},
			"filename_pattern": map[string]interface{}{
				"type":        "string",
				"description": "Glob pattern attachments' filenames must match",
			},
			"continue_on_fail": map[string]interface{}{
				"type":        "boolean",
				"description": "In batch mode, collect per-item failures instead of aborting",
			},
		},
	}
}

// Execute executes the action
func (a *GetMessageAction) Execute(params map[string]interface{}) (interface{}, error) {
	mailbox := requireMailbox(params)
	opts := a.enrichOptions(params)

	session := a.dialer.NewSession()
	defer session.Logout()

	// Batch mode: per-item failures either abort or are collected,
	// depending on continue_on_fail
	if batch := uidListParam(params, "uids"); len(batch) > 0 {
		continueOnFail := boolParam(params, "continue_on_fail")

		messages := make([]interface{}, 0, len(batch))
		var failures []map[string]interface{}
		for _, uid := range batch {
			msg, err := email.Enrich(session, mailbox, uid, opts)
			if err != nil {
				if !continueOnFail {
					return nil, err
				}
				failures = append(failures, itemError(uid, err))
				continue
			}
			messages = append(messages, msg)
		}

		result := map[string]interface{}{
			"messages": messages,
		}
		if len(failures) > 0 {
			result["errors"] = failures
		}
		return result, nil
	}

	uid, err := email.ResolveUID(session, mailbox, uintParam(params, "uid"), stringParam(params, "message_id", ""))
	if err != nil {
		return nil, err
	}

	return email.Enrich(session, mailbox, uid, opts)
}

func (a *GetMessageAction) enrichOptions(params map[string]interface{}) email.EnrichOptions {
	filterCfg := config.TriggerConfig{
		MaxAttachmentSize: int64Param(params, "max_attachment_size"),
		AllowedMIMECSV:    stringParam(params, "allowed_mime", ""),
		FilenamePattern:   stringParam(params, "filename_pattern", ""),
	}

	return email.EnrichOptions{
		IncludeRaw:      boolParam(params, "include_raw"),
		AttachmentMode:  stringParam(params, "attachments", config.AttachmentsNone),
		BinaryKeyPrefix: stringParam(params, "binary_prefix", "attachment_"),
		Filter:          email.FilterFromConfig(&filterCfg),
		Binary:          a.store,
	}
}
