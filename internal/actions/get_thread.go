package actions

import (
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/email"
)

// GetThreadAction reconstructs the thread containing a seed message
type GetThreadAction struct {
	dialer *email.Dialer
	logger *logrus.Logger
}

// NewGetThreadAction creates a new get thread action
func NewGetThreadAction(dialer *email.Dialer, logger *logrus.Logger) *GetThreadAction {
	return &GetThreadAction{dialer: dialer, logger: logger}
}

// Name returns the action name
func (a *GetThreadAction) Name() string {
	return "get_thread"
}

// Description returns the action description
func (a *GetThreadAction) Description() string {
	return "Reconstruct the thread around a seed message via reference-header expansion"
}

// InputSchema returns the JSON schema for action inputs
func (a *GetThreadAction) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Mailbox path (default: INBOX)",
			},
			"uid": map[string]interface{}{
				"type":        "integer",
				"description": "Seed message UID",
			},
			"message_id": map[string]interface{}{
				"type":        "string",
				"description": "Seed Message-ID, used when uid is absent",
			},
			"subject_fallback": map[string]interface{}{
				"type":        "boolean",
				"description": "Fall back to a subject search when headers yield no references",
			},
		},
	}
}

// Execute executes the action
func (a *GetThreadAction) Execute(params map[string]interface{}) (interface{}, error) {
	mailbox := requireMailbox(params)

	session := a.dialer.NewSession()
	defer session.Logout()

	seedUID, err := email.ResolveUID(session, mailbox, uintParam(params, "uid"), stringParam(params, "message_id", ""))
	if err != nil {
		return nil, err
	}

	messages, err := email.ResolveThread(session, mailbox, seedUID, boolParam(params, "subject_fallback"))
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"seedUid":  seedUID,
		"count":    len(messages),
		"messages": messages,
	}, nil
}
