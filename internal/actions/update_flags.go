package actions

import (
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/email"
)

// UpdateFlagsAction applies add/remove/replace flag mutations to a UID list
type UpdateFlagsAction struct {
	dialer *email.Dialer
	logger *logrus.Logger
}

// NewUpdateFlagsAction creates a new update flags action
func NewUpdateFlagsAction(dialer *email.Dialer, logger *logrus.Logger) *UpdateFlagsAction {
	return &UpdateFlagsAction{dialer: dialer, logger: logger}
}

// Name returns the action name
func (a *UpdateFlagsAction) Name() string {
	return "update_flags"
}

// Description returns the action description
func (a *UpdateFlagsAction) Description() string {
	return "Add, remove or replace flags on a batch of messages in one protocol call"
}

// InputSchema returns the JSON schema for action inputs
func (a *UpdateFlagsAction) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Mailbox path (default: INBOX)",
			},
			"uids": map[string]interface{}{
				"type":        "string",
				"description": "Comma-separated UID list; malformed entries are dropped",
			},
			"action": map[string]interface{}{
				"type":        "string",
				"description": "One of add, remove, replace",
			},
			"flags": map[string]interface{}{
				"type":        "string",
				"description": "Comma-separated flags; a leading backslash marks a protocol-reserved flag",
			},
		},
		"required": []string{"uids", "action", "flags"},
	}
}

// Execute executes the action
func (a *UpdateFlagsAction) Execute(params map[string]interface{}) (interface{}, error) {
	uids := uidListParam(params, "uids")
	action := stringParam(params, "action", "")
	flags := stringListParam(params, "flags")

	session := a.dialer.NewSession()
	defer session.Logout()

	return session.UpdateFlags(uids, requireMailbox(params), action, flags)
}
