package actions

import (
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/email"
)

// MoveMessagesAction transfers messages between mailboxes, using native
// MOVE when the server supports it
type MoveMessagesAction struct {
	dialer *email.Dialer
	logger *logrus.Logger
}

// NewMoveMessagesAction creates a new move messages action
func NewMoveMessagesAction(dialer *email.Dialer, logger *logrus.Logger) *MoveMessagesAction {
	return &MoveMessagesAction{dialer: dialer, logger: logger}
}

// Name returns the action name
func (a *MoveMessagesAction) Name() string {
	return "move_messages"
}

// Description returns the action description
func (a *MoveMessagesAction) Description() string {
	return "Move messages to another mailbox; the result reports whether native MOVE or the copy+delete fallback ran"
}

// InputSchema returns the JSON schema for action inputs
func (a *MoveMessagesAction) InputSchema() map[string]interface{} {
	return transferSchema()
}

// Execute executes the action
func (a *MoveMessagesAction) Execute(params map[string]interface{}) (interface{}, error) {
	session := a.dialer.NewSession()
	defer session.Logout()

	return session.Move(
		uidListParam(params, "uids"),
		requireMailbox(params),
		stringParam(params, "target", ""),
	)
}

// CopyMessagesAction duplicates messages without removing the originals
type CopyMessagesAction struct {
	dialer *email.Dialer
	logger *logrus.Logger
}

// NewCopyMessagesAction creates a new copy messages action
func NewCopyMessagesAction(dialer *email.Dialer, logger *logrus.Logger) *CopyMessagesAction {
	return &CopyMessagesAction{dialer: dialer, logger: logger}
}

// Name returns the action name
func (a *CopyMessagesAction) Name() string {
	return "copy_messages"
}

// Description returns the action description
func (a *CopyMessagesAction) Description() string {
	return "Copy messages to another mailbox, keeping the originals"
}

// InputSchema returns the JSON schema for action inputs
func (a *CopyMessagesAction) InputSchema() map[string]interface{} {
	return transferSchema()
}

// Execute executes the action
func (a *CopyMessagesAction) Execute(params map[string]interface{}) (interface{}, error) {
	session := a.dialer.NewSession()
	defer session.Logout()

	return session.Copy(
		uidListParam(params, "uids"),
		requireMailbox(params),
		stringParam(params, "target", ""),
	)
}

func transferSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Source mailbox path (default: INBOX)",
			},
			"target": map[string]interface{}{
				"type":        "string",
				"description": "Target mailbox path",
			},
			"uids": map[string]interface{}{
				"type":        "string",
				"description": "Comma-separated UID list; malformed entries are dropped",
			},
		},
		"required": []string{"target", "uids"},
	}
}
