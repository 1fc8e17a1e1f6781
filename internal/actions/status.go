package actions

import (
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/email"
)

// MailboxStatusAction reads a mailbox's counters without mutating anything
type MailboxStatusAction struct {
	dialer *email.Dialer
	logger *logrus.Logger
}

// NewMailboxStatusAction creates a new mailbox status action
func NewMailboxStatusAction(dialer *email.Dialer, logger *logrus.Logger) *MailboxStatusAction {
	return &MailboxStatusAction{dialer: dialer, logger: logger}
}

// Name returns the action name
func (a *MailboxStatusAction) Name() string {
	return "mailbox_status"
}

// Description returns the action description
func (a *MailboxStatusAction) Description() string {
	return "Get message count, unseen count, next UID and UID validity for a mailbox"
}

// InputSchema returns the JSON schema for action inputs
func (a *MailboxStatusAction) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Mailbox path (default: INBOX)",
			},
		},
	}
}

// Execute executes the action
func (a *MailboxStatusAction) Execute(params map[string]interface{}) (interface{}, error) {
	session := a.dialer.NewSession()
	defer session.Logout()

	return session.Status(requireMailbox(params))
}
