package actions

import (
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/email"
)

// ExpungeMailboxAction permanently removes all messages flagged deleted in
// a mailbox. Irreversible.
type ExpungeMailboxAction struct {
	dialer *email.Dialer
	logger *logrus.Logger
}

// NewExpungeMailboxAction creates a new expunge action
func NewExpungeMailboxAction(dialer *email.Dialer, logger *logrus.Logger) *ExpungeMailboxAction {
	return &ExpungeMailboxAction{dialer: dialer, logger: logger}
}

// Name returns the action name
func (a *ExpungeMailboxAction) Name() string {
	return "expunge_mailbox"
}

// Description returns the action description
func (a *ExpungeMailboxAction) Description() string {
	return "Permanently remove all messages flagged deleted in a mailbox (irreversible)"
}

// InputSchema returns the JSON schema for action inputs
func (a *ExpungeMailboxAction) InputSchema() map[string]interface{} {
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
func (a *ExpungeMailboxAction) Execute(params map[string]interface{}) (interface{}, error) {
	mailbox := requireMailbox(params)

	session := a.dialer.NewSession()
	defer session.Logout()

	if err := session.Expunge(mailbox); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"mailbox":  mailbox,
		"expunged": true,
	}, nil
}
