package actions

import (
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/email"
)

// ListMailboxesAction lists all mailboxes with delimiter, special-use tag
// and subscription state
type ListMailboxesAction struct {
	dialer *email.Dialer
	logger *logrus.Logger
}

// NewListMailboxesAction creates a new list mailboxes action
func NewListMailboxesAction(dialer *email.Dialer, logger *logrus.Logger) *ListMailboxesAction {
	return &ListMailboxesAction{dialer: dialer, logger: logger}
}

// Name returns the action name
func (a *ListMailboxesAction) Name() string {
	return "list_mailboxes"
}

// Description returns the action description
func (a *ListMailboxesAction) Description() string {
	return "List all mailboxes with delimiter, special-use tag and subscription state"
}

// InputSchema returns the JSON schema for action inputs
func (a *ListMailboxesAction) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the action
func (a *ListMailboxesAction) Execute(params map[string]interface{}) (interface{}, error) {
	session := a.dialer.NewSession()
	defer session.Logout()

	folders, err := session.ListMailboxes()
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"mailboxes": folders,
	}, nil
}
