package actions

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/email"
)

// SearchMessagesAction runs a server-side search and returns matching UIDs
type SearchMessagesAction struct {
	dialer *email.Dialer
	logger *logrus.Logger
}

// NewSearchMessagesAction creates a new search action
func NewSearchMessagesAction(dialer *email.Dialer, logger *logrus.Logger) *SearchMessagesAction {
	return &SearchMessagesAction{dialer: dialer, logger: logger}
}

// Name returns the action name
func (a *SearchMessagesAction) Name() string {
	return "search_messages"
}

// Description returns the action description
func (a *SearchMessagesAction) Description() string {
	return "Search a mailbox by flags, header, subject or date range; returns matching UIDs"
}

// InputSchema returns the JSON schema for action inputs
func (a *SearchMessagesAction) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Mailbox path (default: INBOX)",
			},
			"seen":       map[string]interface{}{"type": "boolean"},
			"unseen":     map[string]interface{}{"type": "boolean"},
			"answered":   map[string]interface{}{"type": "boolean"},
			"unanswered": map[string]interface{}{"type": "boolean"},
			"flagged":    map[string]interface{}{"type": "boolean"},
			"unflagged":  map[string]interface{}{"type": "boolean"},
			"header": map[string]interface{}{
				"type":        "array",
				"description": "Two-element [name, value] header match",
				"items":       map[string]interface{}{"type": "string"},
			},
			"subject": map[string]interface{}{
				"type":        "string",
				"description": "Subject substring",
			},
			"since": map[string]interface{}{
				"type":        "string",
				"description": "Inclusive lower date bound (RFC 3339)",
			},
			"before": map[string]interface{}{
				"type":        "string",
				"description": "Exclusive upper date bound (RFC 3339)",
			},
		},
	}
}

// Execute executes the action
func (a *SearchMessagesAction) Execute(params map[string]interface{}) (interface{}, error) {
	criteria := &email.SearchCriteria{
		Seen:        boolParam(params, "seen"),
		Unseen:      boolParam(params, "unseen"),
		Answered:    boolParam(params, "answered"),
		Unanswered:  boolParam(params, "unanswered"),
		Flagged:     boolParam(params, "flagged"),
		Unflagged:   boolParam(params, "unflagged"),
		Subject:     stringParam(params, "subject", ""),
		HeaderTuple: stringListParam(params, "header"),
	}

	if since := stringParam(params, "since", ""); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, &email.ValidationError{Reason: "invalid since date: " + since}
		}
		criteria.Since = t
	}
	if before := stringParam(params, "before", ""); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return nil, &email.ValidationError{Reason: "invalid before date: " + before}
		}
		criteria.Before = t
	}

	session := a.dialer.NewSession()
	defer session.Logout()

	uids, err := session.Search(requireMailbox(params), criteria)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"uids":  uids,
		"count": len(uids),
	}, nil
}
