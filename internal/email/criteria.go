package email

import (
	"net/textproto"
	"time"

	"github.com/emersion/go-imap"
)

// SearchCriteria is the structured search input accepted by Session.Search.
// It maps onto the wire protocol's native search grammar after normalization.
type SearchCriteria struct {
	Seen       bool `json:"seen,omitempty"`
	Unseen     bool `json:"unseen,omitempty"`
	Answered   bool `json:"answered,omitempty"`
	Unanswered bool `json:"unanswered,omitempty"`
	Flagged    bool `json:"flagged,omitempty"`
	Unflagged  bool `json:"unflagged,omitempty"`

	// Header holds key/value header matches.
	Header map[string]string `json:"header,omitempty"`

	// HeaderTuple is the two-element [name, value] form some callers send.
	// Normalize rewrites it into a Header entry before dispatch.
	HeaderTuple []string `json:"headerTuple,omitempty"`

	// Subject is a substring match on the Subject header.
	Subject string `json:"subject,omitempty"`

	Since  time.Time `json:"since,omitempty"`
	Before time.Time `json:"before,omitempty"`
}

// Normalize rewrites the two-element header tuple into a single key/value
// header match. This normalization belongs to the client, not the wire layer.
func (c *SearchCriteria) Normalize() {
	if len(c.HeaderTuple) == 2 && c.HeaderTuple[0] != "" {
		if c.Header == nil {
			c.Header = make(map[string]string)
		}
		c.Header[c.HeaderTuple[0]] = c.HeaderTuple[1]
	}
	c.HeaderTuple = nil
}

// build converts the normalized criteria into the wire library's form.
func (c *SearchCriteria) build() *imap.SearchCriteria {
	crit := imap.NewSearchCriteria()

	if c.Seen {
		crit.WithFlags = append(crit.WithFlags, imap.SeenFlag)
	}
	if c.Unseen {
		crit.WithoutFlags = append(crit.WithoutFlags, imap.SeenFlag)
	}
	if c.Answered {
		crit.WithFlags = append(crit.WithFlags, imap.AnsweredFlag)
	}
	if c.Unanswered {
		crit.WithoutFlags = append(crit.WithoutFlags, imap.AnsweredFlag)
	}
	if c.Flagged {
		crit.WithFlags = append(crit.WithFlags, imap.FlaggedFlag)
	}
	if c.Unflagged {
		crit.WithoutFlags = append(crit.WithoutFlags, imap.FlaggedFlag)
	}

	if len(c.Header) > 0 {
		crit.Header = make(textproto.MIMEHeader)
		for name, value := range c.Header {
			crit.Header.Add(name, value)
		}
	}

	if c.Subject != "" {
		if crit.Header == nil {
			crit.Header = make(textproto.MIMEHeader)
		}
		crit.Header.Add("Subject", c.Subject)
	}

	if !c.Since.IsZero() {
		crit.Since = c.Since
	}
	if !c.Before.IsZero() {
		crit.Before = c.Before
	}

	return crit
}
