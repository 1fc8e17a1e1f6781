package email

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
)

func TestSearchCriteriaNormalize(t *testing.T) {
	c := &SearchCriteria{HeaderTuple: []string{"Message-ID", "<a@x>"}}
	c.Normalize()

	assert.Nil(t, c.HeaderTuple)
	assert.Equal(t, "<a@x>", c.Header["Message-ID"])
}

func TestSearchCriteriaNormalizeKeepsExistingHeaders(t *testing.T) {
	c := &SearchCriteria{
		Header:      map[string]string{"From": "alice@example.com"},
		HeaderTuple: []string{"List-Id", "dev.example.com"},
	}
	c.Normalize()

	assert.Equal(t, "alice@example.com", c.Header["From"])
	assert.Equal(t, "dev.example.com", c.Header["List-Id"])
}

func TestSearchCriteriaNormalizeDropsMalformedTuple(t *testing.T) {
	c := &SearchCriteria{HeaderTuple: []string{"only-one"}}
	c.Normalize()

	assert.Nil(t, c.HeaderTuple)
	assert.Empty(t, c.Header)

	c = &SearchCriteria{HeaderTuple: []string{"", "value"}}
	c.Normalize()
	assert.Empty(t, c.Header)
}

func TestSearchCriteriaBuild(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	c := &SearchCriteria{
		Unseen:  true,
		Flagged: true,
		Header:  map[string]string{"From": "alice@example.com"},
		Subject: "invoice",
		Since:   since,
		Before:  before,
	}

	crit := c.build()
	assert.Contains(t, crit.WithoutFlags, imap.SeenFlag)
	assert.Contains(t, crit.WithFlags, imap.FlaggedFlag)
	assert.Equal(t, "alice@example.com", crit.Header.Get("From"))
	assert.Equal(t, "invoice", crit.Header.Get("Subject"))
	assert.Equal(t, since, crit.Since)
	assert.Equal(t, before, crit.Before)
}

func TestSearchCriteriaBuildEmpty(t *testing.T) {
	crit := (&SearchCriteria{}).build()
	assert.Empty(t, crit.WithFlags)
	assert.Empty(t, crit.WithoutFlags)
	assert.Empty(t, crit.Header)
}
