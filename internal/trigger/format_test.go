package trigger

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/pkg/types"
)

func sampleMessage() *types.Message {
	return &types.Message{
		UID:     7,
		Mailbox: "INBOX",
		Subject: "Hello",
		Body:    types.Body{Text: "plain body", HTML: "<p>plain body</p>"},
		Raw:     []byte("raw source"),
	}
}

func TestFormatRecordFull(t *testing.T) {
	record := FormatRecord(sampleMessage(), config.FormatFull)

	assert.Equal(t, uint32(7), record["uid"])
	assert.Equal(t, "Hello", record["subject"])
	assert.Equal(t, types.Body{Text: "plain body", HTML: "<p>plain body</p>"}, record["body"])
	assert.Equal(t, []byte("raw source"), record["raw"])
	assert.NotContains(t, record, "snippet")
}

func TestFormatRecordRawDiscardsBody(t *testing.T) {
	record := FormatRecord(sampleMessage(), config.FormatRaw)

	assert.NotContains(t, record, "body")
	assert.Equal(t, []byte("raw source"), record["raw"])
}

func TestFormatRecordHeadersSnippet(t *testing.T) {
	msg := sampleMessage()
	msg.Body.Text = strings.Repeat("é", 600)

	record := FormatRecord(msg, config.FormatHeadersSnippet)

	assert.NotContains(t, record, "body")
	assert.NotContains(t, record, "raw")

	snippet, ok := record["snippet"].(string)
	assert.True(t, ok)
	assert.Equal(t, snippetLength, utf8.RuneCountInString(snippet))
}

func TestSnippetShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))
	assert.Equal(t, "", snippet(""))
}
