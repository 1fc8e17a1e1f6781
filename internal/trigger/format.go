package trigger

import (
	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/pkg/types"
)

// snippetLength bounds the plain-text excerpt in headersSnippet output.
const snippetLength = 500

// FormatRecord applies output-format post-processing to an enriched record
// before emission. raw discards the parsed body; headersSnippet collapses it
// to a short plain-text excerpt under a snippet key.
func FormatRecord(msg *types.Message, format string) map[string]interface{} {
	record := map[string]interface{}{
		"uid":         msg.UID,
		"seqNum":      msg.SeqNum,
		"mailbox":     msg.Mailbox,
		"messageId":   msg.MessageID,
		"subject":     msg.Subject,
		"date":        msg.Date,
		"from":        msg.From,
		"to":          msg.To,
		"cc":          msg.Cc,
		"flags":       msg.Flags,
		"headers":     msg.Headers,
		"thread":      msg.Thread,
		"attachments": msg.Attachments,
	}

	switch format {
	case config.FormatRaw:
		if len(msg.Raw) > 0 {
			record["raw"] = msg.Raw
		}
	case config.FormatHeadersSnippet:
		record["snippet"] = snippet(msg.Body.Text)
	default:
		record["body"] = msg.Body
		if len(msg.Raw) > 0 {
			record["raw"] = msg.Raw
		}
	}

	return record
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength])
}
