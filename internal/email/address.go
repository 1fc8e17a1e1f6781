package email

import (
	"bufio"
	"bytes"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-imap"

	"github.com/brandon/mailflow/pkg/types"
)

var (
	msgIDToken    = regexp.MustCompile(`<[^<>]+>`)
	replyPrefixRE = regexp.MustCompile(`(?i)^(re|fwd?):\s*`)
)

// flattenAddresses converts protocol address structures into flat
// name/address records. Never returns nil so the JSON output always carries
// an array.
func flattenAddresses(addrs []*imap.Address) []types.Address {
	out := make([]types.Address, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		out = append(out, types.Address{
			Name:    a.PersonalName,
			Address: a.Address(),
		})
	}
	return out
}

// parseHeaderBlock parses a raw RFC 5322 header block into a flat map.
// Repeated headers are joined with ", "; keys keep their canonical MIME form.
func parseHeaderBlock(raw []byte) map[string]string {
	headers := make(map[string]string)
	if len(raw) == 0 {
		return headers
	}

	// ReadMIMEHeader needs the terminating blank line
	if !bytes.HasSuffix(raw, []byte("\r\n\r\n")) && !bytes.HasSuffix(raw, []byte("\n\n")) {
		raw = append(raw, '\r', '\n')
	}

	tr := textproto.NewReader(bufio.NewReader(bytes.NewReader(raw)))
	mimeHeader, err := tr.ReadMIMEHeader()
	if err != nil && len(mimeHeader) == 0 {
		return headers
	}

	for key, values := range mimeHeader {
		headers[key] = strings.Join(values, ", ")
	}
	return headers
}

// extractReferences pulls every bracket-delimited message identifier out of
// the References, In-Reply-To and Message-ID headers, deduplicated, in
// first-seen order.
func extractReferences(headers map[string]string) []string {
	combined := headers["References"] + " " + headers["In-Reply-To"] + " " + headers["Message-Id"]

	seen := make(map[string]struct{})
	var refs []string
	for _, token := range msgIDToken.FindAllString(combined, -1) {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		refs = append(refs, token)
	}
	return refs
}

// normalizeSubject strips a single leading re:/fwd: prefix, case-insensitive.
func normalizeSubject(subject string) string {
	return strings.TrimSpace(replyPrefixRE.ReplaceAllString(strings.TrimSpace(subject), ""))
}

// formatDate renders a date as ISO-8601, or "" when unknown. Unknown dates
// sort first when threads are ordered chronologically.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
