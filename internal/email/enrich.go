package email

import (
	"bytes"

	"github.com/jhillyerd/enmime"

	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/pkg/types"
)

// Client is the session surface the enrichment pipeline and thread resolver
// consume. *Session satisfies it.
type Client interface {
	FetchOne(uid uint32, mailbox string, includeRaw bool) (*RawMessage, error)
	FetchMany(uids []uint32, mailbox string) ([]*RawMessage, error)
	Search(mailbox string, criteria *SearchCriteria) ([]uint32, error)
}

// EnrichOptions controls one run of the enrichment pipeline.
type EnrichOptions struct {
	IncludeRaw bool

	// ParseBody fetches and parses the source for its text/HTML body even
	// when the raw bytes themselves are not wanted in the output.
	ParseBody bool

	AttachmentMode  string
	BinaryKeyPrefix string
	Filter          AttachmentFilter
	Binary          BinaryStore
}

// Enrich fetches one message and merges protocol-level envelope/flag data
// with the MIME-parsed body and attachments into a single record. The raw
// source is fetched whenever the parsed body or attachments are requested,
// regardless of IncludeRaw, since both are derived by re-parsing the source.
func Enrich(c Client, mailbox string, uid uint32, opts EnrichOptions) (*types.Message, error) {
	includeRaw := opts.IncludeRaw || opts.ParseBody ||
		opts.AttachmentMode == config.AttachmentsMetadata ||
		opts.AttachmentMode == config.AttachmentsBinary

	raw, err := c.FetchOne(uid, mailbox, includeRaw)
	if err != nil {
		return nil, err
	}

	msg := buildRecord(raw, mailbox)
	if opts.IncludeRaw {
		msg.Raw = raw.Raw
	}

	var parts []*enmime.Part
	if len(raw.Raw) > 0 {
		env, err := enmime.ReadEnvelope(bytes.NewReader(raw.Raw))
		if err != nil {
			// Unparseable source: degrade to the raw text rather than
			// dropping the message
			msg.Body.Text = string(raw.Raw)
		} else {
			msg.Body.Text = env.Text
			msg.Body.HTML = env.HTML
			parts = attachmentParts(env)
		}
	}

	if opts.AttachmentMode == config.AttachmentsNone {
		return msg, nil
	}

	attachments, err := projectAttachments(parts, opts.Filter, opts.AttachmentMode, opts.BinaryKeyPrefix, opts.Binary)
	if err != nil {
		return nil, err
	}
	msg.Attachments = attachments

	return msg, nil
}

// buildRecord maps the protocol-level fetch result onto the output record.
// Thread metadata and flattened addresses are always populated.
func buildRecord(raw *RawMessage, mailbox string) *types.Message {
	headers := parseHeaderBlock(raw.Header)

	msg := &types.Message{
		UID:         raw.UID,
		SeqNum:      raw.SeqNum,
		Mailbox:     mailbox,
		Flags:       raw.Flags,
		Headers:     headers,
		Attachments: []types.Attachment{},
		Thread: types.ThreadMeta{
			References: extractReferences(headers),
			InReplyTo:  headers["In-Reply-To"],
		},
	}

	if env := raw.Envelope; env != nil {
		msg.MessageID = env.MessageId
		msg.Subject = env.Subject
		msg.From = flattenAddresses(env.From)
		msg.To = flattenAddresses(env.To)
		msg.Cc = flattenAddresses(env.Cc)
		if !env.Date.IsZero() {
			msg.Date = formatDate(env.Date)
		} else {
			msg.Date = formatDate(raw.InternalDate)
		}
	} else {
		msg.From = []types.Address{}
		msg.To = []types.Address{}
		msg.Cc = []types.Address{}
		msg.Date = formatDate(raw.InternalDate)
	}

	return msg
}

// attachmentParts collects regular attachments plus named inline parts
// (inline images carry filenames and are attachments for our purposes).
func attachmentParts(env *enmime.Envelope) []*enmime.Part {
	parts := make([]*enmime.Part, 0, len(env.Attachments)+len(env.Inlines))
	parts = append(parts, env.Attachments...)
	for _, inline := range env.Inlines {
		if inline.FileName != "" {
			parts = append(parts, inline)
		}
	}
	return parts
}
