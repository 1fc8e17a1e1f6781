package types

// Address is one flattened name/address pair from an envelope address list.
type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ThreadMeta carries the threading identifiers extracted from a message's
// headers. References holds every bracket-delimited token found in the
// References header; InReplyTo is the raw In-Reply-To header value.
type ThreadMeta struct {
	References []string `json:"references"`
	InReplyTo  string   `json:"inReplyTo"`
}

// Body holds the parsed message body. Both fields are empty when the raw
// source was not fetched.
type Body struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// Attachment is the metadata record for one attachment that survived
// filtering. BinaryKey is set only when binary content was materialized.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	BinaryKey   string `json:"binaryKey,omitempty"`
}

// Message is the enriched record produced by the enrichment pipeline.
// Date is ISO-8601 or empty when the envelope carried no usable date.
// UID and SeqNum are valid only for the mailbox the message was fetched
// from, and only while that mailbox's UID validity holds.
type Message struct {
	UID         uint32            `json:"uid"`
	SeqNum      uint32            `json:"seqNum"`
	Mailbox     string            `json:"mailbox"`
	MessageID   string            `json:"messageId"`
	Subject     string            `json:"subject"`
	Date        string            `json:"date"`
	From        []Address         `json:"from"`
	To          []Address         `json:"to"`
	Cc          []Address         `json:"cc"`
	Flags       []string          `json:"flags"`
	Headers     map[string]string `json:"headers"`
	Thread      ThreadMeta        `json:"thread"`
	Body        Body              `json:"body"`
	Attachments []Attachment      `json:"attachments"`
	Raw         []byte            `json:"raw,omitempty"`
}

// Folder describes one mailbox returned by a LIST.
type Folder struct {
	Path       string `json:"path"`
	Delimiter  string `json:"delimiter"`
	SpecialUse string `json:"specialUse,omitempty"`
	Subscribed bool   `json:"subscribed"`
}

// MailboxStatus is a read-only snapshot of a mailbox. HighestModSeq is zero
// when the server (or the wire library) does not expose CONDSTORE.
type MailboxStatus struct {
	Mailbox       string `json:"mailbox"`
	Messages      uint32 `json:"messages"`
	Unseen        uint32 `json:"unseen"`
	UIDNext       uint32 `json:"uidNext"`
	UIDValidity   uint32 `json:"uidValidity"`
	HighestModSeq uint64 `json:"highestModSeq"`
}

// FlagUpdateResult summarizes one batched flag mutation.
type FlagUpdateResult struct {
	Updated int      `json:"updated"`
	Action  string   `json:"action"`
	Flags   []string `json:"flags"`
}

// Move method names reported in MoveResult.
const (
	MoveMethodNative   = "move"
	MoveMethodFallback = "copy+delete+expunge"
)

// MoveResult reports how a move was executed. Callers must check Method:
// the fallback path is not atomic and a partial failure can leave messages
// present in both mailboxes.
type MoveResult struct {
	Moved  int    `json:"moved"`
	Method string `json:"method"`
}

// CopyResult summarizes a copy operation.
type CopyResult struct {
	Copied int `json:"copied"`
}
