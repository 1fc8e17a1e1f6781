package email

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	retry "github.com/StirlingMarketingGroup/go-retry"
	"github.com/dustin/go-humanize"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/pkg/types"
)

// dialRetryCount bounds connection-establishment retries. Only the dial is
// retried, never authentication.
const dialRetryCount = 3

// Flag mutation actions accepted by UpdateFlags.
const (
	FlagActionAdd     = "add"
	FlagActionRemove  = "remove"
	FlagActionReplace = "replace"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateMailboxOpen
)

// RawMessage is the protocol-level view of one fetched message: envelope,
// flags, dates and header block, plus the full source bytes when requested.
type RawMessage struct {
	UID          uint32
	SeqNum       uint32
	Envelope     *imap.Envelope
	Flags        []string
	InternalDate time.Time
	Header       []byte
	Raw          []byte
}

// Session owns one IMAP connection. It is not safe for concurrent use;
// each operation acquires its own short-lived session from a Dialer and
// releases it with Logout on every exit path.
type Session struct {
	cfg    *config.AccountConfig
	logger *logrus.Logger

	client  *client.Client
	state   connState
	mailbox string
	caps    map[string]bool

	// Wire seams, replaced in tests
	open       func(path string) error
	storeFlags func(seqSet *imap.SeqSet, item imap.StoreItem, values []interface{}) error
	copyTo     func(seqSet *imap.SeqSet, target string) error
	moveTo     func(seqSet *imap.SeqSet, target string) error
	expungeAll func() error
}

// Dialer creates sessions for one account.
type Dialer struct {
	cfg    *config.AccountConfig
	logger *logrus.Logger
}

// NewDialer creates a session factory for the given account
func NewDialer(cfg *config.AccountConfig, logger *logrus.Logger) *Dialer {
	return &Dialer{cfg: cfg, logger: logger}
}

// NewSession returns an unconnected session. Connect is lazy; operations
// call it themselves.
func (d *Dialer) NewSession() *Session {
	s := &Session{
		cfg:    d.cfg,
		logger: d.logger,
		state:  stateDisconnected,
	}
	s.open = s.OpenMailbox
	s.storeFlags = s.storeFlagsWire
	s.copyTo = s.copyWire
	s.moveTo = s.moveWire
	s.expungeAll = s.expungeWire
	return s
}

// ProbeCapability checks one capability on a throwaway connection.
func (d *Dialer) ProbeCapability(capability string) (bool, error) {
	s := d.NewSession()
	defer s.Logout()

	if err := s.Connect(); err != nil {
		return false, err
	}
	return s.Supports(capability), nil
}

// Connect establishes the connection and authenticates. Repeated calls on a
// live connection are no-ops.
func (c *Session) Connect() error {
	if c.state != stateDisconnected && c.client != nil {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	var cl *client.Client
	err := retry.Retry(func() error {
		var err error
		if c.cfg.TLS {
			tlsConfig := &tls.Config{
				ServerName: c.cfg.Host,
				MinVersion: tls.VersionTLS12,
			}
			if c.cfg.AllowInsecureTLS {
				tlsConfig.InsecureSkipVerify = true
			}
			cl, err = client.DialTLS(addr, tlsConfig)
		} else {
			cl, err = client.Dial(addr)
		}
		return err
	}, dialRetryCount, func(err error) error {
		c.logger.WithError(err).WithField("addr", addr).Warn("Connection attempt failed, retrying")
		return nil
	}, func() error {
		return nil
	})
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to connect to %s: %w", addr, err)}
	}

	if err := cl.Login(c.cfg.Username, c.cfg.Password); err != nil {
		cl.Logout() //nolint:errcheck
		return &ConnectionError{Err: fmt.Errorf("failed to login: %w", err)}
	}

	caps, err := cl.Capability()
	if err != nil {
		cl.Logout() //nolint:errcheck
		return &ConnectionError{Err: fmt.Errorf("failed to read capabilities: %w", err)}
	}

	c.client = cl
	c.caps = caps
	c.state = stateConnected
	c.mailbox = ""
	c.logger.WithField("host", c.cfg.Host).Debug("IMAP session connected")
	return nil
}

// Logout releases the connection. Safe to call multiple times and on a
// session that never fully connected.
func (c *Session) Logout() {
	if c.client != nil {
		if err := c.client.Logout(); err != nil {
			c.logger.WithError(err).Debug("Logout returned an error")
		}
		c.client = nil
	}
	c.state = stateDisconnected
	c.mailbox = ""
}

// opError classifies a failed command. Transport loss tears the session
// down to Disconnected and surfaces as ConnectionError; anything else is a
// server rejection reported as ProtocolError with the session intact.
func (c *Session) opError(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if c.client != nil {
			c.client.Terminate() //nolint:errcheck
			c.client = nil
		}
		c.state = stateDisconnected
		c.mailbox = ""
		c.caps = nil
		return &ConnectionError{Err: fmt.Errorf("%s failed: %w", op, err)}
	}
	return &ProtocolError{Op: op, Err: err}
}

// Supports reports whether the server advertised the given capability.
// Capabilities are resolved once at connect time.
func (c *Session) Supports(capability string) bool {
	return c.caps[strings.ToUpper(capability)]
}

// moveMethod picks the transfer strategy from the capability set.
func (c *Session) moveMethod() string {
	if c.Supports("MOVE") {
		return types.MoveMethodNative
	}
	return types.MoveMethodFallback
}

// OpenMailbox selects a mailbox for subsequent UID-scoped operations.
// Re-selects even when the same mailbox is already open, since the mailbox
// may have been mutated externally since the last select.
func (c *Session) OpenMailbox(path string) error {
	if err := c.Connect(); err != nil {
		return err
	}

	if _, err := c.client.Select(path, false); err != nil {
		return c.opError(fmt.Sprintf("select %q", path), err)
	}

	c.state = stateMailboxOpen
	c.mailbox = path
	return nil
}

// ListMailboxes returns all mailbox paths with delimiter, special-use tag
// and subscription state.
func (c *Session) ListMailboxes() ([]types.Folder, error) {
	if err := c.Connect(); err != nil {
		return nil, err
	}

	// Subscribed set first, so the LIST pass can annotate each folder
	subscribed := make(map[string]bool)
	lsubCh := make(chan *imap.MailboxInfo, 10)
	lsubDone := make(chan error, 1)
	go func() {
		lsubDone <- c.client.Lsub("", "*", lsubCh)
	}()
	for m := range lsubCh {
		subscribed[m.Name] = true
	}
	if err := <-lsubDone; err != nil {
		// Some servers reject LSUB; treat every folder as unsubscribed
		c.logger.WithError(err).Debug("LSUB failed, subscription state unavailable")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.client.List("", "*", mailboxes)
	}()

	var folders []types.Folder
	for m := range mailboxes {
		folders = append(folders, types.Folder{
			Path:       m.Name,
			Delimiter:  m.Delimiter,
			SpecialUse: specialUseAttribute(m.Attributes),
			Subscribed: subscribed[m.Name],
		})
	}

	if err := <-done; err != nil {
		return nil, c.opError("list", err)
	}

	return folders, nil
}

// specialUseAttribute picks the special-use tag out of a LIST attribute set.
func specialUseAttribute(attrs []string) string {
	for _, a := range attrs {
		switch a {
		case imap.AllAttr, imap.ArchiveAttr, imap.DraftsAttr, imap.FlaggedAttr,
			imap.JunkAttr, imap.SentAttr, imap.TrashAttr:
			return a
		}
	}
	return ""
}

// Status returns a read-only snapshot of a mailbox without selecting it.
// HighestModSeq is always zero: the wire library does not surface CONDSTORE
// status data.
func (c *Session) Status(mailbox string) (*types.MailboxStatus, error) {
	if err := c.Connect(); err != nil {
		return nil, err
	}

	status, err := c.client.Status(mailbox, []imap.StatusItem{
		imap.StatusMessages,
		imap.StatusUnseen,
		imap.StatusUidNext,
		imap.StatusUidValidity,
	})
	if err != nil {
		return nil, c.opError(fmt.Sprintf("status %q", mailbox), err)
	}

	return &types.MailboxStatus{
		Mailbox:     mailbox,
		Messages:    status.Messages,
		Unseen:      status.Unseen,
		UIDNext:     status.UidNext,
		UIDValidity: status.UidValidity,
	}, nil
}

// Search returns the UIDs matching the given criteria in a mailbox.
func (c *Session) Search(mailbox string, criteria *SearchCriteria) ([]uint32, error) {
	if criteria == nil {
		return nil, &ValidationError{Reason: "search criteria are required"}
	}
	if err := c.OpenMailbox(mailbox); err != nil {
		return nil, err
	}

	criteria.Normalize()
	uids, err := c.client.UidSearch(criteria.build())
	if err != nil {
		return nil, c.opError("search", err)
	}
	return uids, nil
}

// FetchOne fetches one message's envelope, flags, internal date and header
// block. The full raw source is included only when includeRaw is set.
func (c *Session) FetchOne(uid uint32, mailbox string, includeRaw bool) (*RawMessage, error) {
	if uid == 0 {
		return nil, &ValidationError{Reason: "uid is required"}
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	msgs, err := c.fetch(seqSet, mailbox, includeRaw)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, &NotFoundError{What: fmt.Sprintf("uid %d in %q", uid, mailbox)}
	}
	return msgs[0], nil
}

// FetchMany fetches envelope/flags/date/headers for a batch of UIDs, without
// raw source. An empty input returns an empty result with no round-trip.
func (c *Session) FetchMany(uids []uint32, mailbox string) ([]*RawMessage, error) {
	if len(uids) == 0 {
		return []*RawMessage{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)
	return c.fetch(seqSet, mailbox, false)
}

func (c *Session) fetch(seqSet *imap.SeqSet, mailbox string, includeRaw bool) ([]*RawMessage, error) {
	if err := c.OpenMailbox(mailbox); err != nil {
		return nil, err
	}

	headerSection := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier},
		Peek:         true,
	}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		headerSection.FetchItem(),
	}

	var rawSection *imap.BodySectionName
	if includeRaw {
		rawSection = &imap.BodySectionName{Peek: true}
		items = append(items, rawSection.FetchItem())
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	var result []*RawMessage
	for msg := range messages {
		raw := &RawMessage{
			UID:          msg.Uid,
			SeqNum:       msg.SeqNum,
			Envelope:     msg.Envelope,
			Flags:        append([]string{}, msg.Flags...),
			InternalDate: msg.InternalDate,
			Header:       readLiteral(msg.GetBody(headerSection)),
		}
		if rawSection != nil {
			raw.Raw = readLiteral(msg.GetBody(rawSection))
			c.logger.WithFields(logrus.Fields{
				"uid":  msg.Uid,
				"size": humanize.Bytes(uint64(len(raw.Raw))),
			}).Debug("Fetched raw source")
		}
		result = append(result, raw)
	}

	if err := <-done; err != nil {
		return nil, c.opError("fetch", err)
	}

	return result, nil
}

// UpdateFlags applies add/remove/replace semantics to the flag set of every
// UID in one batched protocol call.
func (c *Session) UpdateFlags(uids []uint32, mailbox, action string, flags []string) (*types.FlagUpdateResult, error) {
	if len(uids) == 0 {
		return nil, &ValidationError{Reason: "uid list is empty"}
	}
	if len(flags) == 0 {
		return nil, &ValidationError{Reason: "flag list is empty"}
	}

	var op imap.FlagsOp
	switch action {
	case FlagActionAdd:
		op = imap.AddFlags
	case FlagActionRemove:
		op = imap.RemoveFlags
	case FlagActionReplace:
		op = imap.SetFlags
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown flag action %q", action)}
	}

	if err := c.open(mailbox); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	item := imap.FormatFlagsOp(op, true)
	values := make([]interface{}, len(flags))
	for i, f := range flags {
		values[i] = f
	}

	if err := c.storeFlags(seqSet, item, values); err != nil {
		return nil, c.opError("store", err)
	}

	return &types.FlagUpdateResult{
		Updated: len(uids),
		Action:  action,
		Flags:   flags,
	}, nil
}

// Move transfers messages to another mailbox. With native MOVE support this
// is one atomic command; otherwise it falls back to copy, flag-delete and
// expunge. The fallback is not atomic: a failure between steps can leave
// messages present in both mailboxes. The result reports which method ran.
func (c *Session) Move(uids []uint32, source, target string) (*types.MoveResult, error) {
	if len(uids) == 0 {
		return nil, &ValidationError{Reason: "uid list is empty"}
	}
	if target == "" {
		return nil, &ValidationError{Reason: "target mailbox is required"}
	}

	if err := c.open(source); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	if c.moveMethod() == types.MoveMethodNative {
		if err := c.moveTo(seqSet, target); err != nil {
			return nil, c.opError("move", err)
		}
		return &types.MoveResult{Moved: len(uids), Method: types.MoveMethodNative}, nil
	}

	if err := c.copyTo(seqSet, target); err != nil {
		return nil, c.opError("copy", err)
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.storeFlags(seqSet, item, []interface{}{imap.DeletedFlag}); err != nil {
		return nil, c.opError("store \\Deleted", err)
	}

	if err := c.expungeAll(); err != nil {
		return nil, c.opError("expunge", err)
	}

	return &types.MoveResult{Moved: len(uids), Method: types.MoveMethodFallback}, nil
}

// Copy duplicates messages into another mailbox without removing the
// originals.
func (c *Session) Copy(uids []uint32, source, target string) (*types.CopyResult, error) {
	if len(uids) == 0 {
		return nil, &ValidationError{Reason: "uid list is empty"}
	}
	if target == "" {
		return nil, &ValidationError{Reason: "target mailbox is required"}
	}

	if err := c.open(source); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	if err := c.copyTo(seqSet, target); err != nil {
		return nil, c.opError("copy", err)
	}
	return &types.CopyResult{Copied: len(uids)}, nil
}

// Expunge permanently removes all messages flagged deleted in the mailbox.
// Irreversible.
func (c *Session) Expunge(mailbox string) error {
	if err := c.open(mailbox); err != nil {
		return err
	}
	if err := c.expungeAll(); err != nil {
		return c.opError("expunge", err)
	}
	return nil
}

// Watch runs IDLE on the currently open mailbox, invoking notify on every
// server-pushed mailbox update until stop is closed. The caller must have
// opened the mailbox first.
func (c *Session) Watch(stop <-chan struct{}, notify func()) error {
	if c.state != stateMailboxOpen {
		return &ValidationError{Reason: "a mailbox must be open before watching"}
	}

	updates := make(chan client.Update, 16)
	c.client.Updates = updates

	done := make(chan error, 1)
	go func() {
		done <- c.client.Idle(stop, nil)
	}()

	for {
		select {
		case update := <-updates:
			if _, ok := update.(*client.MailboxUpdate); ok {
				notify()
			}
		case err := <-done:
			return err
		}
	}
}

func (c *Session) storeFlagsWire(seqSet *imap.SeqSet, item imap.StoreItem, values []interface{}) error {
	return c.client.UidStore(seqSet, item, values, nil)
}

func (c *Session) copyWire(seqSet *imap.SeqSet, target string) error {
	return c.client.UidCopy(seqSet, target)
}

func (c *Session) moveWire(seqSet *imap.SeqSet, target string) error {
	return c.client.UidMove(seqSet, target)
}

func (c *Session) expungeWire() error {
	return c.client.Expunge(nil)
}

func readLiteral(literal imap.Literal) []byte {
	if literal == nil {
		return nil
	}
	data, err := io.ReadAll(literal)
	if err != nil {
		return nil
	}
	return data
}
