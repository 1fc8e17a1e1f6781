package trigger

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/internal/email"
	"github.com/brandon/mailflow/internal/state"
	"github.com/brandon/mailflow/pkg/types"
)

type memWatermarkStore struct {
	mu         sync.Mutex
	watermarks map[string]state.Watermark
}

func newMemWatermarkStore() *memWatermarkStore {
	return &memWatermarkStore{watermarks: make(map[string]state.Watermark)}
}

func (s *memWatermarkStore) GetWatermark(triggerID string) (*state.Watermark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.watermarks[triggerID]
	if !ok {
		return nil, nil
	}
	cp := w
	return &cp, nil
}

func (s *memWatermarkStore) SetWatermark(w *state.Watermark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermarks[w.TriggerID] = *w
	return nil
}

type engineHarness struct {
	engine    *Engine
	store     *memWatermarkStore
	processed []uint32
}

func newEngineHarness(t *testing.T) *engineHarness {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &engineHarness{store: newMemWatermarkStore()}
	cfg := &config.TriggerConfig{
		ID:             "t1",
		Mailbox:        "INBOX",
		Mode:           config.ModePoll,
		OutputFormat:   config.FormatFull,
		AttachmentMode: config.AttachmentsNone,
	}
	h.engine = NewEngine(cfg, nil, h.store, nil, logger, func(map[string]interface{}) {})
	h.engine.process = func(uid uint32) error {
		h.processed = append(h.processed, uid)
		return nil
	}
	return h
}

func (h *engineHarness) setStatus(uidNext, uidValidity uint32) {
	h.engine.readStatus = func() (*types.MailboxStatus, error) {
		return &types.MailboxStatus{
			Mailbox:     "INBOX",
			UIDNext:     uidNext,
			UIDValidity: uidValidity,
		}, nil
	}
}

func (h *engineHarness) watermark(t *testing.T) *state.Watermark {
	t.Helper()
	w, err := h.store.GetWatermark("t1")
	require.NoError(t, err)
	require.NotNil(t, w)
	return w
}

func TestPollFirstRunInitializesWithoutEmitting(t *testing.T) {
	h := newEngineHarness(t)
	h.setStatus(51, 7)

	h.engine.Poll()

	assert.Empty(t, h.processed)
	w := h.watermark(t)
	assert.Equal(t, uint32(50), w.LastUID)
	assert.Equal(t, uint32(7), w.UIDValidity)
}

func TestPollEmitsNewMessagesAscending(t *testing.T) {
	h := newEngineHarness(t)
	h.setStatus(51, 7)
	h.engine.Poll()

	h.setStatus(53, 7)
	h.engine.Poll()

	assert.Equal(t, []uint32{51, 52}, h.processed)
	assert.Equal(t, uint32(52), h.watermark(t).LastUID)
}

func TestPollNoChangeIsQuiet(t *testing.T) {
	h := newEngineHarness(t)
	h.setStatus(51, 7)
	h.engine.Poll()
	h.engine.Poll()
	h.engine.Poll()

	assert.Empty(t, h.processed)
	assert.Equal(t, uint32(50), h.watermark(t).LastUID)
}

func TestPollUIDValidityChangeResetsWatermark(t *testing.T) {
	h := newEngineHarness(t)
	h.setStatus(51, 7)
	h.engine.Poll()

	// the mailbox was rebuilt: validity changed and UIDs restarted
	h.setStatus(11, 8)
	h.engine.Poll()

	assert.Empty(t, h.processed)
	w := h.watermark(t)
	assert.Equal(t, uint32(10), w.LastUID)
	assert.Equal(t, uint32(8), w.UIDValidity)

	h.setStatus(13, 8)
	h.engine.Poll()
	assert.Equal(t, []uint32{11, 12}, h.processed)
}

func TestPollSkipsExpungedUIDGaps(t *testing.T) {
	h := newEngineHarness(t)
	h.setStatus(11, 7)
	h.engine.Poll()

	h.engine.process = func(uid uint32) error {
		if uid == 12 {
			return &email.NotFoundError{What: "uid 12"}
		}
		h.processed = append(h.processed, uid)
		return nil
	}
	h.setStatus(14, 7)
	h.engine.Poll()

	assert.Equal(t, []uint32{11, 13}, h.processed)
	assert.Equal(t, uint32(13), h.watermark(t).LastUID)
}

func TestPollProcessErrorHaltsWithoutAdvancing(t *testing.T) {
	h := newEngineHarness(t)
	h.setStatus(11, 7)
	h.engine.Poll()

	h.engine.process = func(uid uint32) error {
		if uid == 12 {
			return errors.New("fetch failed")
		}
		h.processed = append(h.processed, uid)
		return nil
	}
	h.setStatus(14, 7)
	h.engine.Poll()

	// uid 11 was emitted but the watermark stays put, so the failed cycle
	// is retried in full next time
	assert.Equal(t, []uint32{11}, h.processed)
	assert.Equal(t, uint32(10), h.watermark(t).LastUID)
}

func TestPollEmptyMailboxFirstRun(t *testing.T) {
	h := newEngineHarness(t)
	h.setStatus(1, 7)
	h.engine.Poll()

	assert.Empty(t, h.processed)
	assert.Equal(t, uint32(0), h.watermark(t).LastUID)

	h.setStatus(2, 7)
	h.engine.Poll()
	assert.Equal(t, []uint32{1}, h.processed)
}

func TestPollOverlapIsSkippedNotQueued(t *testing.T) {
	h := newEngineHarness(t)
	h.setStatus(51, 7)
	h.engine.Poll()

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	h.engine.process = func(uid uint32) error {
		calls++
		if calls == 1 {
			close(entered)
			<-release
		}
		return nil
	}
	h.setStatus(53, 7)

	done := make(chan struct{})
	go func() {
		h.engine.Poll()
		close(done)
	}()

	<-entered
	// second entry while the first cycle is still in flight must be a no-op
	h.engine.Poll()
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poll cycle did not finish")
	}
	assert.Equal(t, 2, calls)
}

// stubMailClient serves one canned message for enrichment without a
// connection.
type stubMailClient struct {
	msg *email.RawMessage
}

func (c *stubMailClient) FetchOne(uid uint32, mailbox string, includeRaw bool) (*email.RawMessage, error) {
	cp := *c.msg
	if !includeRaw {
		cp.Raw = nil
	}
	return &cp, nil
}

func (c *stubMailClient) FetchMany(uids []uint32, mailbox string) ([]*email.RawMessage, error) {
	return nil, nil
}

func (c *stubMailClient) Search(mailbox string, criteria *email.SearchCriteria) ([]uint32, error) {
	return nil, nil
}

func TestEmissionFormatsCarryParsedBody(t *testing.T) {
	h := newEngineHarness(t)
	client := &stubMailClient{msg: &email.RawMessage{
		UID:    7,
		Header: []byte("Subject: Hi\r\n\r\n"),
		Raw:    []byte("Subject: Hi\r\nContent-Type: text/plain\r\n\r\nHello body text"),
	}}

	// full and headersSnippet both render the parsed body, so the emission
	// path must fetch and parse the source even with attachments disabled
	h.engine.cfg.OutputFormat = config.FormatFull
	msg, err := email.Enrich(client, "INBOX", 7, h.engine.enrichOptions(7))
	require.NoError(t, err)
	record := FormatRecord(msg, config.FormatFull)
	body, ok := record["body"].(types.Body)
	require.True(t, ok)
	assert.Equal(t, "Hello body text", strings.TrimSpace(body.Text))

	h.engine.cfg.OutputFormat = config.FormatHeadersSnippet
	msg, err = email.Enrich(client, "INBOX", 7, h.engine.enrichOptions(7))
	require.NoError(t, err)
	record = FormatRecord(msg, config.FormatHeadersSnippet)
	snippet, ok := record["snippet"].(string)
	require.True(t, ok)
	assert.Equal(t, "Hello body text", strings.TrimSpace(snippet))

	h.engine.cfg.OutputFormat = config.FormatRaw
	msg, err = email.Enrich(client, "INBOX", 7, h.engine.enrichOptions(7))
	require.NoError(t, err)
	record = FormatRecord(msg, config.FormatRaw)
	assert.NotEmpty(t, record["raw"])
	assert.NotContains(t, record, "body")
}

func TestSplitFlagsCSV(t *testing.T) {
	assert.Equal(t, []string{"\\Flagged", "processed"}, splitFlagsCSV("\\Flagged, processed"))
	assert.Nil(t, splitFlagsCSV(""))
	assert.Nil(t, splitFlagsCSV(" , ,"))
}
