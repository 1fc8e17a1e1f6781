package state

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := Open(filepath.Join(t.TempDir(), "nested", "state.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db, logger)
}

func TestWatermarkRoundtrip(t *testing.T) {
	store := testStore(t)

	w, err := store.GetWatermark("t1")
	require.NoError(t, err)
	assert.Nil(t, w)

	require.NoError(t, store.SetWatermark(&Watermark{
		TriggerID:   "t1",
		Mailbox:     "INBOX",
		LastUID:     50,
		UIDValidity: 7,
	}))

	w, err = store.GetWatermark("t1")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "INBOX", w.Mailbox)
	assert.Equal(t, uint32(50), w.LastUID)
	assert.Equal(t, uint32(7), w.UIDValidity)
}

func TestWatermarkUpsert(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.SetWatermark(&Watermark{TriggerID: "t1", Mailbox: "INBOX", LastUID: 50, UIDValidity: 7}))
	require.NoError(t, store.SetWatermark(&Watermark{TriggerID: "t1", Mailbox: "INBOX", LastUID: 52, UIDValidity: 7}))

	w, err := store.GetWatermark("t1")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, uint32(52), w.LastUID)
}

func TestWatermarksAreIndependentPerTrigger(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.SetWatermark(&Watermark{TriggerID: "t1", Mailbox: "INBOX", LastUID: 10}))
	require.NoError(t, store.SetWatermark(&Watermark{TriggerID: "t2", Mailbox: "Archive", LastUID: 99}))

	w1, err := store.GetWatermark("t1")
	require.NoError(t, err)
	w2, err := store.GetWatermark("t2")
	require.NoError(t, err)

	assert.Equal(t, uint32(10), w1.LastUID)
	assert.Equal(t, uint32(99), w2.LastUID)
}

func TestAttachmentRoundtrip(t *testing.T) {
	store := testStore(t)
	content := []byte("%PDF-1.4 fake")

	require.NoError(t, store.Put("t1_7_0", "report.pdf", "application/pdf", content))

	filename, contentType, got, err := store.GetAttachment("t1_7_0")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", filename)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, content, got)
}

func TestAttachmentReplaceOnSameKey(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.Put("k", "a.bin", "application/octet-stream", []byte("old")))
	require.NoError(t, store.Put("k", "b.bin", "application/octet-stream", []byte("newer")))

	filename, _, content, err := store.GetAttachment("k")
	require.NoError(t, err)
	assert.Equal(t, "b.bin", filename)
	assert.Equal(t, []byte("newer"), content)
}

func TestAttachmentMissingKey(t *testing.T) {
	store := testStore(t)

	_, _, _, err := store.GetAttachment("missing")
	assert.Error(t, err)
}
