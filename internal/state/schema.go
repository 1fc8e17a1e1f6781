package state

// Schema contains SQL schema definitions for the state store
const Schema = `
-- One watermark per trigger instance: the highest UID already considered
-- delivered, with the UID-validity epoch it belongs to
CREATE TABLE IF NOT EXISTS watermarks (
    trigger_id TEXT PRIMARY KEY,
    mailbox TEXT NOT NULL,
    last_uid INTEGER NOT NULL,
    uid_validity INTEGER NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Materialized attachment binaries, keyed by the pipeline-assigned key
CREATE TABLE IF NOT EXISTS attachments (
    key TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    content_type TEXT NOT NULL,
    size INTEGER NOT NULL,
    content BLOB NOT NULL,
    stored_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_watermarks_mailbox ON watermarks(mailbox);
`
