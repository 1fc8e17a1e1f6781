package email

import (
	"fmt"
	"sort"

	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/pkg/types"
)

// ResolveUID resolves a message identifier to a UID. A non-zero uid is used
// as-is; otherwise the mailbox is searched for an exact Message-ID header
// match and the first result wins (search ordering is protocol-defined, not
// chronological).
func ResolveUID(c Client, mailbox string, uid uint32, messageID string) (uint32, error) {
	if uid != 0 {
		return uid, nil
	}
	if messageID == "" {
		return 0, &ValidationError{Reason: "either uid or messageId is required"}
	}

	uids, err := c.Search(mailbox, &SearchCriteria{
		Header: map[string]string{"Message-ID": messageID},
	})
	if err != nil {
		return 0, err
	}
	if len(uids) == 0 {
		return 0, &NotFoundError{What: fmt.Sprintf("message-id %q in %q", messageID, mailbox)}
	}
	return uids[0], nil
}

// ResolveThread computes the set of messages threaded with the seed via
// one-hop reference expansion in a single mailbox. References found in
// newly discovered messages are not expanded further. Results are sorted
// by date ascending; messages without a date sort first.
func ResolveThread(c Client, mailbox string, seedUID uint32, subjectFallback bool) ([]*types.Message, error) {
	seed, err := Enrich(c, mailbox, seedUID, EnrichOptions{AttachmentMode: config.AttachmentsNone})
	if err != nil {
		return nil, err
	}

	refs := seed.Thread.References

	threadSet := map[uint32]struct{}{seedUID: {}}
	for _, ref := range refs {
		uids, err := c.Search(mailbox, &SearchCriteria{
			Header: map[string]string{"Message-ID": ref},
		})
		if err != nil {
			return nil, err
		}
		for _, uid := range uids {
			threadSet[uid] = struct{}{}
		}
	}

	// Header-based threading found nothing beyond the seed's own identity:
	// optionally fall back to one subject-substring search
	if subjectFallback && len(refs) <= 1 {
		if subject := normalizeSubject(seed.Subject); subject != "" {
			uids, err := c.Search(mailbox, &SearchCriteria{Subject: subject})
			if err != nil {
				return nil, err
			}
			for _, uid := range uids {
				threadSet[uid] = struct{}{}
			}
		}
	}

	uids := make([]uint32, 0, len(threadSet))
	for uid := range threadSet {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	raws, err := c.FetchMany(uids, mailbox)
	if err != nil {
		return nil, err
	}

	messages := make([]*types.Message, 0, len(raws))
	for _, raw := range raws {
		messages = append(messages, buildRecord(raw, mailbox))
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Date < messages[j].Date
	})

	return messages, nil
}
