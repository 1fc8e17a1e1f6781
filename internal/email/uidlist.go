package email

import (
	"strconv"
	"strings"
)

// ParseUIDList parses a comma-separated UID list leniently: non-numeric and
// non-positive tokens are dropped, not rejected.
func ParseUIDList(s string) []uint32 {
	var uids []uint32
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		n, err := strconv.ParseUint(token, 10, 32)
		if err != nil || n == 0 {
			continue
		}
		uids = append(uids, uint32(n))
	}
	return uids
}
