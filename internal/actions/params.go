package actions

import (
	"fmt"
	"strings"

	"github.com/brandon/mailflow/internal/email"
)

// stringParam reads an optional string parameter
func stringParam(params map[string]interface{}, key, defaultValue string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return defaultValue
}

// boolParam reads an optional boolean parameter
func boolParam(params map[string]interface{}, key string) bool {
	v, _ := params[key].(bool)
	return v
}

// uintParam reads a numeric parameter. JSON numbers arrive as float64;
// string forms are tolerated for host runtimes that stringify everything.
func uintParam(params map[string]interface{}, key string) uint32 {
	switch v := params[key].(type) {
	case float64:
		if v > 0 {
			return uint32(v)
		}
	case string:
		uids := email.ParseUIDList(v)
		if len(uids) == 1 {
			return uids[0]
		}
	}
	return 0
}

// int64Param reads a numeric parameter as int64
func int64Param(params map[string]interface{}, key string) int64 {
	if v, ok := params[key].(float64); ok && v > 0 {
		return int64(v)
	}
	return 0
}

// uidListParam reads a UID list given either as a comma-separated string
// (parsed leniently) or as a JSON array of numbers.
func uidListParam(params map[string]interface{}, key string) []uint32 {
	switch v := params[key].(type) {
	case string:
		return email.ParseUIDList(v)
	case []interface{}:
		var uids []uint32
		for _, item := range v {
			if n, ok := item.(float64); ok && n > 0 {
				uids = append(uids, uint32(n))
			}
		}
		return uids
	}
	return nil
}

// stringListParam reads a list of strings given as an array or a CSV string
func stringListParam(params map[string]interface{}, key string) []string {
	switch v := params[key].(type) {
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return splitCSV(v)
	}
	return nil
}

func splitCSV(csv string) []string {
	var out []string
	for _, token := range strings.Split(csv, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

// requireMailbox reads the mailbox parameter, defaulting to INBOX
func requireMailbox(params map[string]interface{}) string {
	return stringParam(params, "mailbox", "INBOX")
}

// itemError is the structured failure record collected in
// continue-on-fail mode.
func itemError(uid uint32, err error) map[string]interface{} {
	return map[string]interface{}{
		"uid":   uid,
		"error": fmt.Sprintf("%v", err),
	}
}
