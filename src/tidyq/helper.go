package tidyq

import (
	"bytes"
	"encoding/json"
	"time"
)

// QueueKeys holds the store keys backing one queue. All four share the
// queue's hash tag so they live in the same cluster slot.
type QueueKeys struct {
	Values  string
	Pending string
	Working string
	Results string
}

func QueueBase(queueName string) string {
	if containsHashTag(queueName) {
		return queueName
	}
	return "{" + queueName + "}"
}

func KeysFor(queueName string) QueueKeys {
	base := QueueBase(queueName)
	return QueueKeys{
		Values:  base + ":values",
		Pending: base + ":pending",
		Working: base + ":working",
		Results: base + ":results",
	}
}

func containsHashTag(s string) bool {
	hasOpen := false
	for _, r := range s {
		if r == '{' {
			hasOpen = true
		}
		if hasOpen && r == '}' {
			return true
		}
	}
	return false
}

func NowMs() int64 {
	return time.Now().UnixMilli()
}

func jsonCompactNoEscape(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return "", err
	}

	b := bytes.TrimRight(buf.Bytes(), "\n")
	return string(b), nil
}
