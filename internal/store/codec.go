package store

import (
	json "github.com/goccy/go-json"
)

// Headers and query params live in TEXT columns as JSON objects. The
// codec keeps the mapping representation lossless across a round trip;
// callers only ever see map[string]string.

func encodeMap(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMap(s string) (map[string]string, error) {
	m := map[string]string{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
