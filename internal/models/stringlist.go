package models

import (
	"encoding/json"
	"strings"
)

// StringList is an ordered list of strings that also accepts the legacy
// comma-delimited string encoding on input. Parsing stays a serialization
// concern at the API boundary; business logic only ever sees the slice.
type StringList []string

// UnmarshalJSON accepts either a JSON array of strings or a single delimited
// string ("Matematika, Fisika").
func (l *StringList) UnmarshalJSON(data []byte) error {
	var asSlice []string
	if err := json.Unmarshal(data, &asSlice); err == nil {
		*l = trimNonEmpty(asSlice)
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return err
	}
	*l = trimNonEmpty(strings.Split(asString, ","))
	return nil
}

func trimNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
