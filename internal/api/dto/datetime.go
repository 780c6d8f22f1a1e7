package dto

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var errEmptyDateTime = errors.New("empty date time")

// DateTime accepts RFC 3339 timestamps as well as the zone-less forms sent by
// browser date pickers, which are read as UTC.
type DateTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errEmptyDateTime
	}
	var lastErr error
	for _, layout := range dateTimeLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			d.Time = parsed.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}
