package service

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// An empty string yields nil.
func ParseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD or RFC 3339", ErrValidation, field)
}
