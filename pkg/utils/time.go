package utils

import "time"

// Timestamp formats t as UTC RFC3339. Stored records and API responses all
// use this form.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
