package web

import (
	"html/template"
	"time"

	"github.com/mergestat/timediff"
)

// backendTimeLayouts are the timestamp formats the backend emits. Values
// without a zone are UTC.
var backendTimeLayouts = []string{
	"2006-01-02T15:04:05.999999",
	time.RFC3339Nano,
}

var templateFuncs = template.FuncMap{
	"ago": formatRelativeTime,
}

// formatRelativeTime formats a backend timestamp as "3 hours ago". Values
// that don't parse are shown as they are.
func formatRelativeTime(ts string) string {
	for _, layout := range backendTimeLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return timediff.TimeDiff(t)
		}
	}
	return ts
}
