package webhook

import (
	"strconv"
	"time"
)

// timestampLayout is the timezone-less ISO-8601 layout used throughout the
// commit database.
const timestampLayout = "2006-01-02T15:04:05"

// localZone is a seam so tests can pin the rendering zone.
var localZone = time.Local

// NormalizeTimestamp converts a payload timestamp with an optional +HH/-HH
// UTC offset suffix into a local-time string without a timezone suffix.
//
// Strings of 19 characters or fewer are passed through unchanged (assumed
// already local). Otherwise the 19-character prefix is parsed, the stated
// whole-hour offset is applied to obtain UTC, and the result is re-rendered
// in the local zone. Sub-hour offsets are not handled.
func NormalizeTimestamp(t string) string {
	if len(t) <= 19 {
		return t
	}

	parsed, err := time.ParseInLocation(timestampLayout, t[0:19], time.UTC)
	if err != nil {
		return t
	}
	if len(t) >= 22 {
		hours, herr := strconv.Atoi(t[20:22])
		if herr == nil {
			switch t[19] {
			case '+':
				parsed = parsed.Add(-time.Duration(hours) * time.Hour)
			case '-':
				parsed = parsed.Add(time.Duration(hours) * time.Hour)
			}
		}
	}
	return parsed.In(localZone).Format(timestampLayout)
}
