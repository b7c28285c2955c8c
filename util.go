package longpoll

import "time"

// TimestampFormat is the layout of Item timestamps on the wire.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampFormat, s)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}

	return b
}
