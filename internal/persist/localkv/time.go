package localkv

import "time"

const timeLayout = time.RFC3339

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
