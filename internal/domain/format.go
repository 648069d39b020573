package domain

import (
	"fmt"
	"math"
	"time"
)

// displayZone is the fixed offset used for human-readable event times.
var displayZone = time.FixedZone("UTC+03:00", 3*60*60)

// FormatCoordinates renders a [lon, lat] pair as "35.200°N 120.500°W".
func FormatCoordinates(coords [2]float64) string {
	lon, lat := coords[0], coords[1]
	ns := "N"
	if lat < 0 {
		ns = "S"
	}
	ew := "E"
	if lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.3f°%s %.3f°%s", math.Abs(lat), ns, math.Abs(lon), ew)
}

// FormatOccurredAt renders an epoch-millisecond timestamp in UTC+03:00,
// e.g. "2024-04-26 18:10:00 (UTC+03:00)".
func FormatOccurredAt(ms int64) string {
	return time.UnixMilli(ms).In(displayZone).Format("2006-01-02 15:04:05") + " (UTC+03:00)"
}
