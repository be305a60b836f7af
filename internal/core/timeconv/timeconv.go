// Package timeconv converts ISO-8601 timestamps into the numeric time
// encoding of griddap time axes ("<unit> since <epoch>").
package timeconv

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultUnits is the encoding of griddap time axes that declare none.
const DefaultUnits = "seconds since 1970-01-01T00:00:00Z"

// YYYY[-MM[-DD[Thh[:mm][:ss][.fff][Z|+hh:mm]]]]
var iso8601Pattern = regexp.MustCompile(
	`^(\d{4})(?:-(\d\d)(?:-(\d\d)(?:T(\d\d)(?::(\d\d))?(?::(\d\d))?(\.\d+)?(Z|[+-]\d\d:\d\d)?)?)?)?$`)

var unitsPattern = regexp.MustCompile(`^(\w+)\s+since\s+(.+)$`)

func IsISO8601(s string) bool {
	return iso8601Pattern.MatchString(s)
}

// ParseISO8601 parses the griddap timestamp grammar. Omitted fields default
// to the start of the period and a missing zone means UTC.
func ParseISO8601(s string) (time.Time, error) {
	m := iso8601Pattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("not an ISO-8601 timestamp: %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	month := field(m[2], 1)
	day := field(m[3], 1)
	hour := field(m[4], 0)
	minute := field(m[5], 0)
	sec := field(m[6], 0)

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("timestamp %q: month %d out of range", s, month)
	}
	if day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, fmt.Errorf("timestamp %q: day %d out of range", s, day)
	}
	if hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("timestamp %q: time of day out of range", s)
	}

	nsec := 0
	if frac := m[7]; frac != "" {
		digits := frac[1:]
		if len(digits) > 9 {
			digits = digits[:9]
		}
		digits += strings.Repeat("0", 9-len(digits))
		nsec, _ = strconv.Atoi(digits)
	}

	loc := time.UTC
	if z := m[8]; z != "" && z != "Z" {
		oh, _ := strconv.Atoi(z[1:3])
		om, _ := strconv.Atoi(z[4:6])
		off := oh*3600 + om*60
		if z[0] == '-' {
			off = -off
		}
		loc = time.FixedZone(z, off)
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, nsec, loc).UTC(), nil
}

func field(s string, def int) int {
	if s == "" {
		return def
	}
	n, _ := strconv.Atoi(s)
	return n
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Units is a parsed "<unit> since <epoch>" time encoding.
type Units struct {
	seconds float64 // length of one unit in seconds
	epoch   time.Time
}

func ParseUnits(units string) (Units, error) {
	m := unitsPattern.FindStringSubmatch(strings.TrimSpace(units))
	if m == nil {
		return Units{}, fmt.Errorf("time units %q: expected \"<unit> since <epoch>\"", units)
	}
	secs, ok := unitSeconds(strings.ToLower(m[1]))
	if !ok {
		return Units{}, fmt.Errorf("time units %q: unsupported unit %q", units, m[1])
	}
	epoch, err := parseEpoch(m[2])
	if err != nil {
		return Units{}, fmt.Errorf("time units %q: %w", units, err)
	}
	return Units{seconds: secs, epoch: epoch}, nil
}

func unitSeconds(u string) (float64, bool) {
	switch u {
	case "millis", "millisecond", "milliseconds", "ms", "msec", "msecs":
		return 1e-3, true
	case "second", "seconds", "sec", "secs", "s":
		return 1, true
	case "minute", "minutes", "min", "mins":
		return 60, true
	case "hour", "hours", "hr", "hrs", "h":
		return 3600, true
	case "day", "days", "d":
		return 86400, true
	}
	return 0, false
}

// epochs also come in the CF "1970-01-01 00:00:00 UTC" spelling
func parseEpoch(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, " UTC")
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i] + "T" + strings.TrimSpace(s[i+1:])
	}
	return ParseISO8601(s)
}

func (u Units) Epoch() time.Time { return u.epoch }

// Encode returns t as a number of units since the epoch.
func (u Units) Encode(t time.Time) float64 {
	secs := float64(t.Unix()-u.epoch.Unix()) + float64(t.Nanosecond()-u.epoch.Nanosecond())/1e9
	return secs / u.seconds
}

// Decode is the inverse of Encode, rounded to the microsecond.
func (u Units) Decode(v float64) time.Time {
	secs := v * u.seconds
	whole := math.Floor(secs)
	nsec := math.Round((secs-whole)*1e6) * 1e3
	return time.Unix(u.epoch.Unix()+int64(whole), int64(u.epoch.Nanosecond())+int64(nsec)).UTC()
}

var errEmptyTimestamp = errors.New("empty timestamp")

// Encode converts an ISO-8601 timestamp into the numeric domain of units.
func Encode(timestamp, units string) (float64, error) {
	timestamp = strings.TrimSpace(timestamp)
	if timestamp == "" {
		return 0, errEmptyTimestamp
	}
	u, err := ParseUnits(units)
	if err != nil {
		return 0, err
	}
	t, err := ParseISO8601(timestamp)
	if err != nil {
		return 0, err
	}
	return u.Encode(t), nil
}
