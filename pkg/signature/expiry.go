package signature

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

var relativeExpiry = regexp.MustCompile(
	`^([+-]?)\s*(\d+)\s*(sec|second|min|minute|hour|day|week)s?$`)

var relativeUnits = map[string]time.Duration{
	"sec":    time.Second,
	"second": time.Second,
	"min":    time.Minute,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
}

// ParseExpiry resolves expr to a Unix epoch. Accepted forms:
//
//	"1234567890"   absolute epoch, returned unchanged
//	"+15 minutes"  relative to now; units sec(ond), min(ute), hour, day, week
//	"-2 days"      relative, in the past
//	"90m"          Go duration, relative to now
func ParseExpiry(expr string, now time.Time) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, pserr.New(pserr.CodeValidationRequired, "signature: expiry is required")
	}

	if epoch, err := strconv.ParseInt(expr, 10, 64); err == nil && expr[0] != '+' && expr[0] != '-' {
		return epoch, nil
	}

	if m := relativeExpiry.FindStringSubmatch(strings.ToLower(expr)); m != nil {
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, pserr.Wrapf(err, pserr.CodeValidationFormat,
				"signature: invalid expiry %q", expr)
		}
		offset := time.Duration(n) * relativeUnits[m[3]]
		if m[1] == "-" {
			offset = -offset
		}
		return now.Add(offset).Unix(), nil
	}

	if d, err := time.ParseDuration(expr); err == nil {
		return now.Add(d).Unix(), nil
	}

	return 0, pserr.Newf(pserr.CodeValidationFormat,
		"signature: unrecognised expiry %q", expr)
}
