package scheduler

import (
	"fmt"
	"strings"
	"time"

	cron "github.com/netresearch/go-cron"
)

var _parser = cron.MustNewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ValidateCron reports whether spec is a valid five-field cron expression.
func ValidateCron(spec string) error {
	if _, err := _parser.Parse(buildSpec(spec, "")); err != nil {
		return fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return nil
}

// NextAfter returns the next occurrence of spec strictly after `after`, evaluated in tz
// (UTC when empty).
func NextAfter(spec, tz string, after time.Time) (time.Time, error) {
	schedule, err := _parser.Parse(buildSpec(spec, tz))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return schedule.Next(after), nil
}

func buildSpec(spec, tz string) string {
	if strings.HasPrefix(spec, "CRON_TZ=") || strings.HasPrefix(spec, "TZ=") {
		return spec
	}
	if tz == "" {
		tz = "UTC"
	}
	return "CRON_TZ=" + tz + " " + spec
}
