package util

import (
	"strconv"
	"strings"
	"time"

	"github.com/userbotindo/anjani/internal/derror"
)

// ParseRestrictionTime parses short duration flags used by moderation
// commands: "30s", "10m", "2h", "7d". Returns the absolute until-time.
func ParseRestrictionTime(now time.Time, flag string) (time.Time, error) {
	flag = strings.TrimSpace(strings.ToLower(flag))
	if len(flag) < 2 {
		return time.Time{}, derror.ErrInvalidTimeFlag
	}

	unit := flag[len(flag)-1]
	n, err := strconv.Atoi(flag[:len(flag)-1])
	if err != nil || n <= 0 {
		return time.Time{}, derror.ErrInvalidTimeFlag
	}

	switch unit {
	case 's':
		return now.Add(time.Duration(n) * time.Second), nil
	case 'm':
		return now.Add(time.Duration(n) * time.Minute), nil
	case 'h':
		return now.Add(time.Duration(n) * time.Hour), nil
	case 'd':
		return now.Add(time.Duration(n) * 24 * time.Hour), nil
	default:
		return time.Time{}, derror.ErrInvalidTimeFlag
	}
}

// IsRestrictionFlag reports whether arg looks like a duration flag rather
// than a username or id.
func IsRestrictionFlag(arg string) bool {
	_, err := ParseRestrictionTime(time.Unix(0, 0), arg)
	return err == nil
}
