// Copyright 2025 Takhin Data, Inc.

package warmer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseInterval parses the minimal "*/N * * * *" cron dialect spec.md §9
// accepts in place of full cron: every field must be "*" except the minute
// field, which must be "*/N". Returns the resulting interval (N minutes).
func parseInterval(expr string) (time.Duration, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return 0, fmt.Errorf("warmer: unsupported cron expression %q: want 5 fields", expr)
	}

	minute := fields[0]
	for _, f := range fields[1:] {
		if f != "*" {
			return 0, fmt.Errorf("warmer: unsupported cron expression %q: only a minute-step pattern is supported", expr)
		}
	}

	if !strings.HasPrefix(minute, "*/") {
		return 0, fmt.Errorf("warmer: unsupported cron expression %q: minute field must be \"*/N\"", expr)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(minute, "*/"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("warmer: unsupported cron expression %q: invalid step", expr)
	}

	return time.Duration(n) * time.Minute, nil
}
