package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var newYork *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	newYork = loc
}

// ParseWindows parses a comma-separated "HH:MM-HH:MM" list. An empty string
// means "always active" (no windows configured).
func ParseWindows(raw string) ([]Window, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []Window
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		halves := strings.SplitN(part, "-", 2)
		if len(halves) != 2 {
			return nil, fmt.Errorf("malformed window %q", part)
		}
		start, err := parseHHMM(halves[0])
		if err != nil {
			return nil, fmt.Errorf("malformed window %q: %w", part, err)
		}
		end, err := parseHHMM(halves[1])
		if err != nil {
			return nil, fmt.Errorf("malformed window %q: %w", part, err)
		}
		out = append(out, Window{StartMin: start, EndMin: end})
	}
	return out, nil
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	hm := strings.SplitN(s, ":", 2)
	if len(hm) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(hm[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(hm[1])
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// InAnyWindow reports whether `now` (any timezone) falls inside at least one
// configured window, evaluated in New York time. No windows configured means
// always active. Overnight wraps (EndMin < StartMin) are supported.
func InAnyWindow(windows []Window, now time.Time) bool {
	if len(windows) == 0 {
		return true
	}
	ny := now.In(newYork)
	cur := ny.Hour()*60 + ny.Minute()
	for _, w := range windows {
		if w.EndMin >= w.StartMin {
			if cur >= w.StartMin && cur <= w.EndMin {
				return true
			}
		} else {
			// overnight wrap, e.g. 22:00-06:00
			if cur >= w.StartMin || cur <= w.EndMin {
				return true
			}
		}
	}
	return false
}
