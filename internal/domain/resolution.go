package domain

import (
	"strings"
	"time"
)

// Resolution is the canonical candle width key used for storage and queries
type Resolution string

const (
	Resolution1Min   Resolution = "1"
	Resolution5Min   Resolution = "5"
	Resolution15Min  Resolution = "15"
	Resolution30Min  Resolution = "30"
	Resolution60Min  Resolution = "60"
	Resolution120Min Resolution = "120"
	Resolution240Min Resolution = "240"
	ResolutionDay    Resolution = "D"
	ResolutionWeek   Resolution = "W"
	ResolutionMonth  Resolution = "M"
)

// resolutionAliases maps accepted spellings to canonical keys.
// "1M" (month) is matched case-sensitively before lower-casing so it never collides with "1m".
var resolutionAliases = map[string]Resolution{
	"1m": Resolution1Min, "5m": Resolution5Min, "15m": Resolution15Min, "30m": Resolution30Min,
	"1h": Resolution60Min, "60m": Resolution60Min,
	"2h": Resolution120Min, "120m": Resolution120Min,
	"4h": Resolution240Min, "240m": Resolution240Min,
	"1d": ResolutionDay, "d": ResolutionDay,
	"1w": ResolutionWeek, "w": ResolutionWeek,
	"1mo": ResolutionMonth, "m": ResolutionMonth,
}

var canonicalResolutions = map[Resolution]struct{}{
	Resolution1Min: {}, Resolution5Min: {}, Resolution15Min: {}, Resolution30Min: {},
	Resolution60Min: {}, Resolution120Min: {}, Resolution240Min: {},
	ResolutionDay: {}, ResolutionWeek: {}, ResolutionMonth: {},
}

// NormalizeResolution converts an alias (1m, 1h, 1d, 1M, ...) or a canonical key into the canonical key
func NormalizeResolution(s string) (Resolution, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return "", NewError(KindMissingParameter, "resolution is required")
	}

	if raw == "1M" {
		return ResolutionMonth, nil
	}
	if _, ok := canonicalResolutions[Resolution(raw)]; ok {
		return Resolution(raw), nil
	}
	if r, ok := resolutionAliases[strings.ToLower(raw)]; ok {
		return r, nil
	}

	return "", NewError(KindInvalidResolution, "unsupported resolution %q", s)
}

// IsIntraday reports whether the resolution is a minute-based bar
func (r Resolution) IsIntraday() bool {
	return r.Duration() > 0
}

// Duration returns the bar width for intraday resolutions, 0 otherwise
func (r Resolution) Duration() time.Duration {
	switch r {
	case Resolution1Min:
		return time.Minute
	case Resolution5Min:
		return 5 * time.Minute
	case Resolution15Min:
		return 15 * time.Minute
	case Resolution30Min:
		return 30 * time.Minute
	case Resolution60Min:
		return time.Hour
	case Resolution120Min:
		return 2 * time.Hour
	case Resolution240Min:
		return 4 * time.Hour
	default:
		return 0
	}
}
