package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lnies/pressure-display/internal/models"
)

// timestampLayout is month/day/year hour:minute:second on a 24-hour clock.
// Single-digit fields are accepted.
const timestampLayout = "1/2/2006 15:4:5"

// Meridiem is the AM/PM marker found at the end of a clock string.
type Meridiem int

const (
	MeridiemUnrecognized Meridiem = iota
	MeridiemAM
	MeridiemPM
)

func (m Meridiem) String() string {
	switch m {
	case MeridiemAM:
		return "AM"
	case MeridiemPM:
		return "PM"
	default:
		return "unrecognized"
	}
}

// MeridiemOf classifies the last two characters of a raw clock string.
func MeridiemOf(clock string) Meridiem {
	if len(clock) < 2 {
		return MeridiemUnrecognized
	}
	switch clock[len(clock)-2:] {
	case "AM":
		return MeridiemAM
	case "PM":
		return MeridiemPM
	default:
		return MeridiemUnrecognized
	}
}

// MarkerPolicy decides what happens to a clock whose marker is neither AM
// nor PM.
type MarkerPolicy int

const (
	// MarkerAssumePM treats every marker other than AM as PM. This is how
	// the logger output has always been read.
	MarkerAssumePM MarkerPolicy = iota
	// MarkerStrict rejects unrecognized markers as malformed timestamps.
	MarkerStrict
)

// Marker policy names accepted by ParseMarkerPolicy.
const (
	MarkerPolicyAssumePM = "assume-pm"
	MarkerPolicyStrict   = "strict"
)

func (p MarkerPolicy) String() string {
	if p == MarkerStrict {
		return MarkerPolicyStrict
	}
	return MarkerPolicyAssumePM
}

// ParseMarkerPolicy parses a marker policy name, ignoring case. An empty
// name is MarkerAssumePM.
func ParseMarkerPolicy(s string) (MarkerPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", MarkerPolicyAssumePM:
		return MarkerAssumePM, nil
	case MarkerPolicyStrict:
		return MarkerStrict, nil
	default:
		return MarkerAssumePM, fmt.Errorf("unknown marker policy %q", s)
	}
}

// Normalizer rebuilds absolute timestamps from the logger's date and
// 12-hour clock columns.
type Normalizer struct {
	Policy   MarkerPolicy
	Location *time.Location // nil means UTC
}

// Timestamp converts a MM/DD/YYYY date and an HH:MM:SS{AM|PM} clock into
// an absolute time with second resolution. Sub-second digits are dropped.
func (n Normalizer) Timestamp(date, clock string) (time.Time, error) {
	parts := strings.Split(clock, ":")
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("%w: clock %q is not hour:minute:second", ErrMalformedTimestamp, clock)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: hour in %q: %v", ErrMalformedTimestamp, clock, err)
	}
	minute := parts[1]
	if _, err := strconv.Atoi(strings.TrimSpace(minute)); err != nil {
		return time.Time{}, fmt.Errorf("%w: minute in %q: %v", ErrMalformedTimestamp, clock, err)
	}
	second := parts[2]
	if len(second) > 2 {
		second = second[:2]
	}

	switch MeridiemOf(clock) {
	case MeridiemAM:
		if hour == 12 {
			hour = 0
		}
	case MeridiemUnrecognized:
		if n.Policy == MarkerStrict {
			return time.Time{}, fmt.Errorf("%w: clock %q has no AM/PM marker", ErrMalformedTimestamp, clock)
		}
		fallthrough
	default:
		// Noon (12 PM) stays 12.
		if hour < 12 {
			hour += 12
		}
	}

	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}

	combined := date + " " + strconv.Itoa(hour) + ":" + minute + ":" + second
	ts, err := time.ParseInLocation(timestampLayout, combined, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, combined, err)
	}
	return ts, nil
}

// Normalize maps a RawRow to a NormalizedRow. The raw row is not modified
// and the result does not share its value slice.
func (n Normalizer) Normalize(row models.RawRow, source string) (models.NormalizedRow, error) {
	ts, err := n.Timestamp(row.Date, row.Clock)
	if err != nil {
		return models.NormalizedRow{}, err
	}

	values := make([]models.Value, len(row.Values))
	copy(values, row.Values)

	return models.NormalizedRow{
		Timestamp: ts,
		Source:    source,
		Line:      row.Line,
		Values:    values,
	}, nil
}
