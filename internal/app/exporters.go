package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatICS  = "ics"
)

// Export is the day list of one counter for a month or a whole year
type Export struct {
	Counter string    `json:"counter"`
	Year    int       `json:"year"`
	Month   int       `json:"month,omitempty"`
	Days    []DayCell `json:"days"`
}

// BuildExport collects the days of counter for the given month, or for the
// whole year when month is zero.
func BuildExport(s *Store, counter string, year int, month time.Month) (*Export, error) {
	export := &Export{Counter: counter, Year: year, Month: int(month), Days: []DayCell{}}

	months := []time.Month{month}
	if month == 0 {
		months = months[:0]
		for m := time.January; m <= time.December; m++ {
			months = append(months, m)
		}
	} else if !ValidMonth(month) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}

	for _, m := range months {
		for cell := range s.Month(counter, year, m) {
			export.Days = append(export.Days, cell)
		}
	}
	return export, nil
}

// Filename returns the download file name for format
func (e *Export) Filename(format string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' || r < 32 {
			return '_'
		}
		return r
	}, e.Counter)
	if e.Month != 0 {
		return fmt.Sprintf("daily-tracker_%s_%d-%02d.%s", name, e.Year, e.Month, format)
	}
	return fmt.Sprintf("daily-tracker_%s_%d.%s", name, e.Year, format)
}

// ContentType returns the MIME type for an export format
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatICS:
		return "text/calendar; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// ValidFormat reports whether format is a supported export format
func ValidFormat(format string) bool {
	return format == FormatCSV || format == FormatJSON || format == FormatICS
}

// WriteExport renders e in the requested format. stamp is the ICS DTSTAMP.
func WriteExport(w io.Writer, format string, e *Export, stamp time.Time) error {
	switch format {
	case FormatCSV:
		return GenerateCSV(w, e)
	case FormatJSON:
		return GenerateJSON(w, e)
	case FormatICS:
		return GenerateICS(w, e, stamp)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// GenerateCSV writes one date,count row per day
func GenerateCSV(w io.Writer, e *Export) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "count"}); err != nil {
		return err
	}
	for _, day := range e.Days {
		if err := cw.Write([]string{day.Date, strconv.Itoa(day.Count)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// GenerateJSON writes the export as a JSON document
func GenerateJSON(w io.Writer, e *Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// GenerateICS writes an iCalendar file with one all-day event per day that
// has a non-zero count
func GenerateICS(w io.Writer, e *Export, stamp time.Time) error {
	ew := &errWriter{w: w}

	ew.line("BEGIN:VCALENDAR")
	ew.line("VERSION:2.0")
	ew.line("PRODID:" + ICSProductID)
	ew.line("CALSCALE:GREGORIAN")
	ew.line("X-WR-CALNAME:" + escapeICS(e.Counter))

	dtstamp := stamp.UTC().Format("20060102T150405Z")
	for _, day := range e.Days {
		if day.Count == 0 {
			continue
		}
		date, err := ParseDay(day.Date)
		if err != nil {
			continue
		}

		// UID must be stable so re-imports update instead of duplicating
		ew.line("BEGIN:VEVENT")
		ew.line(fmt.Sprintf("UID:%s-%s@daily-tracker", day.Date, uidToken(e.Counter)))
		ew.line("DTSTAMP:" + dtstamp)
		ew.line("DTSTART;VALUE=DATE:" + date.Format("20060102"))
		ew.line("DTEND;VALUE=DATE:" + date.AddDate(0, 0, 1).Format("20060102"))
		ew.line(fmt.Sprintf("SUMMARY:%s: %d", escapeICS(e.Counter), day.Count))
		ew.line("END:VEVENT")
	}

	ew.line("END:VCALENDAR")
	return ew.err
}

// GenerateSubscriptionICS writes an iCalendar subscription feed with every
// non-zero day of a counter. Unlike GenerateICS it is meant to be served
// inline and carries METHOD:PUBLISH and a refresh interval.
func GenerateSubscriptionICS(w io.Writer, counter string, record Record, stamp time.Time) error {
	days := make([]string, 0, len(record))
	for day, count := range record {
		if count > 0 {
			days = append(days, day)
		}
	}
	slices.Sort(days)

	ew := &errWriter{w: w}
	ew.line("BEGIN:VCALENDAR")
	ew.line("VERSION:2.0")
	ew.line("PRODID:" + ICSProductID)
	ew.line("METHOD:PUBLISH")
	ew.line("CALSCALE:GREGORIAN")
	ew.line("X-WR-CALNAME:" + escapeICS(counter))
	ew.line("X-PUBLISHED-TTL:PT1H")

	dtstamp := stamp.UTC().Format("20060102T150405Z")
	for _, key := range days {
		date, err := ParseDay(key)
		if err != nil {
			continue
		}
		ew.line("BEGIN:VEVENT")
		ew.line(fmt.Sprintf("UID:%s-%s@daily-tracker", key, uidToken(counter)))
		ew.line("DTSTAMP:" + dtstamp)
		ew.line("DTSTART;VALUE=DATE:" + date.Format("20060102"))
		ew.line("DTEND;VALUE=DATE:" + date.AddDate(0, 0, 1).Format("20060102"))
		ew.line(fmt.Sprintf("SUMMARY:%s: %d", escapeICS(counter), record[key]))
		ew.line("END:VEVENT")
	}

	ew.line("END:VCALENDAR")
	return ew.err
}

// errWriter keeps the first write error (helper for ICS generation)
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) line(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s+"\r\n")
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`, "\r", "")

func escapeICS(s string) string {
	return icsEscaper.Replace(s)
}

// uidToken keeps lowercase letters and digits and escapes every other rune,
// so names differing only in case get distinct tokens
func uidToken(counter string) string {
	var b strings.Builder
	for _, r := range counter {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "-%x", r)
		}
	}
	return b.String()
}
