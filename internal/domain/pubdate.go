package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DatePrecision tags how much of a publication date the source provided.
type DatePrecision string

const (
	PrecisionFull         DatePrecision = "full"
	PrecisionYearMonth    DatePrecision = "year_month"
	PrecisionYearOnly     DatePrecision = "year_only"
	PrecisionUnstructured DatePrecision = "unstructured"
)

// PubDate is a publication date at whatever granularity the source offered.
// PubMed dates come as year/month/day, year/month, year alone, or a legacy
// free-text MedlineDate; the precision tag keeps those cases explicit instead
// of guessing from string shape downstream.
type PubDate struct {
	Precision DatePrecision
	Year      int
	Month     int
	Day       int
	Raw       string
}

// NewFullDate builds a day-precision date.
func NewFullDate(year, month, day int) PubDate {
	return PubDate{Precision: PrecisionFull, Year: year, Month: month, Day: day}
}

// NewYearMonthDate builds a month-precision date.
func NewYearMonthDate(year, month int) PubDate {
	return PubDate{Precision: PrecisionYearMonth, Year: year, Month: month}
}

// NewYearDate builds a year-precision date.
func NewYearDate(year int) PubDate {
	return PubDate{Precision: PrecisionYearOnly, Year: year}
}

// NewUnstructuredDate wraps a legacy free-text date verbatim.
func NewUnstructuredDate(raw string) PubDate {
	return PubDate{Precision: PrecisionUnstructured, Raw: strings.TrimSpace(raw)}
}

// IsZero reports whether no date information was available at all.
func (d PubDate) IsZero() bool {
	return d.Year == 0 && d.Raw == ""
}

// String renders the date at its native precision: "2026-01-02", "2026-01",
// "2026", or the raw legacy text.
func (d PubDate) String() string {
	switch d.Precision {
	case PrecisionFull:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	case PrecisionYearMonth:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	case PrecisionYearOnly:
		return fmt.Sprintf("%04d", d.Year)
	default:
		return d.Raw
	}
}

var (
	fullDateExpr      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	yearMonthDateExpr = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	yearDateExpr      = regexp.MustCompile(`^(\d{4})$`)
)

// ParsePubDate reads a rendered date back into its tagged form. The attempts
// run in fixed order from most to least structured; anything that matches no
// pattern is carried as unstructured text. Never fails: malformed input is a
// recoverable condition, not an error.
func ParsePubDate(s string) PubDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return PubDate{Precision: PrecisionUnstructured}
	}
	if m := fullDateExpr.FindStringSubmatch(s); m != nil {
		return NewFullDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := yearMonthDateExpr.FindStringSubmatch(s); m != nil {
		return NewYearMonthDate(atoi(m[1]), atoi(m[2]))
	}
	if m := yearDateExpr.FindStringSubmatch(s); m != nil {
		return NewYearDate(atoi(m[1]))
	}
	return NewUnstructuredDate(s)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// MarshalJSON writes the date as its rendered string, matching the artifact
// format the delivery pipeline and email templates consume.
func (d PubDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON re-parses a rendered date string.
func (d *PubDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("pub date: %w", err)
	}
	*d = ParsePubDate(s)
	return nil
}
