// Package patent holds the value types shared by the search, analysis, and
// reporting components (spec §3): patent records fed into the analyzers and
// the tagged-union analysis results they produce.
package patent

import (
	"strconv"
	"strings"
	"time"
)

// Record is a single patent application as consumed by C5–C8.
type Record struct {
	ApplicationNumber string
	Title             string
	Applicants        []string
	ApplicationDate   string // "YYYY-MM-DD", "YYYY-MM", or "YYYY"
	IPCClasses        []string
	Country           string

	Abstract        string
	Inventors       []string
	PublicationDate string
	Status          string
}

// Year parses the best available year from ApplicationDate. Returns 0 and
// false if the date cannot be parsed in any of the accepted layouts.
func (r Record) Year() (int, bool) {
	return ParseYear(r.ApplicationDate)
}

// ParseYear extracts a calendar year from a date string in "YYYY-MM-DD",
// "YYYY-MM", or "YYYY" form.
func ParseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0, false
	}

	head := date
	if idx := strings.IndexByte(date, '-'); idx > 0 {
		head = date[:idx]
	}

	year, err := strconv.Atoi(head)
	if err != nil || year < 1000 || year > 9999 {
		return 0, false
	}

	return year, true
}

// ParseDate parses ApplicationDate into a time.Time, defaulting month/day to
// January 1st when the input has year-only or year-month granularity.
func ParseDate(date string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	layouts := []string{"2006-01-02", "2006-01", "2006"}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// RequiredFieldRatio returns the fraction of the minimum required fields
// (application_number, title, applicants, application_date, ipc_classes,
// country) that are non-empty, used by C5's completeness score.
func (r Record) RequiredFieldRatio() float64 {
	total := 6.0
	filled := 0.0

	if r.ApplicationNumber != "" {
		filled++
	}

	if r.Title != "" {
		filled++
	}

	if len(r.Applicants) > 0 {
		filled++
	}

	if r.ApplicationDate != "" {
		filled++
	}

	if len(r.IPCClasses) > 0 {
		filled++
	}

	if r.Country != "" {
		filled++
	}

	return filled / total
}

// OptionalFieldRatio returns the fraction of optional fields (abstract,
// inventors, publication_date, status) that are non-empty.
func (r Record) OptionalFieldRatio() float64 {
	total := 4.0
	filled := 0.0

	if r.Abstract != "" {
		filled++
	}

	if len(r.Inventors) > 0 {
		filled++
	}

	if r.PublicationDate != "" {
		filled++
	}

	if r.Status != "" {
		filled++
	}

	return filled / total
}
