package appointment

import (
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// visitFields is the validated portion of creation and modification input.
type visitFields struct {
	Date        time.Time
	Time        string
	Description string
}

// validateVisitFields checks date, time and description before any state
// change happens. It returns the normalized fields so the caller persists
// the trimmed description and the date-only value.
func validateVisitFields(date, timeOfDay, description string) (visitFields, error) {
	desc := strings.TrimSpace(description)
	if desc == "" {
		return visitFields{}, ErrEmptyDescription
	}

	d, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return visitFields{}, ErrInvalidDate
	}

	t := strings.TrimSpace(timeOfDay)
	if _, err := time.Parse(timeLayout, t); err != nil {
		return visitFields{}, ErrInvalidTime
	}

	return visitFields{Date: d, Time: t, Description: desc}, nil
}
