package usage

import (
	"fmt"
	"net/url"
	"time"
)

// Range bounds a usage query. Empty fields leave the provider default.
type Range struct {
	Start string
	End   string
}

func (r Range) Validate() error {
	var start, end time.Time
	var err error

	if r.Start != "" {
		if start, err = time.Parse(dateLayout, r.Start); err != nil {
			return fmt.Errorf("invalid start date %q (use YYYY-MM-DD)", r.Start)
		}
	}
	if r.End != "" {
		if end, err = time.Parse(dateLayout, r.End); err != nil {
			return fmt.Errorf("invalid end date %q (use YYYY-MM-DD)", r.End)
		}
	}
	if r.Start != "" && r.End != "" && start.After(end) {
		return fmt.Errorf("start date %s is after end date %s", r.Start, r.End)
	}
	return nil
}

// Query encodes the range as start/end query parameters.
func (r Range) Query() url.Values {
	q := url.Values{}
	if r.Start != "" {
		q.Set("start", r.Start)
	}
	if r.End != "" {
		q.Set("end", r.End)
	}
	return q
}
