package sauce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/vnmchuo/sauce-usage/internal/usage"
)

// parseDay reads one [date, [jobs, seconds]] tuple.
func parseDay(raw json.RawMessage) (usage.DailyRecord, *usage.MalformedDataError) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) != 2 {
		return usage.DailyRecord{}, &usage.MalformedDataError{
			Reason: fmt.Sprintf("expected [date, [jobs, seconds]], got %s", truncate(raw)),
		}
	}

	var rec usage.DailyRecord
	if err := json.Unmarshal(tuple[0], &rec.Date); err != nil {
		return usage.DailyRecord{}, &usage.MalformedDataError{
			Reason: fmt.Sprintf("date is not a string: %s", truncate(tuple[0])),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(tuple[1]))
	dec.UseNumber()
	var counts []json.Number
	if err := dec.Decode(&counts); err != nil || len(counts) != 2 {
		return usage.DailyRecord{}, &usage.MalformedDataError{
			Date:   rec.Date,
			Reason: fmt.Sprintf("expected [jobs, seconds], got %s", truncate(tuple[1])),
		}
	}

	var err error
	if rec.Jobs, err = toInt(counts[0]); err != nil {
		return usage.DailyRecord{}, &usage.MalformedDataError{Date: rec.Date, Reason: "jobs: " + err.Error()}
	}
	if rec.Seconds, err = toFloat(counts[1]); err != nil {
		return usage.DailyRecord{}, &usage.MalformedDataError{Date: rec.Date, Reason: "seconds: " + err.Error()}
	}
	return rec, nil
}

// toInt accepts whole numbers only, "3.0" included.
func toInt(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := toFloat(n)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("%q is not a whole number", n.String())
	}
	return int64(f), nil
}

func toFloat(n json.Number) (float64, error) {
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a number", n.String())
	}
	return f, nil
}

func truncate(raw []byte) string {
	const limit = 80
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
