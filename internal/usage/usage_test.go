package usage

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthKey(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2018-01-15", "2018-01"},
		{"2018-01-31", "2018-01"},
		{"2018-02-01", "2018-02"},
		{"2018-01-05Z", "2018-01"},
		{"2018-12-31T23:59:59", "2018-12"},
		{"2019-03-01T00:00:00.000Z", "2019-03"},
		{"2011-9-15", "2011-09"},
		{"2018-1-5", "2018-01"},
		{"2018-1-5Z", "2018-01"},
		{"2018-01-05 00:00:00", "2018-01"},
		{"2018-1-31T23:59:59", "2018-01"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got, err := MonthKey(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonthKey_Malformed(t *testing.T) {
	for _, date := range []string{"", "yesterday", "2018-13-01", "01/05/2018"} {
		_, err := MonthKey(date)
		var malformed *MalformedDataError
		require.True(t, errors.As(err, &malformed), "date %q", date)
		assert.Equal(t, date, malformed.Date)
	}
}

func TestAggregate(t *testing.T) {
	records := []DailyRecord{
		{Date: "2018-01-05Z", Jobs: 3, Seconds: 120},
		{Date: "2018-01-20Z", Jobs: 2, Seconds: 80},
	}

	got, err := Aggregate(records)
	require.NoError(t, err)
	assert.Equal(t, Monthly{"2018-01": {Jobs: 5, Seconds: 200}}, got)
}

func TestAggregate_FractionalSeconds(t *testing.T) {
	records := []DailyRecord{
		{Date: "2018-01-01", Jobs: 1, Seconds: 0.4},
		{Date: "2018-01-02", Jobs: 1, Seconds: 0.4},
		{Date: "2018-01-03", Jobs: 1, Seconds: 0.4},
	}

	got, err := Aggregate(records)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got["2018-01"].Jobs)
	assert.InDelta(t, 1.2, got["2018-01"].Seconds, 1e-9)
}

func TestAggregate_Empty(t *testing.T) {
	got, err := Aggregate(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestAggregate_SeveralMonths(t *testing.T) {
	records := []DailyRecord{
		{Date: "2018-01-31", Jobs: 1, Seconds: 10},
		{Date: "2018-02-01", Jobs: 4, Seconds: 40},
		{Date: "2018-02-28", Jobs: 0, Seconds: 0},
		{Date: "2019-01-01", Jobs: 7, Seconds: 70},
	}

	got, err := Aggregate(records)
	require.NoError(t, err)
	assert.Equal(t, Monthly{
		"2018-01": {Jobs: 1, Seconds: 10},
		"2018-02": {Jobs: 4, Seconds: 40},
		"2019-01": {Jobs: 7, Seconds: 70},
	}, got)
	assert.Equal(t, []string{"2018-01", "2018-02", "2019-01"}, got.Months())
}

func TestAggregate_PermutationInvariant(t *testing.T) {
	records := []DailyRecord{
		{Date: "2018-01-01", Jobs: 1, Seconds: 11},
		{Date: "2018-01-09", Jobs: 2, Seconds: 22},
		{Date: "2018-02-14", Jobs: 3, Seconds: 33},
		{Date: "2018-03-03", Jobs: 4, Seconds: 44},
		{Date: "2018-03-30", Jobs: 5, Seconds: 55},
	}
	want, err := Aggregate(records)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for range 20 {
		shuffled := append([]DailyRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, err := Aggregate(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAggregate_MalformedDate(t *testing.T) {
	_, err := Aggregate([]DailyRecord{
		{Date: "2018-01-01", Jobs: 1},
		{Date: "not-a-date", Jobs: 1},
	})

	var malformed *MalformedDataError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "not-a-date", malformed.Date)
}

func TestRange_Validate(t *testing.T) {
	assert.NoError(t, Range{}.Validate())
	assert.NoError(t, Range{Start: "2018-01-01"}.Validate())
	assert.NoError(t, Range{Start: "2018-01-01", End: "2018-01-01"}.Validate())
	assert.Error(t, Range{Start: "2018-1-1"}.Validate())
	assert.Error(t, Range{End: "tomorrow"}.Validate())
	assert.Error(t, Range{Start: "2018-02-01", End: "2018-01-01"}.Validate())
}

func TestRange_Query(t *testing.T) {
	assert.Equal(t, "", Range{}.Query().Encode())
	assert.Equal(t, "end=2018-02-01", Range{End: "2018-02-01"}.Query().Encode())
	assert.Equal(t, "end=2018-02-01&start=2018-01-01",
		Range{Start: "2018-01-01", End: "2018-02-01"}.Query().Encode())
}

func TestReport(t *testing.T) {
	r := NewReport()
	require.NoError(t, r.Add("a", Monthly{"2018-01": {Jobs: 1, Seconds: 2}}))
	require.NoError(t, r.Add("b", Monthly{}))
	assert.Error(t, r.Add("a", Monthly{}))

	assert.Equal(t, []string{"a", "b"}, r.Accounts())
	assert.Equal(t, 2, r.Len())

	months, ok := r.Months("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), months["2018-01"].Jobs)

	_, ok = r.Months("missing")
	assert.False(t, ok)

	assert.Equal(t, MonthlySummary{Jobs: 1, Seconds: 2}, r.Totals())
}

func TestReport_MarshalJSON_KeepsOrder(t *testing.T) {
	r := NewReport()
	require.NoError(t, r.Add("zeta", Monthly{"2018-01": {Jobs: 5, Seconds: 200}}))
	require.NoError(t, r.Add("alpha", nil))

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":{"2018-01":{"jobs":5,"time":200}},"alpha":{}}`, string(data))
}

func TestReport_FailureSummary(t *testing.T) {
	r := NewReport()
	r.Failures = []AccountFailure{
		{Account: "b", Err: errors.New("boom")},
		{Account: "c", Err: errors.New("bust")},
	}
	assert.Equal(t, "b: boom; c: bust", r.FailureSummary())
}

func TestMalformedDataError_Message(t *testing.T) {
	err := &MalformedDataError{Account: "a", Date: "x", Reason: "unparseable date"}
	assert.Equal(t, `malformed usage data for a on "x": unparseable date`, err.Error())
}
