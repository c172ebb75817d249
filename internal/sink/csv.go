// Package sink serializes a usage report as CSV and delivers it to a file,
// stdout or S3.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/vnmchuo/sauce-usage/internal/usage"
)

var Header = []string{"User", "Year", "Month", "Jobs", "Time (seconds)"}

// Rows flattens the report into one row per account and month, accounts in
// report order and months ascending.
func Rows(rep *usage.Report) [][]string {
	return lo.FlatMap(rep.Accounts(), func(account string, _ int) [][]string {
		months, _ := rep.Months(account)
		return lo.Map(months.Months(), func(month string, _ int) []string {
			year, mon, _ := strings.Cut(month, "-")
			sum := months[month]
			return []string{
				account,
				year,
				mon,
				strconv.FormatInt(sum.Jobs, 10),
				strconv.FormatFloat(sum.Seconds, 'f', -1, 64),
			}
		})
	})
}

func WriteCSV(w io.Writer, rep *usage.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	if err := cw.WriteAll(Rows(rep)); err != nil {
		return fmt.Errorf("writing csv rows: %w", err)
	}
	return nil
}
