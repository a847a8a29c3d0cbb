package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes a header line followed by one record per row in column order.
func WriteCSV(w io.Writer, r *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return err
	}
	record := make([]string, len(r.Columns))
	for _, row := range r.Rows {
		for i, col := range r.Columns {
			record[i] = cell(row[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case *uint:
		if x == nil {
			return ""
		}
		return fmt.Sprint(*x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
