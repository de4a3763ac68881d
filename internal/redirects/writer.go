package redirects

import (
	"encoding/csv"
	"fmt"
	"io"
)

// OutputColumns is the header of the cleaned CSV.
var OutputColumns = append(append([]string(nil), RequiredColumns...), ColNotes)

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []*Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := []string{r.SourceURL, r.TargetURL, r.RedirectType, r.Justification, r.TicketID, r.Notes()}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write line %d: %w", r.Line, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
