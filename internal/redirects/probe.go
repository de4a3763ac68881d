package redirects

import (
	"context"
	"strconv"

	"github.com/ignite/redirect-cleaner/internal/pkg/logger"
)

// ProbeResult is what a status check observed. Err set means nothing was observed.
type ProbeResult struct {
	StatusCode int
	Location   string
	Err        error
}

// Prober checks how a URL responds without following redirects.
type Prober interface {
	Probe(ctx context.Context, url string) ProbeResult
}

// ProbeRows checks the source URL of the first sample rows (all when sample
// is 0) and appends head:/location:/req_error: annotations to their row
// issues. URLs are never modified. It returns the number of rows probed.
func ProbeRows(ctx context.Context, prober Prober, rows []*Row, sample int) int {
	toCheck := rows
	if sample > 0 && sample < len(toCheck) {
		toCheck = toCheck[:sample]
	}

	logger.Info("performing HEAD checks on source URLs (no follow)", "count", len(toCheck))

	for _, r := range toCheck {
		res := prober.Probe(ctx, r.SourceURL)
		if res.Err != nil {
			r.RowIssues = append(r.RowIssues, "req_error:"+res.Err.Error())
			logger.Warn("status check failed", "line", r.Line, "source", r.SourceURL, "error", res.Err)
			continue
		}
		r.RowIssues = append(r.RowIssues, "head:"+strconv.Itoa(res.StatusCode))
		if res.Location != "" {
			r.RowIssues = append(r.RowIssues, "location:"+res.Location)
		}
	}
	return len(toCheck)
}
