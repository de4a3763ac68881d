package redirects

import (
	"github.com/ignite/redirect-cleaner/internal/pkg/logger"
)

// Row issue tags recorded by the cleaner.
const (
	DropInvalidSource = "drop:invalid_source"
	DropInvalidTarget = "drop:invalid_target"
	DropSelfRedirect  = "drop:self_redirect"
	fixRedirectType   = "fix:redirect_type:"
)

// Result is the outcome of cleaning a batch of rows.
type Result struct {
	// Rows are the survivors in first-seen order of their normalized source.
	Rows []*Row
	// Dropped holds every row excluded by validation, with its drop:* issue.
	Dropped []*Row
	Stats   Stats
}

// Cleaner normalizes, validates and deduplicates rows under one policy.
type Cleaner struct {
	policy   Policy
	strategy DedupeStrategy
	allowed  map[string]struct{}
}

// NewCleaner builds a Cleaner. Any strategy other than DedupeFirst keeps the last row.
func NewCleaner(policy Policy, strategy DedupeStrategy) *Cleaner {
	allowed := make(map[string]struct{}, len(policy.AllowedRedirectTypes))
	for _, t := range policy.AllowedRedirectTypes {
		allowed[t] = struct{}{}
	}
	return &Cleaner{policy: policy, strategy: strategy, allowed: allowed}
}

// Clean processes rows in input order. Per-row failures never abort the batch.
func (c *Cleaner) Clean(rows []RawRow) *Result {
	res := &Result{Stats: Stats{TotalInput: len(rows)}}

	byKey := make(map[string]int, len(rows))
	for _, raw := range rows {
		r := &Row{RawRow: raw}

		srcNorm, srcIssues, srcOK := NormalizeURL(r.SourceURL, c.policy)
		tgtNorm, tgtIssues, tgtOK := NormalizeURL(r.TargetURL, c.policy)

		if !srcOK {
			r.SourceIssues = srcIssues
			c.drop(res, r, DropInvalidSource)
			res.Stats.InvalidSource++
			continue
		}
		if !tgtOK {
			r.TargetIssues = tgtIssues
			c.drop(res, r, DropInvalidTarget)
			res.Stats.InvalidTarget++
			continue
		}

		r.SourceIssues = srcIssues
		r.TargetIssues = tgtIssues

		if _, ok := c.allowed[r.RedirectType]; !ok {
			r.RowIssues = append(r.RowIssues, fixRedirectType+r.RedirectType)
			res.Stats.BadType++
			r.RedirectType = DefaultRedirectType
		}

		if srcNorm == tgtNorm {
			c.drop(res, r, DropSelfRedirect)
			res.Stats.SelfRedirects++
			continue
		}

		r.SourceURL = srcNorm
		r.TargetURL = tgtNorm

		if i, seen := byKey[srcNorm]; seen {
			res.Stats.Deduped++
			logger.Debug("duplicate source", "line", r.Line, "source", srcNorm,
				"kept_line", c.winner(res.Rows[i], r).Line, "strategy", string(c.strategy))
			if c.strategy != DedupeFirst {
				res.Rows[i] = r
			}
			continue
		}
		byKey[srcNorm] = len(res.Rows)
		res.Rows = append(res.Rows, r)
	}

	res.Stats.Kept = len(res.Rows)
	return res
}

func (c *Cleaner) winner(existing, incoming *Row) *Row {
	if c.strategy == DedupeFirst {
		return existing
	}
	return incoming
}

func (c *Cleaner) drop(res *Result, r *Row, reason string) {
	r.RowIssues = append(r.RowIssues, reason)
	res.Dropped = append(res.Dropped, r)
	logger.Debug("dropped row", "line", r.Line, "reason", reason, "notes", r.Notes())
}
