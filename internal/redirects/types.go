// Package redirects cleans redirect-rule maps: it normalizes source and
// target URLs, drops invalid and self-redirecting rules, coerces unknown
// redirect types and deduplicates by normalized source.
package redirects

import (
	"fmt"
	"strings"
)

// TrailingSlashMode controls how a path's trailing slash is normalized.
type TrailingSlashMode string

const (
	TrailingSlashAdd    TrailingSlashMode = "add"
	TrailingSlashRemove TrailingSlashMode = "remove"
	TrailingSlashKeep   TrailingSlashMode = "keep"
)

// DedupeStrategy decides which of several rows sharing a normalized source survives.
type DedupeStrategy string

const (
	DedupeFirst DedupeStrategy = "first"
	DedupeLast  DedupeStrategy = "last"
)

// DefaultRedirectType replaces any redirect type outside the allowlist.
const DefaultRedirectType = "301"

// Required input columns, in the order they are written back out.
const (
	ColSourceURL     = "source_url"
	ColTargetURL     = "target_url"
	ColRedirectType  = "redirect_type"
	ColJustification = "justification"
	ColTicketID      = "ticket_id"
	ColNotes         = "notes"
)

// RequiredColumns must all be present in the input header.
var RequiredColumns = []string{ColSourceURL, ColTargetURL, ColRedirectType, ColJustification, ColTicketID}

// Policy is the URL normalization policy. It is not mutated after construction.
type Policy struct {
	ParamAllowlist       []string
	TrailingSlash        TrailingSlashMode
	LowercaseHost        bool
	LowercasePath        bool
	AllowedRedirectTypes []string
}

// RawRow is one input record with every field trimmed.
type RawRow struct {
	Line          int
	SourceURL     string
	TargetURL     string
	RedirectType  string
	Justification string
	TicketID      string
}

// Row is a RawRow plus the issues collected while cleaning it. Once a row
// survives, SourceURL and TargetURL hold the normalized values.
type Row struct {
	RawRow
	SourceIssues []string
	TargetIssues []string
	RowIssues    []string
}

// Notes renders the issue logs as "src:a|b; tgt:c; row:d", omitting empty groups.
func (r *Row) Notes() string {
	var groups []string
	if len(r.SourceIssues) > 0 {
		groups = append(groups, "src:"+strings.Join(r.SourceIssues, "|"))
	}
	if len(r.TargetIssues) > 0 {
		groups = append(groups, "tgt:"+strings.Join(r.TargetIssues, "|"))
	}
	if len(r.RowIssues) > 0 {
		groups = append(groups, "row:"+strings.Join(r.RowIssues, "|"))
	}
	return strings.Join(groups, "; ")
}

// Stats are the run counters. Deduped counts collisions, not distinct rows.
type Stats struct {
	TotalInput    int
	InvalidSource int
	InvalidTarget int
	SelfRedirects int
	BadType       int
	Deduped       int
	Kept          int
}

// MissingColumnsError aborts a run whose header lacks required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}
