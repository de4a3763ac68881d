package redirects

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/osteele/liquid"
)

// DefaultReportTemplate is the Liquid template of the run summary.
const DefaultReportTemplate = `
=== clean-redirects report ===
Run ID                : {{ run_id }}
Input rows            : {{ stats.total_input | comma }}
Kept (cleaned)        : {{ stats.kept | comma }}
Deduped               : {{ stats.deduped | comma }}  (strategy: {{ strategy }})
Dropped invalid src   : {{ stats.invalid_source | comma }}
Dropped invalid tgt   : {{ stats.invalid_target | comma }}
Dropped self-redirects: {{ stats.self_redirects | comma }}
Coerced redirect type : {{ stats.bad_type | comma }} → defaulted to {{ default_redirect_type }}
Param allowlist       : {{ policy.param_allowlist }}
Allowed redirect types: {{ policy.allowed_redirect_types }}
Trailing slash        : {{ policy.trailing_slash }}
Lowercase host        : {{ policy.lowercase_host }}
Lowercase path        : {{ policy.lowercase_path }}
{% if probe.enabled %}HEAD check sample     : {{ probe.sample }} (see 'row:head:CODE' notes in output CSV)
{% endif %}Output CSV            : {{ output_path }}
Output digest (xxh3)  : {{ digest }}
==============================
`

// Summary is everything the report shows about one run.
type Summary struct {
	RunID        string
	Stats        Stats
	Strategy     DedupeStrategy
	Policy       Policy
	ProbeEnabled bool
	ProbeSample  int
	Probed       int
	InputPath    string
	OutputPath   string
	Digest       string
}

// Reporter renders summaries through a parsed Liquid template.
type Reporter struct {
	tpl *liquid.Template
}

// NewReporter parses templateText, or DefaultReportTemplate when it is empty.
func NewReporter(templateText string) (*Reporter, error) {
	if templateText == "" {
		templateText = DefaultReportTemplate
	}

	engine := liquid.NewEngine()
	// Thousands separators: {{ stats.kept | comma }}
	engine.RegisterFilter("comma", func(n int) string {
		return humanize.Comma(int64(n))
	})

	tpl, err := engine.ParseString(templateText)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Reporter{tpl: tpl}, nil
}

// Render writes the report for s to w. It only reads s.
func (rp *Reporter) Render(w io.Writer, s *Summary) error {
	out, err := rp.tpl.RenderString(s.bindings())
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, werr := io.WriteString(w, out)
	return werr
}

func (s *Summary) bindings() liquid.Bindings {
	allowlist := "NONE"
	if len(s.Policy.ParamAllowlist) > 0 {
		allowlist = strings.Join(s.Policy.ParamAllowlist, ", ")
	}
	redirectTypes := "NONE"
	if len(s.Policy.AllowedRedirectTypes) > 0 {
		redirectTypes = strings.Join(s.Policy.AllowedRedirectTypes, ", ")
	}
	sample := "all kept rows"
	if s.ProbeSample > 0 {
		sample = strconv.Itoa(s.ProbeSample)
	}

	return liquid.Bindings{
		"run_id":                s.RunID,
		"strategy":              string(s.Strategy),
		"default_redirect_type": DefaultRedirectType,
		"input_path":            s.InputPath,
		"output_path":           s.OutputPath,
		"digest":                s.Digest,
		"stats": map[string]interface{}{
			"total_input":    s.Stats.TotalInput,
			"invalid_source": s.Stats.InvalidSource,
			"invalid_target": s.Stats.InvalidTarget,
			"self_redirects": s.Stats.SelfRedirects,
			"bad_type":       s.Stats.BadType,
			"deduped":        s.Stats.Deduped,
			"kept":           s.Stats.Kept,
		},
		"policy": map[string]interface{}{
			"param_allowlist":        allowlist,
			"allowed_redirect_types": redirectTypes,
			"trailing_slash":         string(s.Policy.TrailingSlash),
			"lowercase_host":         strconv.FormatBool(s.Policy.LowercaseHost),
			"lowercase_path":         strconv.FormatBool(s.Policy.LowercasePath),
		},
		"probe": map[string]interface{}{
			"enabled": s.ProbeEnabled,
			"sample":  sample,
			"probed":  s.Probed,
		},
	}
}
