package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/redirect-cleaner/internal/config"
	"github.com/ignite/redirect-cleaner/internal/pkg/logger"
	"github.com/ignite/redirect-cleaner/internal/probe"
	"github.com/ignite/redirect-cleaner/internal/redirects"
	"github.com/ignite/redirect-cleaner/internal/storage"
)

const (
	exitOK             = 0
	exitFailure        = 1
	exitMissingColumns = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	configPath      string
	in              string
	out             string
	paramAllowlist  string
	trailingSlash   string
	lowercaseHost   bool
	noLowercaseHost bool
	lowercasePath   bool
	dedupeStrategy  string
	redirectTypes   string
	checkStatus     bool
	checkSample     int
	checkTimeout    int
	logLevel        string
	reportTemplate  string
}

func parseFlags(args []string, stderr io.Writer) (*flags, map[string]bool, error) {
	f := &flags{}
	fs := flag.NewFlagSet("clean-redirects", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "", "Optional YAML config file.")
	fs.StringVar(&f.in, "in", "", "Input CSV path (local or s3://bucket/key).")
	fs.StringVar(&f.out, "out", "", "Output cleaned CSV path (local or s3://bucket/key).")
	fs.StringVar(&f.paramAllowlist, "param-allowlist", "",
		"Comma-separated query parameters to keep; others are dropped. Empty keeps all.")
	fs.StringVar(&f.trailingSlash, "enforce-trailing-slash", "keep", "Trailing slash handling: add|remove|keep.")
	fs.BoolVar(&f.lowercaseHost, "lowercase-host", true, "Lowercase host (default on).")
	fs.BoolVar(&f.noLowercaseHost, "no-lowercase-host", false, "Keep host case as written.")
	fs.BoolVar(&f.lowercasePath, "lowercase-path", false, "Lowercase path.")
	fs.StringVar(&f.dedupeStrategy, "dedupe-strategy", "last",
		"If rows share a normalized source_url, keep the first or last occurrence.")
	fs.StringVar(&f.redirectTypes, "allow-redirect-types", "301,302,307", "Comma-separated allowed redirect types.")
	fs.BoolVar(&f.checkStatus, "check-status", false,
		"HEAD-check sources to capture HTTP status and Location (no follow).")
	fs.IntVar(&f.checkSample, "check-sample", 0, "With -check-status, limit to the first N kept rows (0 = all).")
	fs.IntVar(&f.checkTimeout, "check-timeout", 6, "Seconds to wait for each HEAD check.")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: debug|info|warn|error.")
	fs.StringVar(&f.reportTemplate, "report-template", "", "Liquid template file for the summary report.")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if f.in == "" || f.out == "" {
		return nil, nil, errors.New("-in and -out are required")
	}
	return f, set, nil
}

// applyFlags overrides cfg with every flag given on the command line.
func applyFlags(cfg *config.Config, f *flags, set map[string]bool) {
	if set["param-allowlist"] {
		cfg.Policy.ParamAllowlist = splitList(f.paramAllowlist)
	}
	if set["enforce-trailing-slash"] {
		cfg.Policy.TrailingSlash = f.trailingSlash
	}
	if set["lowercase-host"] {
		cfg.Policy.LowercaseHost = f.lowercaseHost
	}
	if set["no-lowercase-host"] && f.noLowercaseHost {
		cfg.Policy.LowercaseHost = false
	}
	if set["lowercase-path"] {
		cfg.Policy.LowercasePath = f.lowercasePath
	}
	if set["dedupe-strategy"] {
		cfg.DedupeStrategy = f.dedupeStrategy
	}
	if set["allow-redirect-types"] {
		cfg.Policy.AllowedRedirectTypes = splitList(f.redirectTypes)
	}
	if set["check-status"] {
		cfg.Probe.Enabled = f.checkStatus
	}
	if set["check-sample"] {
		cfg.Probe.Sample = f.checkSample
	}
	if set["check-timeout"] {
		cfg.Probe.TimeoutSeconds = f.checkTimeout
	}
	if set["log-level"] {
		cfg.Logging.Level = f.logLevel
	}
	if set["report-template"] {
		cfg.Report.TemplatePath = f.reportTemplate
	}
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	out := make([]string, 0, len(fields))
	for _, v := range fields {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "[ERROR] %v\n", err)
		return exitFailure
	}

	cfg, err := config.LoadFromEnv(f.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "[ERROR] load config: %v\n", err)
		return exitFailure
	}
	applyFlags(cfg, f, set)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "[ERROR] %v\n", err)
		return exitFailure
	}

	runID := uuid.NewString()
	logger.SetOutput(stderr)
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetFields("run_id", runID)
	defer logger.SetFields()

	templateText := ""
	if cfg.Report.TemplatePath != "" {
		data, err := os.ReadFile(cfg.Report.TemplatePath)
		if err != nil {
			fmt.Fprintf(stderr, "[ERROR] read report template: %v\n", err)
			return exitFailure
		}
		templateText = string(data)
	}
	reporter, err := redirects.NewReporter(templateText)
	if err != nil {
		fmt.Fprintf(stderr, "[ERROR] %v\n", err)
		return exitFailure
	}

	rcfg := redirects.RunnerConfig{
		RunID: runID,
		Policy: redirects.Policy{
			ParamAllowlist:       cfg.Policy.ParamAllowlist,
			TrailingSlash:        redirects.TrailingSlashMode(cfg.Policy.TrailingSlash),
			LowercaseHost:        cfg.Policy.LowercaseHost,
			LowercasePath:        cfg.Policy.LowercasePath,
			AllowedRedirectTypes: cfg.Policy.AllowedRedirectTypes,
		},
		Strategy: redirects.DedupeStrategy(cfg.DedupeStrategy),
	}
	if cfg.Probe.Enabled {
		rcfg.Prober = probe.NewHeadProber(time.Duration(cfg.Probe.TimeoutSeconds)*time.Second, cfg.Probe.UserAgent)
		rcfg.ProbeSample = cfg.Probe.Sample
	}

	runner := redirects.NewRunner(storage.New(cfg.Storage), rcfg)
	summary, err := runner.Run(ctx, f.in, f.out)
	if err != nil {
		var missing *redirects.MissingColumnsError
		if errors.As(err, &missing) {
			fmt.Fprintf(stderr, "[ERROR] Missing required columns: %s\n", strings.Join(missing.Columns, ", "))
			return exitMissingColumns
		}
		logger.Error("run failed", "error", err)
		fmt.Fprintf(stderr, "[ERROR] %v\n", err)
		return exitFailure
	}

	if err := reporter.Render(stdout, summary); err != nil {
		fmt.Fprintf(stderr, "[ERROR] %v\n", err)
		return exitFailure
	}
	return exitOK
}
