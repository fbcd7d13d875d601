// Accessibility Checker
// Audits live pages or saved HTML files and prints the report
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"a11y-server/internal/audit"
	"a11y-server/internal/config"
	"a11y-server/internal/dom"
	"a11y-server/internal/fetch"
	"a11y-server/internal/render"
)

var (
	format      string
	minScore    float64
	concurrency int
	timeout     time.Duration
	noColor     bool
)

// result is the outcome for one command-line target
type result struct {
	Target string
	Report audit.Report
	Err    error
}

func main() {
	flag.StringVar(&format, "format", "text", "Output format: json, markdown or text")
	flag.Float64Var(&minScore, "min-score", 0, "Exit non-zero if any page scores below this")
	flag.IntVar(&concurrency, "concurrency", 4, "Pages audited at once")
	flag.DurationVar(&timeout, "timeout", time.Duration(config.GetServerConfig().FetchTimeout), "Fetch timeout per page (overrides FETCH_TIMEOUT)")
	flag.BoolVar(&noColor, "no-color", false, "Disable colored text output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <url|file.html>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	switch format {
	case "json", "markdown", "text":
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", format)
		os.Exit(2)
	}

	if noColor {
		color.NoColor = true
	}

	results := auditAll(context.Background(), flag.Args())

	if err := write(os.Stdout, results); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode(results, minScore))
}

// auditAll audits targets with bounded parallelism. Results keep argument
// order; a failing target does not stop the others.
func auditAll(ctx context.Context, targets []string) []result {
	results := make([]result, len(targets))
	fetcher := fetch.New(config.GetServerConfig(), fetch.WithTimeout(timeout))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			report, err := auditTarget(ctx, fetcher, target)
			results[i] = result{Target: target, Report: report, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

func auditTarget(ctx context.Context, fetcher *fetch.Fetcher, target string) (audit.Report, error) {
	if isLocalFile(target) {
		f, err := os.Open(target)
		if err != nil {
			return audit.Report{}, err
		}
		defer f.Close()
		page, err := dom.Parse(f, "")
		if err != nil {
			return audit.Report{}, fmt.Errorf("parse %s: %w", target, err)
		}
		return audit.Audit(target, page), nil
	}

	pageURL := fetch.NormalizeURL(target)
	fetched, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return audit.Report{}, err
	}
	page, err := dom.Parse(bytes.NewReader(fetched.Body), fetched.ContentType)
	if err != nil {
		return audit.Report{}, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return audit.Audit(pageURL, page), nil
}

func isLocalFile(target string) bool {
	if strings.Contains(target, "://") {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

func write(w io.Writer, results []result) error {
	switch format {
	case "json":
		return writeJSON(w, results)
	case "markdown":
		for i, r := range results {
			if i > 0 {
				fmt.Fprint(w, "---\n\n")
			}
			if r.Err != nil {
				fmt.Fprintf(w, "# %s\n\nError: %v\n\n", r.Target, r.Err)
				continue
			}
			fmt.Fprint(w, render.Markdown(r.Report))
		}
	default:
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(w, "%s\n  %s %v\n", r.Target, color.RedString("error:"), r.Err)
				continue
			}
			if err := render.Text(w, r.Report); err != nil {
				return err
			}
		}
	}
	return nil
}

// jsonEntry is one element of the -format json array
type jsonEntry struct {
	Target string        `json:"target"`
	Report *audit.Report `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func writeJSON(w io.Writer, results []result) error {
	entries := make([]jsonEntry, len(results))
	for i, r := range results {
		entries[i] = jsonEntry{Target: r.Target}
		if r.Err != nil {
			entries[i].Error = r.Err.Error()
		} else {
			entries[i].Report = &r.Report
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// exitCode is 1 when any target failed or scored below threshold.
func exitCode(results []result, threshold float64) int {
	for _, r := range results {
		if r.Err != nil || r.Report.Score < threshold {
			return 1
		}
	}
	return 0
}
