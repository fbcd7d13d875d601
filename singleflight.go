package main

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"a11y-server/internal/audit"
	"a11y-server/internal/config"
	"a11y-server/internal/dom"
	"a11y-server/internal/fetch"
)

// Auditor fetches a page, runs the rules and caches the result.
// Concurrent audits of the same URL share one fetch: only one goroutine
// actually retrieves the page while the others wait for its report.
type Auditor struct {
	fetcher atomic.Pointer[fetch.Fetcher]
	reports *ReportCache // nil disables caching
	group   singleflight.Group
}

// newFetcher builds the page fetcher with request-scoped logging and the
// fetch error counter attached.
func newFetcher(cfg *config.ServerConfig) *fetch.Fetcher {
	return fetch.New(cfg,
		fetch.WithLogger(LoggerFromContext),
		fetch.WithFailureHook(func() { fetchErrorsTotal.Add(1) }),
	)
}

func NewAuditor(fetcher *fetch.Fetcher, reports *ReportCache) *Auditor {
	a := &Auditor{reports: reports}
	a.fetcher.Store(fetcher)
	return a
}

// SetFetcher replaces the fetcher used by audits that start afterwards.
func (a *Auditor) SetFetcher(f *fetch.Fetcher) {
	a.fetcher.Store(f)
}

// Audit returns the report for url, from cache when possible.
func (a *Auditor) Audit(ctx context.Context, url string) (audit.Report, error) {
	if a.reports != nil {
		if report, ok := a.reports.Get(ctx, url); ok {
			LoggerFromContext(ctx).Debug("report served from cache", "url", url)
			return report, nil
		}
	}

	// The shared fetch must not die with whichever caller started it
	sharedCtx := context.WithoutCancel(ctx)
	result, err, shared := a.group.Do(url, func() (any, error) {
		report, err := a.run(sharedCtx, url)
		if err != nil {
			return nil, err
		}
		if a.reports != nil {
			a.reports.Set(sharedCtx, report)
		}
		return report, nil
	})
	if shared {
		LoggerFromContext(ctx).Debug("singleflight: shared audit", "url", url)
	}
	if err != nil {
		return audit.Report{}, err
	}
	return result.(audit.Report), nil
}

// AuditLive always fetches fresh and reports each rule as it completes.
func (a *Auditor) AuditLive(ctx context.Context, url string, observe audit.Observer) (audit.Report, error) {
	return a.run(ctx, url, observe)
}

func (a *Auditor) run(ctx context.Context, url string, observers ...audit.Observer) (audit.Report, error) {
	start := time.Now()

	page, err := a.fetcher.Load().Fetch(ctx, url)
	if err != nil {
		auditFailuresTotal.Add(1)
		return audit.Report{}, err
	}

	tree, err := dom.Parse(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		auditFailuresTotal.Add(1)
		return audit.Report{}, &ParseError{Err: err}
	}

	report := audit.Audit(url, tree, observers...)
	recordAudit(report)

	LoggerFromContext(ctx).Info("audit completed",
		"url", url,
		"score", report.Score,
		"critical", report.Summary.Critical,
		"warnings", report.Summary.Warnings,
		"passed", report.Summary.Passed,
		"truncated_body", page.Truncated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}
