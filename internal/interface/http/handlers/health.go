// Package handlers contains HTTP handler interfaces and implementations.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Overall health states.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// HealthChecker reports the health of the service.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc performs a single check. The detail string is shown on
// success (e.g. "1200 records").
type HealthCheckFunc func(ctx context.Context) (detail string, err error)

// HealthStatus is the body of /health.
type HealthStatus struct {
	// Status is ok, degraded (an optional dependency failed) or down.
	Status string `json:"status"`

	// Healthy is false only when a required check failed.
	Healthy bool `json:"healthy"`

	// Ready mirrors Healthy; /ready answers 503 when false.
	Ready bool `json:"ready"`

	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

type registeredCheck struct {
	fn       HealthCheckFunc
	optional bool
}

// CompositeHealthChecker runs named checks in parallel. A failing required
// check makes the service unhealthy; a failing optional check (a cache the
// service can run without) only degrades it.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]registeredCheck
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a checker with no checks. It reports ok
// until checks are added.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]registeredCheck),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout sets the per-check deadline.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// AddCheck registers a required check.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.add(name, check, false)
}

// AddOptionalCheck registers a check whose failure only degrades the service.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.add(name, check, true)
}

func (c *CompositeHealthChecker) add(name string, check HealthCheckFunc, optional bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registeredCheck{fn: check, optional: optional}
}

// RemoveCheck removes a named check.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Check runs every check and aggregates the results.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make([]registeredCheck, 0, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks = append(checks, check)
	}
	c.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			results[i] = c.run(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	status := HealthStatus{
		Status:    StatusOK,
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	var failed, degraded []string
	for i, name := range names {
		res := results[i]
		status.Checks[name] = res
		switch {
		case res.Healthy:
		case res.Optional:
			degraded = append(degraded, name)
		default:
			failed = append(failed, name)
		}
	}
	slices.Sort(failed)
	slices.Sort(degraded)

	switch {
	case len(failed) > 0:
		status.Status = StatusDown
		status.Healthy = false
		status.Ready = false
		status.Message = "checks failed: " + strings.Join(failed, ", ")
	case len(degraded) > 0:
		status.Status = StatusDegraded
		status.Message = "running without: " + strings.Join(degraded, ", ")
	case len(checks) == 0:
		status.Message = "no checks registered"
	default:
		status.Message = "all checks passed"
	}
	return status
}

func (c *CompositeHealthChecker) run(ctx context.Context, check registeredCheck) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	detail, err := check.fn(checkCtx)

	res := CheckResult{
		Healthy:  err == nil,
		Optional: check.optional,
		Message:  detail,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		res.Message = err.Error()
	} else if res.Message == "" {
		res.Message = "OK"
	}
	return res
}

// ══════════════════════════════════════════════════════════════════════════════
// PREDEFINED HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is satisfied by *postgres.Connection and *redis.Cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingCheck checks connectivity.
func NewPingCheck(p Pinger) HealthCheckFunc {
	return func(ctx context.Context) (string, error) {
		return "", p.Ping(ctx)
	}
}

// TableSource is satisfied by *dataset.Cache.
type TableSource interface {
	Table(ctx context.Context) (*leaderboard.Table, error)
}

// ErrEmptyDataset is reported when the dataset loads but has no rows.
var ErrEmptyDataset = errors.New("dataset has no records")

// NewDatasetCheck reports whether the ranked table can be served. The first
// call may trigger the initial load.
func NewDatasetCheck(src TableSource, allowEmpty bool) HealthCheckFunc {
	return func(ctx context.Context) (string, error) {
		t, err := src.Table(ctx)
		if err != nil {
			return "", err
		}
		if t.Count() == 0 && !allowEmpty {
			return "", ErrEmptyDataset
		}
		detail := fmt.Sprintf("%d records", t.Count())
		if v := t.Version(); v != "" {
			detail += ", version " + v
		}
		return detail, nil
	}
}
