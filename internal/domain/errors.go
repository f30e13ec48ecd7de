package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrInvalidTarget is returned for URLs that cannot be scanned.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrCrawlFailed means the primary crawl could not be performed at all.
	ErrCrawlFailed = errors.New("primary crawl failed")

	// ErrCollectorDisabled is returned by collectors that are not configured.
	ErrCollectorDisabled = errors.New("collector disabled")
)

// Source failure reasons recorded in Failed outcomes.
const (
	ReasonTimeout        = "timeout"
	ReasonConnection     = "connection"
	ReasonDisabled       = "disabled"
	ReasonPanic          = "panic"
	ReasonUnreliable     = "crawl unreliable"
	ReasonFilteredByTool = "filtered by validator"
)

// FatalError wraps the one failure that aborts a scan.
type FatalError struct {
	Err error
}

func (e FatalError) Error() string {
	return fmt.Errorf("fatal: %w", e.Err).Error()
}

func (e FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err should fail the whole scan.
func IsFatal(err error) bool {
	var fatal FatalError
	return errors.As(err, &fatal)
}

// PersistenceFailure is a write that did not succeed even after the
// per-row retry. It is reported in scan metadata, never raised.
type PersistenceFailure struct {
	Op     string `json:"op"`
	Target string `json:"target"`
	Err    string `json:"error"`
}

func (p PersistenceFailure) Error() string {
	return fmt.Sprintf("persist %s %s: %s", p.Op, p.Target, p.Err)
}

// FailureReason classifies a collector error into the reason stored in its
// Failed outcome.
func FailureReason(err error) string {
	if err == nil {
		return ReasonNotCollected
	}
	if errors.Is(err, ErrCollectorDisabled) {
		return ReasonDisabled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ReasonConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonConnection
	}
	msg := strings.TrimSpace(err.Error())
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return "error: " + msg
}
