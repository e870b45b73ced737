// Package doorhw talks to the physical door controller. The controller
// exposes its refusal log as plain text, one line per denied scan:
//
//	Mon Sep 14 12:23:01 CEST 2015: 04:AA:BB:CC:DD:EE:FF
//
// Timestamps are naive local time from the controller's clock and belong to
// the Europe/Amsterdam zone (CET/CEST).
package doorhw

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avanserv/deurapi/internal/deur/store"
)

// maxLogBody caps how much of the controller's log is read. The log is a
// few bytes per scan, so 1 MiB covers years of history.
const maxLogBody = 1 << 20

// Client fetches denied scans from the door controller's failure log. It
// implements the same denied-scan source contract as the local attempt
// store, so the scan validator can run directly off the hardware.
type Client struct {
	failuresURL string
	httpc       *http.Client
	loc         *time.Location
}

func NewClient(failuresURL string, timeout time.Duration) (*Client, error) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		return nil, fmt.Errorf("load door time zone: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		failuresURL: failuresURL,
		httpc:       &http.Client{Timeout: timeout},
		loc:         loc,
	}, nil
}

// RecentDenied returns up to n denied scans, newest first. The controller
// appends to its log, so the newest entries are the last lines.
func (c *Client) RecentDenied(ctx context.Context, n int) ([]store.ScanAttempt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.failuresURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build failures request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failures log: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failures log returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLogBody))
	if err != nil {
		return nil, fmt.Errorf("read failures log: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	var out []store.ScanAttempt
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		rec, err := c.parseLine(lines[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) parseLine(line string) (store.ScanAttempt, error) {
	ts, serial, ok := strings.Cut(strings.TrimSpace(line), ": ")
	if !ok {
		return store.ScanAttempt{}, fmt.Errorf("malformed failures line %q", line)
	}

	scannedAt, err := time.ParseInLocation(time.UnixDate, ts, c.loc)
	if err != nil {
		return store.ScanAttempt{}, fmt.Errorf("parse failures timestamp %q: %w", ts, err)
	}

	return store.ScanAttempt{
		CardID:    strings.TrimSpace(serial),
		Granted:   false,
		ScannedAt: scannedAt,
	}, nil
}
