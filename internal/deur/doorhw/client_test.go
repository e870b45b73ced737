package doorhw_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avanserv/deurapi/internal/deur/doorhw"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *doorhw.Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := doorhw.NewClient(ts.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

const failuresLog = `Mon Sep 14 12:20:31 CEST 2015: 04:11:22:33
Mon Sep 14 12:22:56 CEST 2015: 04:AA:BB:CC
Mon Sep 14 12:23:01 CEST 2015: 04:AA:BB:CC
`

func TestRecentDenied_ParsesNewestFirst(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(failuresLog))
	})

	got, err := c.RecentDenied(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentDenied: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 scans, got %d", len(got))
	}

	if got[0].CardID != "04:AA:BB:CC" || got[1].CardID != "04:AA:BB:CC" {
		t.Errorf("unexpected serials: %s, %s", got[0].CardID, got[1].CardID)
	}
	if !got[0].ScannedAt.After(got[1].ScannedAt) {
		t.Errorf("expected newest first, got %v then %v", got[0].ScannedAt, got[1].ScannedAt)
	}
	if got[0].Granted || got[1].Granted {
		t.Error("refusal log entries must read as denied")
	}
}

func TestRecentDenied_NaiveTimestampsAreAmsterdamLocal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Mon Sep 14 12:23:01 CEST 2015: 04:AA:BB:CC\nMon Sep 14 12:23:05 CEST 2015: 04:AA:BB:CC\n"))
	})

	got, err := c.RecentDenied(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentDenied: %v", err)
	}

	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	want := time.Date(2015, 9, 14, 12, 23, 5, 0, loc)
	if !got[0].ScannedAt.Equal(want) {
		t.Errorf("expected %v, got %v", want, got[0].ScannedAt)
	}
}

func TestRecentDenied_ShortLog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Mon Sep 14 12:23:01 CEST 2015: 04:AA:BB:CC\n"))
	})

	got, err := c.RecentDenied(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentDenied: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 scan from a one-line log, got %d", len(got))
	}
}

func TestRecentDenied_NonOKStatus_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := c.RecentDenied(context.Background(), 2); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestRecentDenied_MalformedLine_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("garbage without separator\n"))
	})

	if _, err := c.RecentDenied(context.Background(), 2); err == nil {
		t.Fatal("expected error on malformed line")
	}
}

func TestRecentDenied_ServerGone_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c, err := doorhw.NewClient(url, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.RecentDenied(context.Background(), 2); err == nil {
		t.Fatal("expected transport error when controller is unreachable")
	}
}
