package services_test

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"

	"stagehand/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "youtube", "transition", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"youtube", "transition", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestClassifyPrefersTypedCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"404", &googleapi.Error{Code: 404, Message: "broadcast deleted"}, services.ErrNotFound},
		{"429", &googleapi.Error{Code: 429, Message: "slow down"}, services.ErrRateLimited},
		{"403 quota", &googleapi.Error{Code: 403, Message: "quotaExceeded"}, services.ErrRateLimited},
		{"403 other", &googleapi.Error{Code: 403, Message: "forbidden"}, services.ErrConfiguration},
		{"401", &googleapi.Error{Code: 401, Message: "invalid credentials"}, services.ErrConfiguration},
		{"400 not ready", &googleapi.Error{Code: 400, Message: "invalid transition: stream is inactive"}, services.ErrNotReady},
		{"400 other", &googleapi.Error{Code: 400, Message: "invalidTitle"}, services.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyFallsBackToPatterns(t *testing.T) {
	if got := services.Classify(errors.New("ingest stream not found for broadcast")); !errors.Is(got, services.ErrNotReady) {
		t.Fatalf("expected not-ready classification, got %v", got)
	}
	if got := services.Classify(errors.New("the user requests exceed the quota")); !errors.Is(got, services.ErrRateLimited) {
		t.Fatalf("expected rate-limited classification, got %v", got)
	}
	if got := services.Classify(errors.New("resource not found")); !errors.Is(got, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", got)
	}
	if got := services.Classify(errors.New("connection reset by peer")); !errors.Is(got, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", got)
	}
}

func TestClassifyPassesThroughMarkers(t *testing.T) {
	wrapped := services.Wrap(services.ErrNotFound, "youtube", "status", "gone", nil)
	if got := services.Classify(wrapped); !errors.Is(got, services.ErrNotFound) {
		t.Fatalf("expected marker passthrough, got %v", got)
	}
	if got := services.Classify(nil); got != nil {
		t.Fatalf("expected nil classification for nil error, got %v", got)
	}
}
