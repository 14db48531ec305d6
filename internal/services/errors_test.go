package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"mediasolver/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "import", "import media", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"import", "import media", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestDetailStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "preset", "", "preset \"X\" not available", nil)
	if got := services.Detail(err); got != "preset: preset \"X\" not available" {
		t.Fatalf("unexpected detail: %q", got)
	}
	plain := errors.New("plain failure")
	if got := services.Detail(plain); got != "plain failure" {
		t.Fatalf("unexpected detail for plain error: %q", got)
	}
	if got := services.Detail(nil); got != "" {
		t.Fatalf("expected empty detail for nil, got %q", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{services.Wrap(services.ErrValidation, "api", "start", "bad", nil), http.StatusBadRequest},
		{services.Wrap(services.ErrNotFound, "api", "job", "none", nil), http.StatusNotFound},
		{services.Wrap(services.ErrHostUnavailable, "api", "presets", "off", nil), http.StatusServiceUnavailable},
		{services.Wrap(services.ErrTimeout, "api", "presets", "slow", nil), http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
