package driver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/orderbot/models"
)

func TestIsAdDomain(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"doubleclick.net", true},
		{"stats.g.doubleclick.net", true},
		{"WWW.Google-Analytics.com", true},
		{"robotsparebinindustries.com", false},
		{"notdoubleclick.net", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isAdDomain(tt.host); got != tt.want {
			t.Errorf("isAdDomain(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestRequestFilter(t *testing.T) {
	f := newRequestFilter([]string{"Font", "Media", "Bogus"}, true)

	tests := []struct {
		name string
		rt   proto.NetworkResourceType
		url  string
		want bool
	}{
		{"font blocked", proto.NetworkResourceTypeFont, "https://robotsparebinindustries.com/a.woff", true},
		{"image allowed", proto.NetworkResourceTypeImage, "https://robotsparebinindustries.com/heads/1.png", false},
		{"stylesheet allowed", proto.NetworkResourceTypeStylesheet, "https://robotsparebinindustries.com/app.css", false},
		{"tracker blocked", proto.NetworkResourceTypeScript, "https://www.googletagmanager.com/gtm.js", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.blocks(tt.rt, tt.url); got != tt.want {
				t.Errorf("blocks() = %v, want %v", got, tt.want)
			}
		})
	}

	if !newRequestFilter(nil, false).empty() {
		t.Error("filter with no types and no ad blocking should be empty")
	}
	if newRequestFilter(nil, false).blocks(proto.NetworkResourceTypeScript, "https://doubleclick.net/x.js") {
		t.Error("ad blocking disabled should let trackers through")
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wait: %w", context.DeadlineExceeded), models.ErrCodeTimeout},
		{context.Canceled, models.ErrCodeTimeout},
		{errors.New("cdp: node detached"), models.ErrCodeCapture},
	}
	for _, tt := range tests {
		got := categorizeError(tt.err, models.ErrCodeCapture, "capture")
		if got.Code != tt.want {
			t.Errorf("categorizeError(%v).Code = %q, want %q", tt.err, got.Code, tt.want)
		}
		if !errors.Is(got, tt.err) {
			t.Errorf("categorizeError(%v) should wrap the original error", tt.err)
		}
	}
}

func TestExtraHeaders(t *testing.T) {
	h := extraHeaders([]string{"Accept-Language: en-US", "broken", "X-Run:  nightly "})
	if len(h) != 2 {
		t.Fatalf("got %d headers, want 2", len(h))
	}
	if got := h["Accept-Language"].Str(); got != "en-US" {
		t.Errorf("Accept-Language = %q", got)
	}
	if got := h["X-Run"].Str(); got != "nightly" {
		t.Errorf("X-Run = %q", got)
	}
}
