package channels

import (
	"strconv"
	"testing"
	"time"
)

func TestChannelRateLimiterBurst(t *testing.T) {
	r := NewChannelRateLimiter(6, 2) // one token per 10s
	now := time.Now()

	if !r.allowAt("c1", now) || !r.allowAt("c1", now) {
		t.Fatal("burst of 2 rejected")
	}
	if r.allowAt("c1", now) {
		t.Error("third event within burst window allowed")
	}
	if !r.allowAt("c2", now) {
		t.Error("independent channel limited")
	}
	if !r.allowAt("c1", now.Add(11*time.Second)) {
		t.Error("token not refilled after 11s")
	}
}

func TestChannelRateLimiterDisabled(t *testing.T) {
	r := NewChannelRateLimiter(0, 0)
	for range 100 {
		if !r.Allow("c") {
			t.Fatal("disabled limiter rejected an event")
		}
	}
	if r.tracked() != 0 {
		t.Errorf("disabled limiter tracked %d keys", r.tracked())
	}
}

func TestChannelRateLimiterBounded(t *testing.T) {
	r := NewChannelRateLimiter(60, 1)
	now := time.Now()
	for i := range maxTrackedKeys + 10 {
		r.allowAt(strconv.Itoa(i), now)
	}
	if n := r.tracked(); n > maxTrackedKeys {
		t.Errorf("tracked = %d, want <= %d", n, maxTrackedKeys)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is long", 4, "this..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
