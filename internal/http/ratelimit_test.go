package http

import (
	"testing"
	"time"
)

func TestMemoryRateLimiter_AllowsUpToMax(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatalf("request over the limit should be rejected")
	}
}

func TestMemoryRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 1)

	if !limiter.Allow("1.1.1.1") {
		t.Fatalf("first client should be allowed")
	}
	if !limiter.Allow("2.2.2.2") {
		t.Fatalf("second client has its own counter")
	}
	if limiter.Allow("1.1.1.1") {
		t.Fatalf("first client should now be limited")
	}
}

func TestMemoryRateLimiter_WindowResets(t *testing.T) {
	limiter := NewMemoryRateLimiter(10*time.Millisecond, 1)

	if !limiter.Allow("1.2.3.4") {
		t.Fatalf("first request should be allowed")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatalf("second request inside the window should be rejected")
	}

	time.Sleep(20 * time.Millisecond)
	if !limiter.Allow("1.2.3.4") {
		t.Fatalf("request after the window should be allowed again")
	}
}

func TestMemoryRateLimiter_RejectsEmptyKey(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 5)
	if limiter.Allow("") {
		t.Fatalf("empty key should be rejected")
	}
}
