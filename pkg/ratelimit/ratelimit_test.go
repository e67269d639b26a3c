package ratelimit

import (
	"testing"
)

func TestAllowWithinBurst(t *testing.T) {
	limiter := New(60, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("alice", "submit") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if limiter.Allow("alice", "submit") {
		t.Fatal("request beyond burst should be denied")
	}
}

func TestBucketsAreKeyedByPrincipal(t *testing.T) {
	limiter := New(60, 1)

	if !limiter.Allow("alice", "submit") {
		t.Fatal("alice's first request should pass")
	}
	if limiter.Allow("alice", "submit") {
		t.Fatal("alice's second request should be denied")
	}
	if !limiter.Allow("bob", "submit") {
		t.Fatal("bob has a separate bucket and should pass")
	}
}

func TestBucketsAreKeyedByEndpoint(t *testing.T) {
	limiter := New(60, 1)

	if !limiter.Allow("alice", "submit") {
		t.Fatal("submit should pass")
	}
	if !limiter.Allow("alice", "generate") {
		t.Fatal("generate has a separate bucket and should pass")
	}
}

func TestDefaultsAppliedForInvalidConfig(t *testing.T) {
	limiter := New(0, 0)

	if !limiter.Allow("alice", "submit") {
		t.Fatal("defaulted limiter should allow the first request")
	}
}
