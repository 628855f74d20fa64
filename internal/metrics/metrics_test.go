package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCartOperation(t *testing.T) {
	before := testutil.ToFloat64(cartOperationsTotal.WithLabelValues("add", "local", OutcomeSuccess))
	ObserveCartOperation("add", "local", OutcomeSuccess)
	after := testutil.ToFloat64(cartOperationsTotal.WithLabelValues("add", "local", OutcomeSuccess))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestSetBreakerStateAndSessions(t *testing.T) {
	SetBreakerState("remote_cart", 2)
	if got := testutil.ToFloat64(gatewayBreakerState.WithLabelValues("remote_cart")); got != 2 {
		t.Fatalf("unexpected breaker state: %v", got)
	}
	SetActiveSessions(3)
	if got := testutil.ToFloat64(cartSessionsActive); got != 3 {
		t.Fatalf("unexpected active sessions: %v", got)
	}
}

func TestObserveHTTPRequestUnknownPath(t *testing.T) {
	ObserveHTTPRequest("GET", "", 200, 10*time.Millisecond)
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "200")); got < 1 {
		t.Fatalf("expected unknown path to be recorded, got %v", got)
	}
}
