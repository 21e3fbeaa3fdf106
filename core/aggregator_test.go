package session

import (
	"testing"
	"time"
)

func TestAggregatorJoinsFragmentsInOrder(t *testing.T) {
	aggregator := utteranceAggregator{}
	now := time.Now()

	aggregator.addFragment("Hello", now)
	aggregator.addFragment("how are you", now.Add(200*time.Millisecond))
	aggregator.addFragment("today", now.Add(400*time.Millisecond))

	if got := aggregator.pendingText(); got != "Hello, how are you, today" {
		t.Fatalf("expected fragments joined in arrival order, got %q", got)
	}
}

func TestAggregatorShortLoneFragmentDispatchesImmediately(t *testing.T) {
	aggregator := utteranceAggregator{}
	now := time.Now()

	aggregator.addFragment("Sim", now)

	if !aggregator.due(now.Add(patiencePollInterval), time.Second) {
		t.Fatalf("expected a short lone fragment to be due at the next poll")
	}
	if got := aggregator.take(); got != "Sim" {
		t.Fatalf("expected dispatched text %q, got %q", "Sim", got)
	}
}

func TestAggregatorLongFragmentWaitsForPatienceGap(t *testing.T) {
	aggregator := utteranceAggregator{}
	now := time.Now()
	patience := time.Second

	aggregator.addFragment("This fragment is comfortably over thirty characters", now)

	if aggregator.due(now.Add(patiencePollInterval), patience) {
		t.Fatalf("expected a long fragment to wait out the patience gap")
	}
	if !aggregator.due(now.Add(patience+patiencePollInterval), patience) {
		t.Fatalf("expected dispatch once the gap exceeded patience")
	}
}

func TestAggregatorSecondFragmentDisablesFastPath(t *testing.T) {
	aggregator := utteranceAggregator{}
	now := time.Now()
	patience := time.Second

	aggregator.addFragment("Hello", now)
	aggregator.addFragment("world", now.Add(50*time.Millisecond))

	if aggregator.due(now.Add(100*time.Millisecond), patience) {
		t.Fatalf("expected a multi-fragment utterance to wait out the patience gap")
	}
	if !aggregator.due(now.Add(50*time.Millisecond+patience+time.Millisecond), patience) {
		t.Fatalf("expected dispatch once the gap since the last fragment exceeded patience")
	}
	if got := aggregator.take(); got != "Hello, world" {
		t.Fatalf("expected dispatched text %q, got %q", "Hello, world", got)
	}
}

func TestAggregatorFragmentRearmsDeadline(t *testing.T) {
	aggregator := utteranceAggregator{}
	now := time.Now()
	patience := time.Second

	aggregator.addFragment("First fragment that is long enough to skip the fast path", now)
	aggregator.addFragment("second", now.Add(900*time.Millisecond))

	if aggregator.due(now.Add(1100*time.Millisecond), patience) {
		t.Fatalf("expected the second fragment to restart the patience window")
	}
}

func TestAggregatorEmptyUtteranceBecomesPlaceholder(t *testing.T) {
	aggregator := utteranceAggregator{}
	now := time.Now()

	aggregator.addFragment("", now)

	if !aggregator.due(now.Add(patiencePollInterval), time.Second) {
		t.Fatalf("expected an empty pending utterance to be due")
	}
	if got := aggregator.take(); got != emptyUtterancePlaceholder {
		t.Fatalf("expected placeholder %q, got %q", emptyUtterancePlaceholder, got)
	}
}

func TestAggregatorTakeClearsPendingState(t *testing.T) {
	aggregator := utteranceAggregator{}
	now := time.Now()

	aggregator.addFragment("Hello", now)
	aggregator.take()

	if aggregator.isAccumulating() {
		t.Fatalf("expected take to clear the pending utterance")
	}
	if aggregator.due(now.Add(time.Hour), time.Second) {
		t.Fatalf("expected nothing to be due after take")
	}
}

func TestAggregatorClearDiscardsWithoutDispatch(t *testing.T) {
	aggregator := utteranceAggregator{}

	aggregator.addFragment("discarded", time.Now())
	aggregator.clear()

	if aggregator.pendingText() != "" {
		t.Fatalf("expected clear to drop accumulated fragments")
	}
}
