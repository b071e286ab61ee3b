package status

import (
	"testing"
	"time"
)

func TestSetStatusFailedServices(t *testing.T) {
	tr := NewTracker()

	tr.SetStatus(false, "analytics")
	tr.SetStatus(false, "health")
	tr.SetStatus(false, "analytics")

	snap := tr.Snapshot()
	if len(snap.FailedServices) != 2 {
		t.Fatalf("expected 2 failed services without duplicates, got %v", snap.FailedServices)
	}
	if snap.FailedServices[0] != "analytics" || snap.FailedServices[1] != "health" {
		t.Fatalf("unexpected failed services: %v", snap.FailedServices)
	}
	if snap.Connected {
		t.Fatal("expected disconnected")
	}
}

func TestSetStatusFullRecovery(t *testing.T) {
	tr := NewTracker()

	tr.SetStatus(false, "analytics")
	tr.SetStatus(false, "health")
	tr.IncrementRetryCount()
	tr.IncrementRetryCount()

	tr.SetStatus(true, "")

	snap := tr.Snapshot()
	if len(snap.FailedServices) != 0 {
		t.Fatalf("expected empty failed services, got %v", snap.FailedServices)
	}
	if snap.RetryCount != 0 {
		t.Fatalf("expected retry count 0 after recovery, got %d", snap.RetryCount)
	}
	if !snap.Connected {
		t.Fatal("expected connected")
	}
}

func TestSetStatusSingleServiceRecovery(t *testing.T) {
	tr := NewTracker()

	tr.SetStatus(false, "analytics")
	tr.SetStatus(false, "health")
	tr.SetStatus(true, "analytics")

	snap := tr.Snapshot()
	if len(snap.FailedServices) != 1 || snap.FailedServices[0] != "health" {
		t.Fatalf("expected only health failed, got %v", snap.FailedServices)
	}
}

func TestRetryCountResetOnEveryConnectedReport(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < 5; i++ {
		tr.IncrementRetryCount()
	}
	tr.SetStatus(true, "analytics")
	if got := tr.Snapshot().RetryCount; got != 0 {
		t.Fatalf("expected 0 after connected report, got %d", got)
	}

	tr.IncrementRetryCount()
	tr.SetStatus(false, "analytics")
	if got := tr.Snapshot().RetryCount; got != 1 {
		t.Fatalf("disconnected report must not touch retry count, got %d", got)
	}
}

func TestSetRetrying(t *testing.T) {
	tr := NewTracker()

	tr.SetRetrying(true)
	if !tr.Snapshot().Retrying {
		t.Fatal("expected retrying")
	}
	tr.SetRetrying(false)
	if tr.Snapshot().Retrying {
		t.Fatal("expected not retrying")
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker()

	tr.SetStatus(false, "analytics")
	tr.IncrementRetryCount()
	tr.SetRetrying(true)
	tr.Reset()

	snap := tr.Snapshot()
	if !snap.Connected || snap.RetryCount != 0 || snap.Retrying || len(snap.FailedServices) != 0 {
		t.Fatalf("unexpected state after reset: %+v", snap)
	}
}

func TestSubscribeReceivesLatestState(t *testing.T) {
	tr := NewTracker()
	ch, unsubscribe := tr.Subscribe()
	defer unsubscribe()

	tr.SetStatus(false, "analytics")

	select {
	case snap := <-ch:
		if snap.Connected {
			t.Fatal("expected disconnected snapshot")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}

	// A slow subscriber skips intermediate states but gets a later one.
	tr.IncrementRetryCount()
	tr.IncrementRetryCount()

	var last State
	for {
		select {
		case snap := <-ch:
			last = snap
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}
	if last.RetryCount != 2 {
		t.Fatalf("expected latest retry count 2, got %d", last.RetryCount)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	tr := NewTracker()
	ch, unsubscribe := tr.Subscribe()

	unsubscribe()
	unsubscribe()

	if _, open := <-ch; open {
		t.Fatal("expected closed channel after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	tr.SetStatus(false, "analytics")
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker()
	tr.SetStatus(false, "analytics")

	snap := tr.Snapshot()
	snap.FailedServices[0] = "mutated"

	if got := tr.Snapshot().FailedServices[0]; got != "analytics" {
		t.Fatalf("snapshot mutation leaked into tracker: %q", got)
	}
}
