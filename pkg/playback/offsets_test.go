package playback

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOffsetTrackerAnswerBeforeAwait(t *testing.T) {
	tracker := NewOffsetTracker()
	tracker.Expect("a")
	tracker.Record(TrackOffset{RequestID: "a", TrackID: "t", Offset: 42})
	tracker.Record(TrackOffset{RequestID: "a", TrackID: "t", Offset: 99})

	off, err := tracker.Await(context.Background(), "a")
	if err != nil {
		t.Fatalf("await failed: %v", err)
	}
	if off.Offset != 42 {
		t.Errorf("expected first answer 42, got %d", off.Offset)
	}
	if tracker.Pending() != 0 {
		t.Errorf("expected no pending entries, got %d", tracker.Pending())
	}
}

func TestOffsetTrackerDropsLateAnswers(t *testing.T) {
	tracker := NewOffsetTracker()
	tracker.Expect("slow")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := tracker.Await(ctx, "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	tracker.Record(TrackOffset{RequestID: "slow"})
	tracker.Record(TrackOffset{RequestID: "never-asked"})
	if tracker.Pending() != 0 {
		t.Errorf("expected late answers to be discarded, got %d pending", tracker.Pending())
	}
}
