package store

import "testing"

func TestMeetingStatusValid(t *testing.T) {
	for _, s := range []MeetingStatus{MeetingUploading, MeetingProcessing, MeetingCompleted, MeetingFailed} {
		if !s.Valid() {
			t.Fatalf("status %q should be valid", s)
		}
	}
	if MeetingStatus("archived").Valid() {
		t.Fatalf("unknown status should be invalid")
	}
	if MeetingStatus("").Valid() {
		t.Fatalf("empty status should be invalid")
	}
}

func TestActionItemEnumsValid(t *testing.T) {
	for _, s := range []ActionItemStatus{ActionPending, ActionInProgress, ActionCompleted, ActionCancelled} {
		if !s.Valid() {
			t.Fatalf("status %q should be valid", s)
		}
	}
	if ActionItemStatus("done").Valid() {
		t.Fatalf("unknown action status should be invalid")
	}

	for _, p := range []ActionItemPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		if !p.Valid() {
			t.Fatalf("priority %q should be valid", p)
		}
	}
	if ActionItemPriority("urgent").Valid() {
		t.Fatalf("unknown priority should be invalid")
	}
}
