package db

import "testing"

func TestGetPendingFollowupsFilters(t *testing.T) {
	setupTestDB(t)
	const date = "2026-08-28"

	// Still pending, one reminder in.
	if err := MarkCheckinSent("U_PENDING", "Pending", date); err != nil {
		t.Fatal(err)
	}
	if err := IncrementFollowupCount("U_PENDING", date); err != nil {
		t.Fatal(err)
	}

	// Already responded.
	if err := MarkCheckinSent("U_DONE", "Done", date); err != nil {
		t.Fatal(err)
	}
	if err := MarkResponded("U_DONE", date); err != nil {
		t.Fatal(err)
	}

	// Follow-up budget exhausted.
	if err := MarkCheckinSent("U_SPENT", "Spent", date); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := IncrementFollowupCount("U_SPENT", date); err != nil {
			t.Fatal(err)
		}
	}

	// Different date.
	if err := MarkCheckinSent("U_OTHER", "Other", "2026-08-27"); err != nil {
		t.Fatal(err)
	}

	pending, err := GetPendingFollowups(date, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending: got %d records, want 1 (%+v)", len(pending), pending)
	}
	if pending[0].SlackID != "U_PENDING" || pending[0].FollowupCount != 1 {
		t.Errorf("pending: got %+v", pending[0])
	}
}

func TestMarkCheckinSentIdempotent(t *testing.T) {
	setupTestDB(t)
	const date = "2026-08-28"

	if err := MarkCheckinSent("U_A", "A", date); err != nil {
		t.Fatal(err)
	}
	if err := IncrementFollowupCount("U_A", date); err != nil {
		t.Fatal(err)
	}
	// A resend must not reset the existing record.
	if err := MarkCheckinSent("U_A", "A", date); err != nil {
		t.Fatal(err)
	}

	pending, err := GetPendingFollowups(date, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].FollowupCount != 1 {
		t.Errorf("after resend: got %+v", pending)
	}
}

func TestMarkRespondedFlipsHasResponded(t *testing.T) {
	setupTestDB(t)
	const date = "2026-08-28"

	if err := MarkCheckinSent("U_A", "A", date); err != nil {
		t.Fatal(err)
	}
	responded, err := HasResponded("U_A", date)
	if err != nil {
		t.Fatal(err)
	}
	if responded {
		t.Fatal("fresh record should not count as responded")
	}

	if err := MarkResponded("U_A", date); err != nil {
		t.Fatal(err)
	}
	responded, err = HasResponded("U_A", date)
	if err != nil {
		t.Fatal(err)
	}
	if !responded {
		t.Error("record should count as responded after the flip")
	}

	// Missing rows are a no-op, not an error.
	if err := MarkResponded("U_GHOST", date); err != nil {
		t.Errorf("MarkResponded on a missing row: %v", err)
	}
}

func TestPurgeCheckinsBefore(t *testing.T) {
	setupTestDB(t)

	for _, date := range []string{"2026-08-20", "2026-08-21", "2026-08-28"} {
		if err := MarkCheckinSent("U_A", "A", date); err != nil {
			t.Fatal(err)
		}
	}

	purged, err := PurgeCheckinsBefore("2026-08-22")
	if err != nil {
		t.Fatal(err)
	}
	if purged != 2 {
		t.Errorf("purged: got %d, want 2", purged)
	}

	pending, err := GetPendingFollowups("2026-08-28", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("the newer record should survive the sweep, got %+v", pending)
	}
}
