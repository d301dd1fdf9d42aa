package db

import (
	"testing"
	"time"
)

func testResponse(slackID, date string, value int) *Response {
	return &Response{
		SlackID:     slackID,
		Name:        "Jane",
		Role:        "SDR",
		Question:    "Did you hit quota?",
		Date:        date,
		Value:       value,
		RespondedAt: time.Now().UTC(),
	}
}

func TestAddResponseBlocksDuplicates(t *testing.T) {
	setupTestDB(t)
	const date = "2026-08-28"

	inserted, err := AddResponse(testResponse("U_JANE", date, 80))
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatal("first answer should insert")
	}

	// Second answer for the same key loses at the unique constraint.
	inserted, err = AddResponse(testResponse("U_JANE", date, 40))
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Fatal("duplicate answer must not insert")
	}

	var count int64
	if err := DB.Model(&Response{}).Where("slack_id = ?", "U_JANE").Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count: got %d, want 1", count)
	}
	resp, err := GetResponseForDay("U_JANE", date)
	if err != nil {
		t.Fatal(err)
	}
	if resp == nil || resp.Value != 80 {
		t.Errorf("the first answer stands: got %+v", resp)
	}

	// A different date is a different key.
	inserted, err = AddResponse(testResponse("U_JANE", "2026-08-31", 60))
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Error("a new date should insert")
	}
}

func TestUpdateBlockerAttachesNote(t *testing.T) {
	setupTestDB(t)
	const date = "2026-08-28"

	if _, err := AddResponse(testResponse("U_JANE", date, 80)); err != nil {
		t.Fatal(err)
	}
	if err := UpdateBlocker("U_JANE", date, "ciphertext"); err != nil {
		t.Fatal(err)
	}

	resp, err := GetResponseForDay("U_JANE", date)
	if err != nil {
		t.Fatal(err)
	}
	if resp == nil || resp.Blocker != "ciphertext" {
		t.Errorf("blocker: got %+v", resp)
	}
}

func TestGetResponsesForMemberRange(t *testing.T) {
	setupTestDB(t)

	for _, r := range []struct {
		date  string
		value int
	}{
		{"2026-08-24", 80},
		{"2026-08-25", 40},
		{"2026-08-31", 60},
	} {
		if _, err := AddResponse(testResponse("U_JANE", r.date, r.value)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := AddResponse(testResponse("U_OTHER", "2026-08-24", 100)); err != nil {
		t.Fatal(err)
	}

	// Both bounds inclusive, other members excluded, ordered by date.
	responses, err := GetResponsesForMember("U_JANE", "2026-08-24", "2026-08-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(responses) != 2 {
		t.Fatalf("range: got %d responses, want 2", len(responses))
	}
	if responses[0].Date != "2026-08-24" || responses[1].Date != "2026-08-25" {
		t.Errorf("range order: got %s, %s", responses[0].Date, responses[1].Date)
	}

	if none, err := GetResponseForDay("U_JANE", "2026-08-26"); err != nil || none != nil {
		t.Errorf("missing day: got %+v, %v", none, err)
	}
}
