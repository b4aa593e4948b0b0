package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestWeeklyLedgerEntry_Idempotent(t *testing.T) {
	e := NewWeeklyLedgerEntry("G1", "2024-01-15")

	if !e.MarkSeen("m1") {
		t.Error("Expected first MarkSeen to report a change")
	}
	if e.MarkSeen("m1") {
		t.Error("Expected second MarkSeen to be a no-op")
	}
	if !e.MarkCompleted("+100", "Ann") {
		t.Error("Expected first MarkCompleted to report a change")
	}
	if e.MarkCompleted("+100", "Ann") {
		t.Error("Expected second MarkCompleted to be a no-op")
	}
	if len(e.Completed) != 1 || len(e.SeenEventIDs) != 1 {
		t.Errorf("Expected 1 completed and 1 seen, got %d and %d", len(e.Completed), len(e.SeenEventIDs))
	}
}

func TestWeeklyLedgerEntry_ResetTo(t *testing.T) {
	e := NewWeeklyLedgerEntry("G1", "2024-01-08")
	e.MarkCompleted("A", "Ann")
	e.MarkSeen("m0")

	if !e.IsStale("2024-01-15") {
		t.Fatal("Expected entry to be stale for the next week")
	}
	e.ResetTo("2024-01-15")

	if e.WeekStart != "2024-01-15" {
		t.Errorf("Expected week 2024-01-15, got %s", e.WeekStart)
	}
	if len(e.Completed) != 0 || len(e.CompletedInfo) != 0 || len(e.SeenEventIDs) != 0 {
		t.Error("Expected all weekly state to be cleared")
	}
}

func TestWeeklyLedgerEntry_RoundTrip(t *testing.T) {
	e := NewWeeklyLedgerEntry("G1", "2024-01-15")
	e.MarkCompleted("+100", "Ann")
	e.MarkCompleted("+200", "") // no name recorded
	e.MarkSeen("m1")
	e.MarkSeen("m2")

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got WeeklyLedgerEntry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(e, &got) {
		t.Errorf("Round trip mismatch:\nwant %+v\ngot  %+v", e, &got)
	}
	if got.DisplayName("+200") != UnknownMemberName {
		t.Errorf("Expected placeholder name, got %q", got.DisplayName("+200"))
	}
	if got.DisplayName("+100") != "Ann" {
		t.Errorf("Expected Ann, got %q", got.DisplayName("+100"))
	}
}

func TestWeeklyLedgerEntry_UnmarshalMissingFields(t *testing.T) {
	legacy := `{"group_uuid":"G1","week_start":"2024-01-15","completed_members":["+1"]}`

	var e WeeklyLedgerEntry
	if err := json.Unmarshal([]byte(legacy), &e); err != nil {
		t.Fatalf("Expected legacy entry to load, got %v", err)
	}
	if e.CompletedInfo == nil || e.SeenEventIDs == nil {
		t.Fatal("Expected missing maps to default to empty")
	}
	if !e.HasCompleted("+1") {
		t.Error("Expected +1 to be completed")
	}
	if _, ok := e.ResolvedName("+1"); ok {
		t.Error("Expected no resolved name for +1")
	}
}

func TestWeeklyLedgerEntry_Clone(t *testing.T) {
	e := NewWeeklyLedgerEntry("G1", "2024-01-15")
	e.MarkCompleted("A", "Ann")

	c := e.Clone()
	c.MarkCompleted("B", "Bob")

	if e.HasCompleted("B") {
		t.Error("Expected clone to be independent of the original")
	}
}

func TestWeeklyLedgerEntry_MemberNamedUnknownResolves(t *testing.T) {
	e := NewWeeklyLedgerEntry("G1", "2024-01-15")
	e.MarkCompleted("+100", UnknownMemberName)
	e.MarkCompleted("+200", "")

	if name, ok := e.ResolvedName("+100"); !ok || name != UnknownMemberName {
		t.Errorf("Expected recorded name %q to resolve, got %q, %v", UnknownMemberName, name, ok)
	}
	if _, ok := e.ResolvedName("+200"); ok {
		t.Error("Expected member without a recorded name to be unresolved")
	}
}
