package domain

import (
	"encoding/json"
	"sort"
)

// UnknownMemberName is what DisplayName returns for a completed member with no recorded name
const UnknownMemberName = "Unknown"

// WeeklyLedgerEntry is one group's completion state for a single week
type WeeklyLedgerEntry struct {
	GroupID       string
	WeekStart     string // Monday, YYYY-MM-DD, reference timezone
	Completed     map[string]struct{}
	CompletedInfo map[string]string
	SeenEventIDs  map[string]struct{}
}

// NewWeeklyLedgerEntry creates an empty entry for the given week
func NewWeeklyLedgerEntry(groupID, weekStart string) *WeeklyLedgerEntry {
	e := &WeeklyLedgerEntry{GroupID: groupID}
	e.ResetTo(weekStart)
	return e
}

// ResetTo clears all weekly state and moves the entry to weekStart.
// This is destructive: nothing from the previous week is carried over.
func (e *WeeklyLedgerEntry) ResetTo(weekStart string) {
	e.WeekStart = weekStart
	e.Completed = make(map[string]struct{})
	e.CompletedInfo = make(map[string]string)
	e.SeenEventIDs = make(map[string]struct{})
}

// IsStale reports whether the entry belongs to a different week
func (e *WeeklyLedgerEntry) IsStale(weekStart string) bool {
	return e.WeekStart != weekStart
}

// HasSeen reports whether eventID was already accounted for this week
func (e *WeeklyLedgerEntry) HasSeen(eventID string) bool {
	_, ok := e.SeenEventIDs[eventID]
	return ok
}

// HasCompleted reports whether contactID completed this week
func (e *WeeklyLedgerEntry) HasCompleted(contactID string) bool {
	_, ok := e.Completed[contactID]
	return ok
}

// MarkSeen records eventID. Returns false if it was already present.
func (e *WeeklyLedgerEntry) MarkSeen(eventID string) bool {
	if e.HasSeen(eventID) {
		return false
	}
	e.SeenEventIDs[eventID] = struct{}{}
	return true
}

// MarkCompleted records contactID as completed. An empty name leaves
// CompletedInfo untouched. Returns false if the contact was already completed.
func (e *WeeklyLedgerEntry) MarkCompleted(contactID, name string) bool {
	if name != "" {
		if _, ok := e.CompletedInfo[contactID]; !ok {
			e.CompletedInfo[contactID] = name
		}
	}
	if e.HasCompleted(contactID) {
		return false
	}
	e.Completed[contactID] = struct{}{}
	return true
}

// ResolvedName returns the recorded name for a completed member. Only a
// missing or empty record counts as unresolved.
func (e *WeeklyLedgerEntry) ResolvedName(contactID string) (string, bool) {
	name, ok := e.CompletedInfo[contactID]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// DisplayName returns the recorded name, or UnknownMemberName
func (e *WeeklyLedgerEntry) DisplayName(contactID string) string {
	if name, ok := e.ResolvedName(contactID); ok {
		return name
	}
	return UnknownMemberName
}

// CompletedIDs returns the completed contact IDs, sorted
func (e *WeeklyLedgerEntry) CompletedIDs() []string {
	return sortedKeys(e.Completed)
}

// Clone returns a deep copy
func (e *WeeklyLedgerEntry) Clone() *WeeklyLedgerEntry {
	c := NewWeeklyLedgerEntry(e.GroupID, e.WeekStart)
	for k := range e.Completed {
		c.Completed[k] = struct{}{}
	}
	for k, v := range e.CompletedInfo {
		c.CompletedInfo[k] = v
	}
	for k := range e.SeenEventIDs {
		c.SeenEventIDs[k] = struct{}{}
	}
	return c
}

// ledgerEntryJSON keeps the field names of the weekly_progress.json files
// written by earlier versions of the bot.
type ledgerEntryJSON struct {
	GroupID       string            `json:"group_uuid"`
	WeekStart     string            `json:"week_start"`
	Completed     []string          `json:"completed_members"`
	CompletedInfo map[string]string `json:"completed_members_info,omitempty"`
	SeenEventIDs  []string          `json:"messages_analyzed"`
}

// MarshalJSON encodes sets as sorted lists
func (e *WeeklyLedgerEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(ledgerEntryJSON{
		GroupID:       e.GroupID,
		WeekStart:     e.WeekStart,
		Completed:     sortedKeys(e.Completed),
		CompletedInfo: e.CompletedInfo,
		SeenEventIDs:  sortedKeys(e.SeenEventIDs),
	})
}

// UnmarshalJSON decodes an entry; absent fields default to empty
func (e *WeeklyLedgerEntry) UnmarshalJSON(data []byte) error {
	var raw ledgerEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.GroupID = raw.GroupID
	e.ResetTo(raw.WeekStart)
	for _, id := range raw.Completed {
		e.Completed[id] = struct{}{}
	}
	for k, v := range raw.CompletedInfo {
		e.CompletedInfo[k] = v
	}
	for _, id := range raw.SeenEventIDs {
		e.SeenEventIDs[id] = struct{}{}
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
