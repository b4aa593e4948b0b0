package domain

import (
	"strings"
	"time"
)

// Group is a monitored chat group as seen at the last directory refresh
type Group struct {
	ID        string     `json:"uuid"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at,omitempty"` // nil when the gateway does not report it
	Members   []Member   `json:"participants"`
}

// MemberName returns the display name of a member, if known
func (g *Group) MemberName(contactID string) string {
	for _, m := range g.Members {
		if m.ContactID == contactID {
			return m.Name
		}
	}
	return ""
}

// ContactIDs returns the distinct non-empty member contact IDs
func (g *Group) ContactIDs() []string {
	seen := make(map[string]struct{}, len(g.Members))
	var ids []string
	for _, m := range g.Members {
		if m.ContactID == "" {
			continue
		}
		if _, ok := seen[m.ContactID]; ok {
			continue
		}
		seen[m.ContactID] = struct{}{}
		ids = append(ids, m.ContactID)
	}
	return ids
}

// EligibilityPolicy decides which groups may be monitored
type EligibilityPolicy struct {
	Keyword string        // case-insensitive substring; empty matches every group
	MinAge  time.Duration // minimum group age
	// AllowUnknownAge admits groups whose creation date is unavailable
	AllowUnknownAge bool
}

// MatchesKeyword reports whether name contains the configured keyword
func (p EligibilityPolicy) MatchesKeyword(name string) bool {
	if p.Keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(p.Keyword))
}

// OldEnough applies the minimum-age gate
func (p EligibilityPolicy) OldEnough(createdAt *time.Time, now time.Time) bool {
	if createdAt == nil || createdAt.IsZero() {
		return p.AllowUnknownAge
	}
	return now.Sub(*createdAt) >= p.MinAge
}

// Eligible combines the keyword and age gates
func (p EligibilityPolicy) Eligible(g *Group, now time.Time) bool {
	return p.MatchesKeyword(g.Name) && p.OldEnough(g.CreatedAt, now)
}
