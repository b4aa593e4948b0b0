package domain

import "time"

// AutoReplyEligibility entitles a reminded member to one contextual reply
type AutoReplyEligibility struct {
	ContactID   string    `json:"contact_id"`
	GroupID     string    `json:"group_id"`
	MessageSent string    `json:"message_sent"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired reports whether the entry is older than ttl. A zero ttl never expires.
func (a *AutoReplyEligibility) IsExpired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(a.CreatedAt) > ttl
}

// GroupReport summarizes one group's weekly report
type GroupReport struct {
	GroupID           string   `json:"group_id"`
	GroupName         string   `json:"group_name"`
	WeekStart         string   `json:"week_start"`
	Completed         []string `json:"completed"`
	Incomplete        []string `json:"incomplete"`
	CongratulatedWith string   `json:"congratulation,omitempty"`
	Reminded          []string `json:"reminded,omitempty"`
	SeenEvents        int      `json:"seen_events"`
}
