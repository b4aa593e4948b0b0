// Package mcp exposes the persisted tracking state as read-only MCP tools.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
)

// Server serves the weekcheck tools over MCP
type Server struct {
	server *mcp.Server
	store  repo.SnapshotStore
	loc    *time.Location
	botID  string
	now    func() time.Time
}

// NewServer creates a new MCP server reading from store.
// loc is the reference timezone used to decide the current week.
func NewServer(store repo.SnapshotStore, loc *time.Location, botID, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "weekcheck",
			Version: version,
		}, nil),
		store: store,
		loc:   loc,
		botID: botID,
		now:   time.Now,
	}
	s.registerTools()
	return s
}

// Run serves over stdin/stdout until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "weekcheck_list_groups",
		Description: "List the groups currently monitored for weekly completions, with member counts.",
	}, s.handleListGroups)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "weekcheck_weekly_status",
		Description: "Show this week's completed and incomplete members per monitored group. Optionally filter by group_id.",
	}, s.handleWeeklyStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "weekcheck_list_auto_replies",
		Description: "List members currently eligible for one automatic reply after their reminder.",
	}, s.handleListAutoReplies)
}

// ListGroupsInput is empty
type ListGroupsInput struct{}

// GroupInfo describes one monitored group
type GroupInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Members   int    `json:"members"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ListGroupsOutput lists monitored groups
type ListGroupsOutput struct {
	Groups []GroupInfo `json:"groups"`
}

func (s *Server) handleListGroups(ctx context.Context, req *mcp.CallToolRequest, input ListGroupsInput) (*mcp.CallToolResult, ListGroupsOutput, error) {
	groups, err := s.loadGroups(ctx)
	if err != nil {
		return nil, ListGroupsOutput{}, err
	}

	out := ListGroupsOutput{Groups: []GroupInfo{}}
	for _, g := range groups {
		info := GroupInfo{ID: g.ID, Name: g.Name, Members: len(g.ContactIDs())}
		if g.CreatedAt != nil {
			info.CreatedAt = g.CreatedAt.Format(time.RFC3339)
		}
		out.Groups = append(out.Groups, info)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Monitoring %d groups", len(out.Groups))},
		},
	}, out, nil
}

// WeeklyStatusInput optionally selects one group
type WeeklyStatusInput struct {
	GroupID string `json:"group_id,omitempty" jsonschema:"Only report this group"`
}

// MemberStatus is one member's state this week
type MemberStatus struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
}

// GroupStatus is one group's state this week
type GroupStatus struct {
	GroupID    string         `json:"group_id"`
	GroupName  string         `json:"group_name"`
	Completed  []MemberStatus `json:"completed"`
	Incomplete []MemberStatus `json:"incomplete"`
	SeenEvents int            `json:"seen_events"`
}

// WeeklyStatusOutput is the current week's status
type WeeklyStatusOutput struct {
	WeekStart string        `json:"week_start"`
	Groups    []GroupStatus `json:"groups"`
}

func (s *Server) handleWeeklyStatus(ctx context.Context, req *mcp.CallToolRequest, input WeeklyStatusInput) (*mcp.CallToolResult, WeeklyStatusOutput, error) {
	groups, err := s.loadGroups(ctx)
	if err != nil {
		return nil, WeeklyStatusOutput{}, err
	}
	ledger := make(map[string]*domain.WeeklyLedgerEntry)
	if _, err := s.store.Load(ctx, repo.SnapshotLedger, &ledger); err != nil {
		return nil, WeeklyStatusOutput{}, fmt.Errorf("load ledger: %w", err)
	}

	weekStart := domain.WeekKey(s.now(), s.loc)
	out := WeeklyStatusOutput{WeekStart: weekStart, Groups: []GroupStatus{}}

	for _, g := range groups {
		if input.GroupID != "" && g.ID != input.GroupID {
			continue
		}
		entry, ok := ledger[g.ID]
		if !ok || entry == nil || entry.IsStale(weekStart) {
			entry = domain.NewWeeklyLedgerEntry(g.ID, weekStart)
		}

		status := GroupStatus{
			GroupID:    g.ID,
			GroupName:  g.Name,
			Completed:  []MemberStatus{},
			Incomplete: []MemberStatus{},
			SeenEvents: len(entry.SeenEventIDs),
		}
		for _, id := range entry.CompletedIDs() {
			status.Completed = append(status.Completed, MemberStatus{ContactID: id, Name: entry.DisplayName(id)})
		}
		for _, id := range g.ContactIDs() {
			if id == s.botID || entry.HasCompleted(id) {
				continue
			}
			status.Incomplete = append(status.Incomplete, MemberStatus{ContactID: id, Name: g.MemberName(id)})
		}
		out.Groups = append(out.Groups, status)
	}

	if input.GroupID != "" && len(out.Groups) == 0 {
		return nil, out, fmt.Errorf("group %s is not monitored", input.GroupID)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Week of %s: %d groups", weekStart, len(out.Groups))},
		},
	}, out, nil
}

// ListAutoRepliesInput is empty
type ListAutoRepliesInput struct{}

// ListAutoRepliesOutput lists eligibility entries, newest first
type ListAutoRepliesOutput struct {
	Entries []domain.AutoReplyEligibility `json:"entries"`
}

func (s *Server) handleListAutoReplies(ctx context.Context, req *mcp.CallToolRequest, input ListAutoRepliesInput) (*mcp.CallToolResult, ListAutoRepliesOutput, error) {
	var entries []domain.AutoReplyEligibility
	if _, err := s.store.Load(ctx, repo.SnapshotAutoReplies, &entries); err != nil {
		return nil, ListAutoRepliesOutput{}, fmt.Errorf("load auto replies: %w", err)
	}
	if entries == nil {
		entries = []domain.AutoReplyEligibility{}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%d members eligible for an auto-reply", len(entries))},
		},
	}, ListAutoRepliesOutput{Entries: entries}, nil
}

func (s *Server) loadGroups(ctx context.Context) ([]*domain.Group, error) {
	var groups []*domain.Group
	if _, err := s.store.Load(ctx, repo.SnapshotGroups, &groups); err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	return groups, nil
}
