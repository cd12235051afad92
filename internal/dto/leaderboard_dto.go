package dto

import "github.com/noah-isme/promptcraft-portal/pkg/promptcraft"

// LeaderboardQuery selects a ranking page.
type LeaderboardQuery struct {
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
	Offset int    `query:"offset" validate:"omitempty,gte=0"`
	Period string `query:"period" validate:"omitempty,oneof=all_time monthly weekly"`
}

// ToParams applies defaults: 50 entries of the all-time ranking.
func (q LeaderboardQuery) ToParams() promptcraft.LeaderboardParams {
	params := promptcraft.LeaderboardParams{Limit: q.Limit, Offset: q.Offset, Period: q.Period}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Period == "" {
		params.Period = "all_time"
	}
	return params
}

// LeaderboardEntryView is one ranked row with its display name.
type LeaderboardEntryView struct {
	promptcraft.LeaderboardEntry
	DisplayName   string `json:"display_name"`
	IsCurrentUser bool   `json:"is_current_user"`
}

// LeaderboardView is the ranking page.
type LeaderboardView struct {
	Entries         []LeaderboardEntryView `json:"entries"`
	TotalUsers      int                    `json:"total_users"`
	CurrentUserRank *int                   `json:"current_user_rank,omitempty"`
	CurrentUser     *LeaderboardEntryView  `json:"current_user,omitempty"`
	Period          string                 `json:"period"`
}

// NewLeaderboardView marks the caller's row and resolves display names.
func NewLeaderboardView(board promptcraft.Leaderboard, period string, currentUserID uint) LeaderboardView {
	view := LeaderboardView{
		Entries:         make([]LeaderboardEntryView, 0, len(board.Entries)),
		TotalUsers:      board.TotalUsers,
		CurrentUserRank: board.CurrentUserRank,
		Period:          period,
	}
	for _, entry := range board.Entries {
		view.Entries = append(view.Entries, newLeaderboardEntryView(entry, currentUserID))
	}
	if board.CurrentUserEntry != nil {
		current := newLeaderboardEntryView(*board.CurrentUserEntry, currentUserID)
		view.CurrentUser = &current
	}
	return view
}

func newLeaderboardEntryView(entry promptcraft.LeaderboardEntry, currentUserID uint) LeaderboardEntryView {
	name := entry.Username
	if entry.FullName != nil && *entry.FullName != "" {
		name = *entry.FullName
	}
	return LeaderboardEntryView{
		LeaderboardEntry: entry,
		DisplayName:      name,
		IsCurrentUser:    currentUserID != 0 && entry.UserID == currentUserID,
	}
}
