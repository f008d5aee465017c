package api

import "time"

// Wire DTOs for the Rumoro backend. Field names follow the server's JSON;
// conversion to domain models lives in convert.go.

type authResponseDTO struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

type balanceDTO struct {
	Balance     int64  `json:"balance"`
	DailyStreak int64  `json:"daily_streak"`
	LastClaim   string `json:"last_claim,omitempty"` // RFC 3339, absent when never claimed
}

type transactionDTO struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Reason       string            `json:"reason"`
	Amount       int64             `json:"amount"`
	BalanceAfter int64             `json:"balance_after"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

type transactionsPageDTO struct {
	Results []transactionDTO `json:"results"`
	Balance int64            `json:"balance"`
	Streak  int64            `json:"daily_streak"`
}

type gossipDTO struct {
	ID           string     `json:"id"`
	ProfileID    string     `json:"profile_id"`
	ChannelID    string     `json:"channel_id"`
	Text         string     `json:"text"`
	LikeCount    int        `json:"like_count"`
	ReplyCount   int        `json:"reply_count"`
	IsLiked      bool       `json:"is_liked"`
	IsHidden     bool       `json:"is_hidden"`
	BoostedUntil *time.Time `json:"boosted_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type feedPageDTO struct {
	Results []gossipDTO `json:"results"`
	Page    int         `json:"page"`
	HasMore bool        `json:"has_more"`
}

type profileDTO struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	AvatarURL   string    `json:"avatar_url"`
	Claimed     bool      `json:"claimed"`
	ClaimedBy   string    `json:"claimed_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type channelDTO struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profile_id"`
	Name        string    `json:"name"`
	Preset      bool      `json:"preset"`
	GossipCount int       `json:"gossip_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// txEnvelopeDTO is attached to every endpoint that moves Buzz, so the client
// can reconcile against the server's balance_after without recomputation.
type txEnvelopeDTO struct {
	Transaction transactionDTO `json:"transaction"`
}
