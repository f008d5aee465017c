// Package model defines domain entities used by the client core.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Session is the current authenticated identity. The zero value is the
// logged-out state. AccessToken set implies RefreshToken set (issued together).
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// LoggedIn reports whether the session carries tokens.
func (s Session) LoggedIn() bool { return s.AccessToken != "" }

// TxType is the sign of a Buzz transaction.
type TxType string

const (
	TxEarn  TxType = "earn"
	TxSpend TxType = "spend"
)

// TxReason names the economic event behind a Buzz transaction.
type TxReason string

const (
	ReasonDailyOpen     TxReason = "daily_open"
	ReasonPostSurvived  TxReason = "post_survived"
	ReasonPostReplies   TxReason = "post_replies"
	ReasonClaimProfile  TxReason = "claim_profile"
	ReasonCreateChannel TxReason = "create_channel"
	ReasonBoostGossip   TxReason = "boost_gossip"
	ReasonCosmetic      TxReason = "cosmetic"
)

// TxMetadata is reason-specific context carried by a transaction. Each reason
// has its own variant; the sealed marker keeps the set closed.
type TxMetadata interface{ txMetadata() }

// DailyOpen accompanies daily_open earns.
type DailyOpen struct {
	Streak int64 `json:"streak"`
}

// ChannelCreated accompanies create_channel spends.
type ChannelCreated struct {
	ChannelName string `json:"channel_name"`
}

// GossipRef accompanies post_survived / post_replies / boost_gossip.
type GossipRef struct {
	GossipID string `json:"gossip_id"`
}

// ProfileClaimed accompanies claim_profile earns.
type ProfileClaimed struct {
	ProfileID string `json:"profile_id"`
}

// Cosmetic accompanies cosmetic spends.
type Cosmetic struct {
	ItemID string `json:"item_id"`
}

func (DailyOpen) txMetadata()      {}
func (ChannelCreated) txMetadata() {}
func (GossipRef) txMetadata()      {}
func (ProfileClaimed) txMetadata() {}
func (Cosmetic) txMetadata()       {}

// BuzzTransaction is one immutable entry of the Buzz ledger. Amount is always
// a positive magnitude; the sign is implied by Type. BalanceAfter snapshots
// the balance immediately after this transaction applied.
type BuzzTransaction struct {
	ID           uuid.UUID  `json:"id"`
	Type         TxType     `json:"type"`
	Reason       TxReason   `json:"reason"`
	Amount       int64      `json:"amount"`
	BalanceAfter int64      `json:"balance_after"`
	Meta         TxMetadata `json:"meta,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Signed returns the amount with the sign implied by Type.
func (t BuzzTransaction) Signed() int64 {
	if t.Type == TxSpend {
		return -t.Amount
	}
	return t.Amount
}

// BuzzAccount is the derived account view. Balance always equals the signed
// fold of the transaction history starting from 0.
type BuzzAccount struct {
	Balance     int64     `json:"balance"`
	DailyStreak int64     `json:"daily_streak"`
	LastClaim   time.Time `json:"last_claim"` // zero = never claimed
}

// Gossip is an anonymous post inside a profile channel.
type Gossip struct {
	ID           string    `json:"id"`
	ProfileID    string    `json:"profile_id"`
	ChannelID    string    `json:"channel_id"`
	Text         string    `json:"text"`
	LikeCount    int       `json:"like_count"`
	ReplyCount   int       `json:"reply_count"`
	IsLiked      bool      `json:"is_liked"`
	IsHidden     bool      `json:"is_hidden"`
	BoostedUntil time.Time `json:"boosted_until"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is a discoverable person page gossip attaches to.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	AvatarURL   string    `json:"avatar_url"`
	Claimed     bool      `json:"claimed"`
	ClaimedBy   string    `json:"claimed_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Channel is a topical category on a profile. Preset channels exist on every
// profile; the rest are user-created (paid for with Buzz).
type Channel struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profile_id"`
	Name        string    `json:"name"`
	Preset      bool      `json:"preset"`
	GossipCount int       `json:"gossip_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// PresetChannels is the fixed set of categories always available on a profile.
var PresetChannels = []string{"Work", "Love", "Tea/Spill", "Campus", "Random"}

// Message is a direct message between the user and a claimed profile.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}
