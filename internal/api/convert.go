package api

import (
	"fmt"
	"time"

	u "github.com/gofrs/uuid/v5"

	"github.com/rumoro-app/rumoro-go/internal/model"
)

// fromTransactionDTO converts a wire transaction into the domain model,
// lifting the metadata map into the reason's typed variant.
func fromTransactionDTO(in transactionDTO) (model.BuzzTransaction, error) {
	var id u.UUID
	if err := id.UnmarshalText([]byte(in.ID)); err != nil {
		return model.BuzzTransaction{}, fmt.Errorf("invalid tx id: %w", err)
	}
	typ := model.TxType(in.Type)
	if typ != model.TxEarn && typ != model.TxSpend {
		return model.BuzzTransaction{}, fmt.Errorf("unknown tx type %q", in.Type)
	}
	reason := model.TxReason(in.Reason)
	return model.BuzzTransaction{
		ID:           id,
		Type:         typ,
		Reason:       reason,
		Amount:       in.Amount,
		BalanceAfter: in.BalanceAfter,
		Meta:         metaFromMap(reason, in.Metadata),
		CreatedAt:    in.CreatedAt,
	}, nil
}

// metaFromMap builds the typed metadata variant for a reason. Unknown or
// missing keys yield a nil Meta rather than failing the whole transaction.
func metaFromMap(reason model.TxReason, m map[string]string) model.TxMetadata {
	if m == nil {
		return nil
	}
	switch reason {
	case model.ReasonDailyOpen:
		var streak int64
		_, _ = fmt.Sscanf(m["streak"], "%d", &streak)
		return model.DailyOpen{Streak: streak}
	case model.ReasonCreateChannel:
		return model.ChannelCreated{ChannelName: m["channel_name"]}
	case model.ReasonPostSurvived, model.ReasonPostReplies, model.ReasonBoostGossip:
		return model.GossipRef{GossipID: m["gossip_id"]}
	case model.ReasonClaimProfile:
		return model.ProfileClaimed{ProfileID: m["profile_id"]}
	case model.ReasonCosmetic:
		return model.Cosmetic{ItemID: m["item_id"]}
	}
	return nil
}

// metaToMap flattens a typed variant back into the wire map.
func metaToMap(meta model.TxMetadata) map[string]string {
	switch v := meta.(type) {
	case model.DailyOpen:
		return map[string]string{"streak": fmt.Sprintf("%d", v.Streak)}
	case model.ChannelCreated:
		return map[string]string{"channel_name": v.ChannelName}
	case model.GossipRef:
		return map[string]string{"gossip_id": v.GossipID}
	case model.ProfileClaimed:
		return map[string]string{"profile_id": v.ProfileID}
	case model.Cosmetic:
		return map[string]string{"item_id": v.ItemID}
	}
	return nil
}

func fromBalanceDTO(in balanceDTO) model.BuzzAccount {
	acct := model.BuzzAccount{Balance: in.Balance, DailyStreak: in.DailyStreak}
	if in.LastClaim != "" {
		if t, err := time.Parse(time.RFC3339, in.LastClaim); err == nil {
			acct.LastClaim = t
		}
	}
	return acct
}

func fromGossipDTO(in gossipDTO) model.Gossip {
	g := model.Gossip{
		ID:         in.ID,
		ProfileID:  in.ProfileID,
		ChannelID:  in.ChannelID,
		Text:       in.Text,
		LikeCount:  in.LikeCount,
		ReplyCount: in.ReplyCount,
		IsLiked:    in.IsLiked,
		IsHidden:   in.IsHidden,
		CreatedAt:  in.CreatedAt,
	}
	if in.BoostedUntil != nil {
		g.BoostedUntil = *in.BoostedUntil
	}
	return g
}

func fromGossipDTOs(in []gossipDTO) []model.Gossip {
	out := make([]model.Gossip, 0, len(in))
	for _, d := range in {
		out = append(out, fromGossipDTO(d))
	}
	return out
}

func fromProfileDTO(in profileDTO) model.Profile {
	return model.Profile{
		ID:          in.ID,
		DisplayName: in.DisplayName,
		Handle:      in.Handle,
		AvatarURL:   in.AvatarURL,
		Claimed:     in.Claimed,
		ClaimedBy:   in.ClaimedBy,
		CreatedAt:   in.CreatedAt,
	}
}

func fromChannelDTO(in channelDTO) model.Channel {
	return model.Channel{
		ID:          in.ID,
		ProfileID:   in.ProfileID,
		Name:        in.Name,
		Preset:      in.Preset,
		GossipCount: in.GossipCount,
		CreatedAt:   in.CreatedAt,
	}
}
