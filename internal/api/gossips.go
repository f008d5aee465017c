package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rumoro-app/rumoro-go/internal/errs"
	"github.com/rumoro-app/rumoro-go/internal/model"
)

// BoostCost is the Buzz price of boosting a gossip.
const BoostCost = 20

// Feed fetches one feed page and merges it into the gossip cache (earlier
// pages are kept). Returns the page's gossips in server order.
func (c *Client) Feed(ctx context.Context, page int, typ string) ([]model.Gossip, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if typ != "" {
		q.Set("type", typ)
	}
	path := "/gossips/feed/"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var resp feedPageDTO
	if err := c.http.Get(ctx, path, &resp); err != nil {
		return nil, err
	}
	gossips := fromGossipDTOs(resp.Results)
	c.Gossips.UpsertMany(gossips)
	return gossips, nil
}

// CreateGossip posts an anonymous gossip into a channel.
func (c *Client) CreateGossip(ctx context.Context, profileID, channelID, text string) (model.Gossip, error) {
	if text == "" {
		return model.Gossip{}, errors.New("validation: empty text")
	}
	body := map[string]string{"profile_id": profileID, "channel_id": channelID, "text": text}
	var resp gossipDTO
	if err := c.http.Post(ctx, "/gossips/", body, &resp); err != nil {
		return model.Gossip{}, err
	}
	g := fromGossipDTO(resp)
	c.Gossips.UpsertMany([]model.Gossip{g})
	return g, nil
}

// Like toggles the like on a gossip. The cache is patched optimistically so
// the UI flips immediately; the server response (or the failure rollback)
// reconciles it.
func (c *Client) Like(ctx context.Context, gossipID string) (model.Gossip, error) {
	before, had := c.Gossips.Get(gossipID)
	c.Gossips.Patch(gossipID, func(g *model.Gossip) {
		if g.IsLiked {
			g.IsLiked = false
			g.LikeCount--
		} else {
			g.IsLiked = true
			g.LikeCount++
		}
	})

	var resp gossipDTO
	if err := c.http.Post(ctx, "/gossips/"+url.PathEscape(gossipID)+"/like/", nil, &resp); err != nil {
		if had {
			c.Gossips.UpsertMany([]model.Gossip{before})
		}
		return model.Gossip{}, err
	}
	g := fromGossipDTO(resp)
	c.Gossips.UpsertMany([]model.Gossip{g})
	return g, nil
}

// Reply posts a reply under a gossip and bumps the cached reply count.
func (c *Client) Reply(ctx context.Context, gossipID, text string) error {
	if text == "" {
		return errors.New("validation: empty text")
	}
	err := c.http.Post(ctx, "/gossips/"+url.PathEscape(gossipID)+"/reply/", map[string]string{"text": text}, nil)
	if err != nil {
		return err
	}
	c.Gossips.Patch(gossipID, func(g *model.Gossip) { g.ReplyCount++ })
	return nil
}

// Report flags a gossip for moderation.
func (c *Client) Report(ctx context.Context, gossipID, reason string) error {
	return c.http.Post(ctx, "/gossips/"+url.PathEscape(gossipID)+"/report/", map[string]string{"reason": reason}, nil)
}

// Hide hides a gossip for the current user and drops it from the cache.
func (c *Client) Hide(ctx context.Context, gossipID string) error {
	if err := c.http.Post(ctx, "/gossips/"+url.PathEscape(gossipID)+"/hide/", nil, nil); err != nil {
		return err
	}
	c.Gossips.Remove(gossipID)
	return nil
}

// Boost spends Buzz to push a gossip up the feed. The spend envelope
// reconciles the ledger; the refreshed gossip lands in the cache.
func (c *Client) Boost(ctx context.Context, gossipID string) (model.Gossip, error) {
	if c.Ledger.Synced() && BoostCost > c.Ledger.Balance() {
		return model.Gossip{}, errs.ErrInsufficientBalance
	}
	var resp struct {
		Gossip gossipDTO `json:"gossip"`
		txEnvelopeDTO
	}
	if err := c.http.Post(ctx, "/gossips/"+url.PathEscape(gossipID)+"/boost/", nil, &resp); err != nil {
		return model.Gossip{}, c.mapBuzzError(err)
	}
	if _, err := c.adoptEnvelope(ctx, resp.txEnvelopeDTO); err != nil {
		return model.Gossip{}, err
	}
	g := fromGossipDTO(resp.Gossip)
	c.Gossips.UpsertMany([]model.Gossip{g})
	return g, nil
}
