package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rumoro-app/rumoro-go/internal/errs"
	"github.com/rumoro-app/rumoro-go/internal/model"
)

// ChannelCost is the Buzz price of creating a custom channel.
const ChannelCost = 30

// ListChannels fetches the channels of a profile (presets included) into the
// Channels cache.
func (c *Client) ListChannels(ctx context.Context, profileID string) ([]model.Channel, error) {
	var resp struct {
		Results []channelDTO `json:"results"`
	}
	if err := c.http.Get(ctx, "/channels/?profile_id="+url.QueryEscape(profileID), &resp); err != nil {
		return nil, err
	}
	out := make([]model.Channel, 0, len(resp.Results))
	for _, d := range resp.Results {
		out = append(out, fromChannelDTO(d))
	}
	c.Channels.UpsertMany(out)
	return out, nil
}

// CreateChannel spends Buzz to add a custom channel to a profile. The spend
// envelope reconciles the ledger.
func (c *Client) CreateChannel(ctx context.Context, profileID, name string) (model.Channel, error) {
	if name == "" {
		return model.Channel{}, errors.New("validation: empty channel name")
	}
	for _, preset := range model.PresetChannels {
		if strings.EqualFold(name, preset) {
			return model.Channel{}, fmt.Errorf("validation: %q is a preset channel, already on every profile", preset)
		}
	}
	if c.Ledger.Synced() && ChannelCost > c.Ledger.Balance() {
		return model.Channel{}, errs.ErrInsufficientBalance
	}
	body := map[string]string{"profile_id": profileID, "name": name}
	var resp struct {
		Channel channelDTO `json:"channel"`
		txEnvelopeDTO
	}
	if err := c.http.Post(ctx, "/channels/", body, &resp); err != nil {
		return model.Channel{}, c.mapBuzzError(err)
	}
	if _, err := c.adoptEnvelope(ctx, resp.txEnvelopeDTO); err != nil {
		return model.Channel{}, err
	}
	ch := fromChannelDTO(resp.Channel)
	c.Channels.UpsertMany([]model.Channel{ch})
	return ch, nil
}

// RenameChannel renames a user-created channel. Presets cannot be renamed;
// the backend answers 403 for them.
func (c *Client) RenameChannel(ctx context.Context, channelID, name string) (model.Channel, error) {
	if name == "" {
		return model.Channel{}, errors.New("validation: empty channel name")
	}
	var resp channelDTO
	err := c.http.Do(ctx, "PATCH", "/channels/"+url.PathEscape(channelID)+"/", map[string]string{"name": name}, &resp)
	if err != nil {
		return model.Channel{}, err
	}
	ch := fromChannelDTO(resp)
	c.Channels.UpsertMany([]model.Channel{ch})
	return ch, nil
}

// DeleteChannel removes a user-created channel and evicts it from the cache.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if err := c.http.Do(ctx, "DELETE", "/channels/"+url.PathEscape(channelID)+"/", nil, nil); err != nil {
		return err
	}
	c.Channels.Remove(channelID)
	return nil
}
