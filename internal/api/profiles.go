package api

import (
	"context"
	"errors"
	"net/url"

	"github.com/rumoro-app/rumoro-go/internal/model"
)

// SearchProfiles looks up discoverable profiles and merges them into the cache.
func (c *Client) SearchProfiles(ctx context.Context, query string) ([]model.Profile, error) {
	var resp struct {
		Results []profileDTO `json:"results"`
	}
	path := "/profiles/"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	if err := c.http.Get(ctx, path, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Profile, 0, len(resp.Results))
	for _, d := range resp.Results {
		out = append(out, fromProfileDTO(d))
	}
	c.Profiles.UpsertMany(out)
	return out, nil
}

// Profile fetches one profile by id into the cache.
func (c *Client) Profile(ctx context.Context, id string) (model.Profile, error) {
	var resp profileDTO
	if err := c.http.Get(ctx, "/profiles/"+url.PathEscape(id)+"/", &resp); err != nil {
		return model.Profile{}, err
	}
	p := fromProfileDTO(resp)
	c.Profiles.UpsertMany([]model.Profile{p})
	return p, nil
}

// CreateProfile adds a new discoverable profile.
func (c *Client) CreateProfile(ctx context.Context, displayName, handle string) (model.Profile, error) {
	if displayName == "" {
		return model.Profile{}, errors.New("validation: empty display name")
	}
	body := map[string]string{"display_name": displayName, "handle": handle}
	var resp profileDTO
	if err := c.http.Post(ctx, "/profiles/", body, &resp); err != nil {
		return model.Profile{}, err
	}
	p := fromProfileDTO(resp)
	c.Profiles.UpsertMany([]model.Profile{p})
	return p, nil
}

// UpdateProfile patches fields of an owned profile.
func (c *Client) UpdateProfile(ctx context.Context, id string, fields map[string]string) (model.Profile, error) {
	if len(fields) == 0 {
		return model.Profile{}, errors.New("validation: no fields")
	}
	var resp profileDTO
	err := c.http.Do(ctx, "PATCH", "/profiles/"+url.PathEscape(id)+"/", fields, &resp)
	if err != nil {
		return model.Profile{}, err
	}
	p := fromProfileDTO(resp)
	c.Profiles.UpsertMany([]model.Profile{p})
	return p, nil
}

// ClaimProfile claims a profile as one's own. The earn envelope
// (claim_profile reward) reconciles the ledger; the claimed profile lands in
// the cache.
func (c *Client) ClaimProfile(ctx context.Context, id string) (model.Profile, error) {
	var resp struct {
		Profile profileDTO `json:"profile"`
		txEnvelopeDTO
	}
	if err := c.http.Post(ctx, "/profiles/"+url.PathEscape(id)+"/claim/", nil, &resp); err != nil {
		return model.Profile{}, err
	}
	if _, err := c.adoptEnvelope(ctx, resp.txEnvelopeDTO); err != nil {
		return model.Profile{}, err
	}
	p := fromProfileDTO(resp.Profile)
	c.Profiles.UpsertMany([]model.Profile{p})
	return p, nil
}

// LinkSocial attaches a verified social handle to the claimed profile.
func (c *Client) LinkSocial(ctx context.Context, network, handle string) error {
	if network == "" || handle == "" {
		return errors.New("validation: empty network/handle")
	}
	return c.http.Post(ctx, "/profiles/link-social/", map[string]string{"network": network, "handle": handle}, nil)
}
