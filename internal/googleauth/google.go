// Package googleauth runs the device-side Google sign-in flow. It only
// obtains the Google ID token; trading it for a Rumoro session is the api
// package's job.
package googleauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Flow wraps an oauth2 authorization-code flow against Google's endpoint.
type Flow struct {
	conf *oauth2.Config
}

// New configures the flow. redirectURL is the device's loopback or custom
// scheme redirect registered with the OAuth client.
func New(clientID, clientSecret, redirectURL string) *Flow {
	return &Flow{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// Configured reports whether a client ID is set.
func (f *Flow) Configured() bool { return f.conf.ClientID != "" }

// State returns a fresh random state parameter for one authorization round.
func (f *Flow) State() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthURL builds the consent screen URL for the given state.
func (f *Flow) AuthURL(state string) string {
	return f.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the authorization code for tokens and returns the ID token
// the backend verifies.
func (f *Flow) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("validation: empty code")
	}
	tok, err := f.conf.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	idToken, ok := tok.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", errors.New("google response carried no id_token")
	}
	return idToken, nil
}
