package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rumoro-app/rumoro-go/internal/errs"
	"github.com/rumoro-app/rumoro-go/internal/model"
)

// SendOTP requests a one-time code for the phone number. Resends are guarded
// by the local limiter; a blocked send fails with errs.ErrRateLimited without
// touching the network.
func (c *Client) SendOTP(ctx context.Context, phone string) error {
	if phone == "" {
		return errors.New("validation: empty phone")
	}
	if ok, wait := c.otp.Allow(phone); !ok {
		return fmt.Errorf("%w: retry in %s", errs.ErrRateLimited, wait.Round(time.Second))
	}
	if err := c.http.Post(ctx, "/auth/send-otp/", map[string]string{"phone": phone}, nil); err != nil {
		return err
	}
	c.otp.Sent(phone)
	return nil
}

// VerifyOTP exchanges the code for a session. On success both tokens and the
// identity are persisted before returning.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (model.Session, error) {
	if phone == "" || code == "" {
		return model.Session{}, errors.New("validation: empty phone/code")
	}
	var resp authResponseDTO
	err := c.http.Post(ctx, "/auth/verify-otp/", map[string]string{"phone": phone, "code": code}, &resp)
	if err != nil {
		return model.Session{}, err
	}
	if err := c.adoptSession(resp); err != nil {
		return model.Session{}, err
	}
	c.otp.Reset(phone)
	c.log.Info("logged in", zap.String("user_id", resp.UserID))
	return c.session.Session(), nil
}

// GoogleSignIn trades a Google ID token for a session.
func (c *Client) GoogleSignIn(ctx context.Context, idToken string) (model.Session, error) {
	if idToken == "" {
		return model.Session{}, errors.New("validation: empty id token")
	}
	var resp authResponseDTO
	if err := c.http.Post(ctx, "/auth/google/", map[string]string{"id_token": idToken}, &resp); err != nil {
		return model.Session{}, err
	}
	if err := c.adoptSession(resp); err != nil {
		return model.Session{}, err
	}
	c.log.Info("logged in via google", zap.String("user_id", resp.UserID))
	return c.session.Session(), nil
}

// Logout tells the backend to revoke the session, then wipes local state.
// Local state is cleared even when the revoke call fails: the user asked to
// leave, and a dead session rejects the call anyway.
func (c *Client) Logout(ctx context.Context) error {
	reqErr := c.http.Post(ctx, "/auth/logout/", nil, nil)
	if cerr := c.session.Clear(); cerr != nil {
		return cerr
	}
	if reqErr != nil && !errors.Is(reqErr, errs.ErrSessionExpired) {
		return reqErr
	}
	return nil
}

func (c *Client) adoptSession(resp authResponseDTO) error {
	if err := c.session.SetTokens(resp.Token, resp.RefreshToken); err != nil {
		return fmt.Errorf("store tokens: %w", err)
	}
	return c.session.SetIdentity(resp.UserID)
}
