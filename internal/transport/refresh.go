package transport

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rumoro-app/rumoro-go/internal/errs"
)

// exchangeFunc trades a refresh token for a rotated access/refresh pair.
type exchangeFunc func(ctx context.Context, refreshToken string) (access, refresh string, err error)

// Coordinator guarantees at most one refresh exchange in flight. Callers that
// hit 401 while an exchange runs block on the shared call and replay only
// after its outcome is known; rotation is persisted before anyone is released.
type Coordinator struct {
	tokens   TokenStore
	exchange exchangeFunc
	sf       singleflight.Group
	log      *zap.Logger
}

func newCoordinator(tokens TokenStore, exchange exchangeFunc, log *zap.Logger) *Coordinator {
	return &Coordinator{tokens: tokens, exchange: exchange, log: log}
}

// Refresh returns an access token that is fresher than stale (the token whose
// rejection brought the caller here). If the store already holds a different
// token the rotation has happened and no exchange is issued. Any exchange
// failure is terminal: the session store is cleared and every sharing caller
// gets errs.ErrSessionExpired.
func (c *Coordinator) Refresh(ctx context.Context, stale string) (string, error) {
	v, err, _ := c.sf.Do("refresh", func() (any, error) {
		if cur := c.tokens.AccessToken(); cur != "" && cur != stale {
			return cur, nil
		}
		sess := c.tokens.Session()
		if sess.RefreshToken == "" {
			_ = c.tokens.Clear()
			return nil, errs.ErrSessionExpired
		}

		// The shared exchange must not die with whichever caller happened to
		// initiate it; the transport timeout still bounds it.
		access, refresh, xerr := c.exchange(context.WithoutCancel(ctx), sess.RefreshToken)
		if xerr != nil {
			_ = c.tokens.Clear()
			c.log.Warn("token refresh failed", zap.Error(xerr))
			return nil, fmt.Errorf("%w: %v", errs.ErrSessionExpired, xerr)
		}
		if serr := c.tokens.SetTokens(access, refresh); serr != nil {
			_ = c.tokens.Clear()
			return nil, fmt.Errorf("%w: persisting rotated tokens: %v", errs.ErrSessionExpired, serr)
		}
		c.log.Info("tokens rotated")
		return access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
