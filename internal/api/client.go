// Package api is the typed client for the Rumoro HTTP surface. Each method
// issues a request through the transport and, on success, feeds the Buzz
// ledger and the entity caches from the response; nothing mutates on failure
// or cancellation.
package api

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/rumoro-app/rumoro-go/internal/cache"
	"github.com/rumoro-app/rumoro-go/internal/ledger"
	"github.com/rumoro-app/rumoro-go/internal/limiter"
	"github.com/rumoro-app/rumoro-go/internal/model"
	"github.com/rumoro-app/rumoro-go/internal/session"
	"github.com/rumoro-app/rumoro-go/internal/transport"
)

// Client bundles the transport with the process-wide stores. Screens read the
// caches and the ledger; all writes funnel through Client methods.
type Client struct {
	http    *transport.Client
	session *session.Store
	otp     limiter.Limiter
	log     *zap.Logger

	Ledger   *ledger.Ledger
	Gossips  *cache.Store[model.Gossip]
	Profiles *cache.Store[model.Profile]
	Channels *cache.Store[model.Channel]
	Messages *cache.Store[model.Message]

	newIdemKey func() (uuid.UUID, error)
}

// New wires a Client against baseURL. Calendar days for daily claims are
// computed in loc (UTC when nil); timeout <= 0 selects the transport default.
func New(baseURL string, sess *session.Store, loc *time.Location, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:       transport.New(baseURL, sess, timeout, log),
		session:    sess,
		otp:        limiter.NewMemory(0, 0, 0),
		log:        log,
		Ledger:     ledger.New(loc, log),
		Gossips:    cache.New(func(g model.Gossip) string { return g.ID }),
		Profiles:   cache.New(func(p model.Profile) string { return p.ID }),
		Channels:   cache.New(func(c model.Channel) string { return c.ID }),
		Messages:   cache.New(func(m model.Message) string { return m.ID }),
		newIdemKey: uuid.NewV4,
	}
}

// Session returns a snapshot of the current session.
func (c *Client) Session() model.Session { return c.session.Session() }
