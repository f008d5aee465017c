package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rumoro-app/rumoro-go/internal/errs"
	"github.com/rumoro-app/rumoro-go/internal/ledger"
	"github.com/rumoro-app/rumoro-go/internal/model"
	"github.com/rumoro-app/rumoro-go/internal/transport"
)

// BuzzBalance fetches the account view and adopts it into the local ledger
// together with the server-side history (server state is authoritative).
func (c *Client) BuzzBalance(ctx context.Context) (model.BuzzAccount, error) {
	var bal balanceDTO
	if err := c.http.Get(ctx, "/users/me/buzz-balance/", &bal); err != nil {
		return model.BuzzAccount{}, err
	}
	var page transactionsPageDTO
	if err := c.http.Get(ctx, "/users/me/transactions/", &page); err != nil {
		return model.BuzzAccount{}, err
	}
	history, err := c.txHistory(page.Results)
	if err != nil {
		return model.BuzzAccount{}, err
	}
	acct := fromBalanceDTO(bal)
	if err := c.Ledger.Load(acct, history); err != nil {
		return model.BuzzAccount{}, err
	}
	return acct, nil
}

// Transactions fetches the server history, filtered server-side, and returns
// it newest-first. It does not replace the local ledger; use BuzzBalance for
// a full resync.
func (c *Client) Transactions(ctx context.Context, filter ledger.Filter) ([]model.BuzzTransaction, error) {
	path := "/users/me/transactions/"
	if filter != "" && filter != ledger.FilterAll {
		path += "?type=" + url.QueryEscape(string(filter))
	}
	var page transactionsPageDTO
	if err := c.http.Get(ctx, path, &page); err != nil {
		return nil, err
	}
	txs, err := c.txHistory(page.Results)
	if err != nil {
		return nil, err
	}
	// newest first, matching Ledger.History
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	return txs, nil
}

// ClaimDaily claims the daily reward on the server and reconciles the
// envelope into the local ledger. A same-day repeat is surfaced as
// errs.ErrAlreadyClaimedToday.
func (c *Client) ClaimDaily(ctx context.Context) (model.BuzzTransaction, error) {
	var env txEnvelopeDTO
	if err := c.http.Post(ctx, "/buzz/claim-daily/", nil, &env); err != nil {
		return model.BuzzTransaction{}, c.mapBuzzError(err)
	}
	return c.adoptEnvelope(ctx, env)
}

// Spend submits a spend with a client-generated idempotency key and
// reconciles the envelope. Once the ledger holds a server snapshot,
// insufficient funds are checked locally so an obviously failing spend never
// reaches the network; before that the server's verdict decides.
func (c *Client) Spend(ctx context.Context, amount int64, reason model.TxReason, meta model.TxMetadata) (model.BuzzTransaction, error) {
	if amount <= 0 {
		return model.BuzzTransaction{}, fmt.Errorf("validation: amount must be positive, got %d", amount)
	}
	if c.Ledger.Synced() && amount > c.Ledger.Balance() {
		return model.BuzzTransaction{}, errs.ErrInsufficientBalance
	}
	key, err := c.newIdemKey()
	if err != nil {
		return model.BuzzTransaction{}, err
	}
	body := map[string]any{
		"amount":          amount,
		"reason":          string(reason),
		"metadata":        metaToMap(meta),
		"idempotency_key": key.String(),
	}
	var env txEnvelopeDTO
	if err := c.http.Post(ctx, "/buzz/spend/", body, &env); err != nil {
		return model.BuzzTransaction{}, c.mapBuzzError(err)
	}
	return c.adoptEnvelope(ctx, env)
}

// adoptEnvelope reconciles a server transaction envelope into the ledger,
// resyncing once when the local history has drifted.
func (c *Client) adoptEnvelope(ctx context.Context, env txEnvelopeDTO) (model.BuzzTransaction, error) {
	tx, err := fromTransactionDTO(env.Transaction)
	if err != nil {
		return model.BuzzTransaction{}, err
	}
	if err := c.Ledger.Reconcile(tx); err != nil {
		if !errors.Is(err, errs.ErrLedgerDrift) {
			return model.BuzzTransaction{}, err
		}
		c.log.Warn("ledger drift, resyncing from server")
		if _, rerr := c.BuzzBalance(ctx); rerr != nil {
			return model.BuzzTransaction{}, rerr
		}
	}
	return tx, nil
}

// mapBuzzError lifts the backend's domain rejections onto ledger sentinels.
func (c *Client) mapBuzzError(err error) error {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Detail {
		case "insufficient_balance":
			return errs.ErrInsufficientBalance
		case "already_claimed_today":
			return errs.ErrAlreadyClaimedToday
		}
	}
	return err
}

func (c *Client) txHistory(in []transactionDTO) ([]model.BuzzTransaction, error) {
	out := make([]model.BuzzTransaction, 0, len(in))
	for i, d := range in {
		tx, err := fromTransactionDTO(d)
		if err != nil {
			return nil, fmt.Errorf("tx[%d]: %w", i, err)
		}
		out = append(out, tx)
	}
	return out, nil
}
