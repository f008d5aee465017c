// Package ledger maintains the Buzz balance and its append-only transaction
// history. The ledger is the serialization point: every mutation happens under
// one mutex, and the balance is always re-derivable by folding the history.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/rumoro-app/rumoro-go/internal/errs"
	"github.com/rumoro-app/rumoro-go/internal/model"
)

// DailyReward is the Buzz granted per daily claim.
const DailyReward = 5

// Filter selects a slice of the history.
type Filter string

const (
	FilterAll   Filter = "all"
	FilterEarn  Filter = "earn"
	FilterSpend Filter = "spend"
)

// accountState is the pure ledger state. It is advanced only by the apply
// functions below; the Ledger wrapper adds locking, clock and id generation.
type accountState struct {
	balance   int64
	streak    int64
	lastClaim time.Time // zero = never claimed
	history   []model.BuzzTransaction
}

// applyTx appends a transaction and adopts its BalanceAfter snapshot.
func applyTx(st accountState, tx model.BuzzTransaction) accountState {
	st.balance = tx.BalanceAfter
	st.history = append(st.history, tx)
	return st
}

// applyClaim records a successful daily claim on top of applyTx.
func applyClaim(st accountState, tx model.BuzzTransaction, streak int64, day time.Time) accountState {
	st = applyTx(st, tx)
	st.streak = streak
	st.lastClaim = day
	return st
}

// Ledger is the process-wide Buzz account. Construct with New; mutations go
// through Apply/ClaimDaily/Reconcile/Load only.
type Ledger struct {
	mu     sync.Mutex
	st     accountState
	synced bool
	loc    *time.Location
	log    *zap.Logger

	now   func() time.Time
	newID func() (uuid.UUID, error)
}

// New constructs a Ledger computing calendar days in loc (UTC when nil).
func New(loc *time.Location, log *zap.Logger) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{loc: loc, log: log, now: time.Now, newID: uuid.NewV4}
}

// Apply creates and appends one transaction. amount is a positive magnitude;
// a spend that would drive the balance negative fails with
// errs.ErrInsufficientBalance and leaves no trace. Atomic under concurrency:
// two simultaneous spends cannot both be afforded out of the same balance.
func (l *Ledger) Apply(amount int64, typ model.TxType, reason model.TxReason, meta model.TxMetadata) (model.BuzzTransaction, error) {
	if amount <= 0 {
		return model.BuzzTransaction{}, fmt.Errorf("validation: amount must be positive, got %d", amount)
	}
	if typ != model.TxEarn && typ != model.TxSpend {
		return model.BuzzTransaction{}, fmt.Errorf("validation: unknown type %q", typ)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applyLocked(amount, typ, reason, meta)
}

func (l *Ledger) applyLocked(amount int64, typ model.TxType, reason model.TxReason, meta model.TxMetadata) (model.BuzzTransaction, error) {
	if typ == model.TxSpend && amount > l.st.balance {
		return model.BuzzTransaction{}, errs.ErrInsufficientBalance
	}
	id, err := l.newID()
	if err != nil {
		return model.BuzzTransaction{}, err
	}
	after := l.st.balance + amount
	if typ == model.TxSpend {
		after = l.st.balance - amount
	}
	tx := model.BuzzTransaction{
		ID:           id,
		Type:         typ,
		Reason:       reason,
		Amount:       amount,
		BalanceAfter: after,
		Meta:         meta,
		CreatedAt:    l.now(),
	}
	l.st = applyTx(l.st, tx)
	l.log.Debug("buzz tx applied",
		zap.String("type", string(typ)),
		zap.String("reason", string(reason)),
		zap.Int64("amount", amount),
		zap.Int64("balance", after),
	)
	return tx, nil
}

// ClaimDaily applies the daily_open earn at most once per calendar day.
// A claim on the day after the previous one extends the streak; any longer
// gap resets it to 1.
func (l *Ledger) ClaimDaily() (model.BuzzTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.dayOf(l.now())
	if !l.st.lastClaim.IsZero() && l.dayOf(l.st.lastClaim).Equal(today) {
		return model.BuzzTransaction{}, errs.ErrAlreadyClaimedToday
	}
	streak := int64(1)
	if !l.st.lastClaim.IsZero() && l.dayOf(l.st.lastClaim).AddDate(0, 0, 1).Equal(today) {
		streak = l.st.streak + 1
	}

	id, err := l.newID()
	if err != nil {
		return model.BuzzTransaction{}, err
	}
	tx := model.BuzzTransaction{
		ID:           id,
		Type:         model.TxEarn,
		Reason:       model.ReasonDailyOpen,
		Amount:       DailyReward,
		BalanceAfter: l.st.balance + DailyReward,
		Meta:         model.DailyOpen{Streak: streak},
		CreatedAt:    l.now(),
	}
	l.st = applyClaim(l.st, tx, streak, today)
	return tx, nil
}

// History returns transactions newest-first. A pure read.
func (l *Ledger) History(f Filter) []model.BuzzTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.BuzzTransaction, 0, len(l.st.history))
	for i := len(l.st.history) - 1; i >= 0; i-- {
		tx := l.st.history[i]
		switch f {
		case FilterEarn:
			if tx.Type != model.TxEarn {
				continue
			}
		case FilterSpend:
			if tx.Type != model.TxSpend {
				continue
			}
		}
		out = append(out, tx)
	}
	return out
}

// Balance returns the current balance.
func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.balance
}

// Account returns a snapshot of the derived account view.
func (l *Ledger) Account() model.BuzzAccount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.BuzzAccount{Balance: l.st.balance, DailyStreak: l.st.streak, LastClaim: l.st.lastClaim}
}

// Reconcile adopts a server-authoritative transaction envelope. The server's
// BalanceAfter wins; an envelope that does not extend the local history
// consistently is rejected with errs.ErrLedgerDrift so the caller can resync
// instead of guessing.
func (l *Ledger) Reconcile(tx model.BuzzTransaction) error {
	if tx.Amount <= 0 {
		return fmt.Errorf("reconcile: amount must be positive, got %d", tx.Amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.st.balance+tx.Signed() != tx.BalanceAfter {
		l.log.Warn("server envelope does not extend local ledger",
			zap.Int64("local", l.st.balance),
			zap.Int64("signed", tx.Signed()),
			zap.Int64("server_after", tx.BalanceAfter),
		)
		return errs.ErrLedgerDrift
	}
	st := applyTx(l.st, tx)
	if tx.Reason == model.ReasonDailyOpen {
		streak := l.st.streak
		if d, ok := tx.Meta.(model.DailyOpen); ok {
			streak = d.Streak
		}
		st.streak = streak
		st.lastClaim = l.dayOf(tx.CreatedAt)
	}
	l.st = st
	return nil
}

// Load replaces the ledger from a server snapshot: history in apply order
// (oldest first) plus the account view. The fold invariant is checked before
// anything is replaced.
func (l *Ledger) Load(acct model.BuzzAccount, history []model.BuzzTransaction) error {
	var bal int64
	for i, tx := range history {
		if tx.Amount <= 0 {
			return fmt.Errorf("load: tx[%d] non-positive amount", i)
		}
		bal += tx.Signed()
		if bal != tx.BalanceAfter {
			return errs.ErrLedgerDrift
		}
	}
	if bal != acct.Balance {
		return errs.ErrLedgerDrift
	}
	if bal < 0 {
		return errors.New("load: negative balance")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.st = accountState{
		balance:   acct.Balance,
		streak:    acct.DailyStreak,
		lastClaim: acct.LastClaim,
		history:   append([]model.BuzzTransaction(nil), history...),
	}
	l.synced = true
	return nil
}

// Synced reports whether the ledger has adopted a server snapshot via Load.
// Until then the balance is not a basis for rejecting spends locally.
func (l *Ledger) Synced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.synced
}

// dayOf truncates t to its calendar day in the ledger's location.
func (l *Ledger) dayOf(t time.Time) time.Time {
	y, m, d := t.In(l.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, l.loc)
}
