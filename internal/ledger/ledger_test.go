package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/rumoro-app/rumoro-go/internal/errs"
	"github.com/rumoro-app/rumoro-go/internal/model"
)

// newTestLedger returns a UTC ledger with a settable clock.
func newTestLedger(t *testing.T) (*Ledger, *time.Time) {
	t.Helper()
	l := New(time.UTC, nil)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

// foldBalance re-derives the balance from history in apply order.
func foldBalance(hist []model.BuzzTransaction) int64 {
	var bal int64
	for _, tx := range hist {
		bal += tx.Signed()
	}
	return bal
}

func TestApply_Validation(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	if _, err := l.Apply(0, model.TxEarn, model.ReasonCosmetic, nil); err == nil {
		t.Fatalf("zero amount must fail")
	}
	if _, err := l.Apply(-5, model.TxEarn, model.ReasonCosmetic, nil); err == nil {
		t.Fatalf("negative amount must fail")
	}
	if _, err := l.Apply(5, model.TxType("refund"), model.ReasonCosmetic, nil); err == nil {
		t.Fatalf("unknown type must fail")
	}
	if l.Balance() != 0 || len(l.History(FilterAll)) != 0 {
		t.Fatalf("failed calls must leave no trace")
	}
}

func TestApply_SpendNeverGoesNegative(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	if _, err := l.Apply(7, model.TxEarn, model.ReasonClaimProfile, nil); err != nil {
		t.Fatalf("earn: %v", err)
	}
	_, err := l.Apply(8, model.TxSpend, model.ReasonCreateChannel, model.ChannelCreated{ChannelName: "Work"})
	if !errors.Is(err, errs.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if l.Balance() != 7 {
		t.Fatalf("failed spend must not change balance: %d", l.Balance())
	}
	if len(l.History(FilterAll)) != 1 {
		t.Fatalf("failed spend must not appear in history")
	}
}

// The end-to-end sequence from the design notes: earn 10, overspend fails,
// earn 3, earn history newest-first with BalanceAfter 13 then 10.
func TestLedger_EndToEndSequence(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	if _, err := l.Apply(10, model.TxEarn, model.ReasonClaimProfile, model.ProfileClaimed{ProfileID: "p1"}); err != nil {
		t.Fatalf("earn 10: %v", err)
	}
	if l.Balance() != 10 {
		t.Fatalf("balance want 10, got %d", l.Balance())
	}

	_, err := l.Apply(30, model.TxSpend, model.ReasonCreateChannel, model.ChannelCreated{ChannelName: "Love"})
	if !errors.Is(err, errs.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if l.Balance() != 10 {
		t.Fatalf("balance want 10 after failed spend, got %d", l.Balance())
	}

	if _, err := l.Apply(3, model.TxEarn, model.ReasonPostReplies, model.GossipRef{GossipID: "g1"}); err != nil {
		t.Fatalf("earn 3: %v", err)
	}
	if l.Balance() != 13 {
		t.Fatalf("balance want 13, got %d", l.Balance())
	}

	earns := l.History(FilterEarn)
	if len(earns) != 2 {
		t.Fatalf("want 2 earn txs, got %d", len(earns))
	}
	if earns[0].BalanceAfter != 13 || earns[1].BalanceAfter != 10 {
		t.Fatalf("newest-first BalanceAfter want 13,10 got %d,%d", earns[0].BalanceAfter, earns[1].BalanceAfter)
	}
}

// Balance must equal the signed fold of history after any sequence,
// including failed calls.
func TestLedger_FoldInvariant(t *testing.T) {
	t.Parallel()
	l, now := newTestLedger(t)

	steps := []struct {
		amount int64
		typ    model.TxType
	}{
		{10, model.TxEarn}, {4, model.TxSpend}, {100, model.TxSpend}, // fails
		{2, model.TxEarn}, {8, model.TxSpend}, {1, model.TxSpend}, // last fails (bal 0)
		{5, model.TxEarn},
	}
	for _, s := range steps {
		_, _ = l.Apply(s.amount, s.typ, model.ReasonCosmetic, nil)
	}
	_, _ = l.ClaimDaily()
	*now = now.Add(26 * time.Hour)
	_, _ = l.ClaimDaily()
	_, _ = l.ClaimDaily() // same day, fails

	hist := l.History(FilterAll)
	// History is newest-first; reverse into apply order for the fold.
	applyOrder := make([]model.BuzzTransaction, len(hist))
	for i, tx := range hist {
		applyOrder[len(hist)-1-i] = tx
	}
	if got := foldBalance(applyOrder); got != l.Balance() {
		t.Fatalf("fold %d != balance %d", got, l.Balance())
	}
	for i := 1; i < len(applyOrder); i++ {
		if applyOrder[i-1].BalanceAfter+applyOrder[i].Signed() != applyOrder[i].BalanceAfter {
			t.Fatalf("BalanceAfter chain broken at %d", i)
		}
	}
}

func TestClaimDaily_IdempotentPerDay(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	tx, err := l.ClaimDaily()
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if tx.Reason != model.ReasonDailyOpen || tx.Amount != DailyReward {
		t.Fatalf("unexpected claim tx: %+v", tx)
	}
	if _, err := l.ClaimDaily(); !errors.Is(err, errs.ErrAlreadyClaimedToday) {
		t.Fatalf("want ErrAlreadyClaimedToday, got %v", err)
	}
	if l.Balance() != DailyReward {
		t.Fatalf("balance must increase exactly once: %d", l.Balance())
	}
	if n := len(l.History(FilterAll)); n != 1 {
		t.Fatalf("want 1 tx, got %d", n)
	}
}

func TestClaimDaily_StreakContinuityAndReset(t *testing.T) {
	t.Parallel()
	l, now := newTestLedger(t)

	if _, err := l.ClaimDaily(); err != nil {
		t.Fatalf("day 1: %v", err)
	}
	if got := l.Account().DailyStreak; got != 1 {
		t.Fatalf("streak want 1, got %d", got)
	}

	// next calendar day (even < 24h later)
	*now = time.Date(2025, 3, 11, 0, 30, 0, 0, time.UTC)
	tx, err := l.ClaimDaily()
	if err != nil {
		t.Fatalf("day 2: %v", err)
	}
	if got := l.Account().DailyStreak; got != 2 {
		t.Fatalf("streak want 2, got %d", got)
	}
	if d, ok := tx.Meta.(model.DailyOpen); !ok || d.Streak != 2 {
		t.Fatalf("claim meta must carry streak, got %+v", tx.Meta)
	}

	// gap of two days resets
	*now = now.AddDate(0, 0, 3)
	if _, err := l.ClaimDaily(); err != nil {
		t.Fatalf("after gap: %v", err)
	}
	if got := l.Account().DailyStreak; got != 1 {
		t.Fatalf("streak must reset to 1, got %d", got)
	}
}

func TestClaimDaily_CalendarDayInLocation(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+10", 10*3600)
	l := New(loc, nil)
	// 15:00 UTC = next day 01:00 in UTC+10
	now := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if _, err := l.ClaimDaily(); err != nil {
		t.Fatalf("claim: %v", err)
	}
	now = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	if _, err := l.ClaimDaily(); err != nil {
		t.Fatalf("new calendar day in ledger location must allow claim: %v", err)
	}
	if got := l.Account().DailyStreak; got != 2 {
		t.Fatalf("consecutive local days extend streak, got %d", got)
	}
}

// Two goroutines racing to spend a balance only one can afford: exactly one
// wins, the other fails against the updated balance.
func TestApply_ConcurrentSpendAtomic(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	if _, err := l.Apply(10, model.TxEarn, model.ReasonClaimProfile, nil); err != nil {
		t.Fatalf("earn: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errsCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Apply(10, model.TxSpend, model.ReasonBoostGossip, nil)
			errsCh <- err
		}()
	}
	wg.Wait()
	close(errsCh)

	var ok, insufficient int
	for err := range errsCh {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != workers-1 {
		t.Fatalf("want 1 winner, got ok=%d insufficient=%d", ok, insufficient)
	}
	if l.Balance() != 0 {
		t.Fatalf("balance want 0, got %d", l.Balance())
	}
}

func TestReconcile_ServerEnvelope(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	id := uuid.Must(uuid.NewV4())
	good := model.BuzzTransaction{
		ID: id, Type: model.TxEarn, Reason: model.ReasonPostSurvived,
		Amount: 4, BalanceAfter: 4, Meta: model.GossipRef{GossipID: "g9"},
		CreatedAt: time.Now(),
	}
	if err := l.Reconcile(good); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if l.Balance() != 4 {
		t.Fatalf("balance want 4, got %d", l.Balance())
	}

	drift := model.BuzzTransaction{
		ID: uuid.Must(uuid.NewV4()), Type: model.TxSpend, Reason: model.ReasonCosmetic,
		Amount: 1, BalanceAfter: 99, CreatedAt: time.Now(),
	}
	if err := l.Reconcile(drift); !errors.Is(err, errs.ErrLedgerDrift) {
		t.Fatalf("want ErrLedgerDrift, got %v", err)
	}
	if l.Balance() != 4 || len(l.History(FilterAll)) != 1 {
		t.Fatalf("rejected envelope must leave no trace")
	}
}

func TestLoad_ChecksFoldInvariant(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	ok := []model.BuzzTransaction{
		{ID: uuid.Must(uuid.NewV4()), Type: model.TxEarn, Amount: 10, BalanceAfter: 10, Reason: model.ReasonClaimProfile},
		{ID: uuid.Must(uuid.NewV4()), Type: model.TxSpend, Amount: 3, BalanceAfter: 7, Reason: model.ReasonBoostGossip},
	}
	if err := l.Load(model.BuzzAccount{Balance: 7, DailyStreak: 2}, ok); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.Balance() != 7 || l.Account().DailyStreak != 2 {
		t.Fatalf("loaded state mismatch: %+v", l.Account())
	}

	bad := []model.BuzzTransaction{
		{ID: uuid.Must(uuid.NewV4()), Type: model.TxEarn, Amount: 10, BalanceAfter: 11, Reason: model.ReasonClaimProfile},
	}
	if err := l.Load(model.BuzzAccount{Balance: 11}, bad); !errors.Is(err, errs.ErrLedgerDrift) {
		t.Fatalf("want ErrLedgerDrift, got %v", err)
	}
	// previous state intact
	if l.Balance() != 7 {
		t.Fatalf("rejected load must not replace state")
	}
}

func TestSynced_OnlyAfterLoad(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	if l.Synced() {
		t.Fatalf("fresh ledger must not report synced")
	}
	if _, err := l.Apply(10, model.TxEarn, model.ReasonClaimProfile, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if l.Synced() {
		t.Fatalf("local transactions must not mark the ledger synced")
	}

	l2, _ := newTestLedger(t)
	snap := []model.BuzzTransaction{
		{ID: uuid.Must(uuid.NewV4()), Type: model.TxEarn, Amount: 5, BalanceAfter: 5, Reason: model.ReasonDailyOpen},
	}
	if err := l2.Load(model.BuzzAccount{Balance: 5}, snap); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !l2.Synced() {
		t.Fatalf("ledger must report synced after adopting a server snapshot")
	}
}
