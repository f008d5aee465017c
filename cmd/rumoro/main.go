// Command rumoro is a CLI client for the Rumoro service.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rumoro-app/rumoro-go/internal/api"
	"github.com/rumoro-app/rumoro-go/internal/errs"
	"github.com/rumoro-app/rumoro-go/internal/googleauth"
	"github.com/rumoro-app/rumoro-go/internal/ledger"
	"github.com/rumoro-app/rumoro-go/internal/model"
	"github.com/rumoro-app/rumoro-go/internal/session"
)

// ---- config dir ----

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "rumoro")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rumoro")
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func parseFilter(s string) (ledger.Filter, error) {
	switch s {
	case "", "all":
		return ledger.FilterAll, nil
	case "earn":
		return ledger.FilterEarn, nil
	case "spend":
		return ledger.FilterSpend, nil
	}
	return "", fmt.Errorf("unknown filter %q (all|earn|spend)", s)
}

func parseReason(s string) (model.TxReason, error) {
	switch model.TxReason(s) {
	case model.ReasonBoostGossip, model.ReasonCreateChannel, model.ReasonClaimProfile, model.ReasonCosmetic:
		return model.TxReason(s), nil
	}
	return "", fmt.Errorf("unknown spend reason %q", s)
}

// claimLocation resolves the calendar-day location for daily claims. UTC by
// default: a device hopping timezones must not be able to double-claim.
func claimLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

func usage() {
	fmt.Fprintf(os.Stderr, `rumoro CLI
Usage:
  rumoro -addr URL [-tz NAME] [-timeout DUR] <cmd> [args]

Commands:
  version
  send-otp       -phone <num>
  verify-otp     -phone <num> -code <otp>              (saves session)
  login-google                                     (interactive code flow)
  logout
  whoami
  buzz                                             (balance + streak)
  claim                                            (daily reward)
  history        [-type all|earn|spend]
  spend          -amount <n> -reason <r> [-item id]
  feed           [-page n] [-type t]
  post           -profile <id> -channel <id> -text <s>
  like           -id <gossip>
  reply          -id <gossip> -text <s>
  boost          -id <gossip>
  report         -id <gossip> [-reason s]
  hide           -id <gossip>
  channels       -profile <id>
  create-channel -profile <id> -name <s>
  rename-channel -id <channel> -name <s>
  rm-channel     -id <channel>
  profiles       -q <query>
  profile        -id <profile>
  create-profile -name <s> -handle <s>
  claim-profile  -id <profile>
  link-social    -network <s> -handle <s>
`)
	os.Exit(2)
}

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against a shared Client with on-disk session
// state under the user's config dir.
func main() {
	addr := flag.String("addr", "https://api.rumoro.app", "API base URL")
	tz := flag.String("tz", "", "IANA location for daily claims (default UTC)")
	timeout := flag.Duration("timeout", 0, "per-request timeout (default 15s)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	log := zap.NewNop()
	if *verbose {
		log, _ = zap.NewDevelopment()
	}

	loc, err := claimLocation(*tz)
	if err != nil {
		fail(fmt.Errorf("bad -tz: %w", err))
	}

	sess, err := session.Open(cfgDir(), log)
	if err != nil {
		fail(err)
	}
	cli := api.New(*addr, sess, loc, *timeout, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {

	case "version":
		fmt.Printf("rumoro %s (%s)\n", version, buildDate)

	case "send-otp":
		fs := flag.NewFlagSet("send-otp", flag.ExitOnError)
		phone := fs.String("phone", "", "phone number")
		_ = fs.Parse(flag.Args()[1:])
		if *phone == "" {
			fail(errors.New("need -phone"))
		}
		if err := cli.SendOTP(ctx, *phone); err != nil {
			fail(err)
		}
		fmt.Println("code sent")

	case "verify-otp":
		fs := flag.NewFlagSet("verify-otp", flag.ExitOnError)
		phone := fs.String("phone", "", "phone number")
		code := fs.String("code", "", "one-time code")
		_ = fs.Parse(flag.Args()[1:])
		if *phone == "" || *code == "" {
			fail(errors.New("need -phone and -code"))
		}
		s, err := cli.VerifyOTP(ctx, *phone, *code)
		if err != nil {
			fail(err)
		}
		fmt.Printf("logged in as %s\n", s.UserID)

	case "login-google":
		flow := googleauth.New(
			os.Getenv("RUMORO_GOOGLE_CLIENT_ID"),
			os.Getenv("RUMORO_GOOGLE_CLIENT_SECRET"),
			os.Getenv("RUMORO_GOOGLE_REDIRECT_URL"),
		)
		if !flow.Configured() {
			fail(errors.New("set RUMORO_GOOGLE_CLIENT_ID (and optionally _SECRET, _REDIRECT_URL)"))
		}
		state, err := flow.State()
		if err != nil {
			fail(err)
		}
		fmt.Printf("open in a browser:\n  %s\n\npaste the code: ", flow.AuthURL(state))
		code, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		idToken, err := flow.Exchange(ctx, strings.TrimSpace(code))
		if err != nil {
			fail(err)
		}
		s, err := cli.GoogleSignIn(ctx, idToken)
		if err != nil {
			fail(err)
		}
		fmt.Printf("logged in as %s\n", s.UserID)

	case "logout":
		if err := cli.Logout(ctx); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "whoami":
		s := cli.Session()
		if !s.LoggedIn() {
			fail(errors.New("not logged in"))
		}
		exp, _ := sess.ExpiresAt()
		printJSON(map[string]string{"user_id": s.UserID, "token_expires": fmtTime(exp)})

	case "buzz":
		acct, err := cli.BuzzBalance(ctx)
		if err != nil {
			fail(err)
		}
		fmt.Printf("balance=%d streak=%d last_claim=%s\n", acct.Balance, acct.DailyStreak, fmtTime(acct.LastClaim))

	case "claim":
		tx, err := cli.ClaimDaily(ctx)
		if err != nil {
			if errors.Is(err, errs.ErrAlreadyClaimedToday) {
				fmt.Fprintln(os.Stderr, "already claimed today")
				os.Exit(1)
			}
			fail(err)
		}
		fmt.Printf("+%d buzz, balance=%d\n", tx.Amount, tx.BalanceAfter)

	case "history":
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		typ := fs.String("type", "all", "all|earn|spend")
		_ = fs.Parse(flag.Args()[1:])
		f, err := parseFilter(*typ)
		if err != nil {
			fail(err)
		}
		txs, err := cli.Transactions(ctx, f)
		if err != nil {
			fail(err)
		}
		type row struct{ Type, Reason, Amount, Balance, At string }
		rows := make([]row, 0, len(txs))
		for _, tx := range txs {
			rows = append(rows, row{
				Type:    string(tx.Type),
				Reason:  string(tx.Reason),
				Amount:  fmt.Sprint(tx.Amount),
				Balance: fmt.Sprint(tx.BalanceAfter),
				At:      fmtTime(tx.CreatedAt),
			})
		}
		printJSON(rows)

	case "spend":
		fs := flag.NewFlagSet("spend", flag.ExitOnError)
		amount := fs.Int64("amount", 0, "buzz amount")
		reason := fs.String("reason", string(model.ReasonCosmetic), "spend reason")
		item := fs.String("item", "", "item id for cosmetic spends")
		_ = fs.Parse(flag.Args()[1:])
		r, err := parseReason(*reason)
		if err != nil {
			fail(err)
		}
		var meta model.TxMetadata
		if r == model.ReasonCosmetic {
			meta = model.Cosmetic{ItemID: *item}
		}
		tx, err := cli.Spend(ctx, *amount, r, meta)
		if err != nil {
			fail(err)
		}
		fmt.Printf("-%d buzz, balance=%d\n", tx.Amount, tx.BalanceAfter)

	case "feed":
		fs := flag.NewFlagSet("feed", flag.ExitOnError)
		page := fs.Int("page", 1, "page number")
		typ := fs.String("type", "", "feed type filter")
		_ = fs.Parse(flag.Args()[1:])
		gossips, err := cli.Feed(ctx, *page, *typ)
		if err != nil {
			fail(err)
		}
		printJSON(gossips)

	case "post":
		fs := flag.NewFlagSet("post", flag.ExitOnError)
		profile := fs.String("profile", "", "profile id")
		channel := fs.String("channel", "", "channel id")
		text := fs.String("text", "", "gossip text")
		_ = fs.Parse(flag.Args()[1:])
		if *profile == "" || *channel == "" || *text == "" {
			fail(errors.New("need -profile -channel -text"))
		}
		g, err := cli.CreateGossip(ctx, *profile, *channel, *text)
		if err != nil {
			fail(err)
		}
		printJSON(g)

	case "like":
		g, err := cli.Like(ctx, requireID())
		if err != nil {
			fail(err)
		}
		fmt.Printf("likes=%d liked=%v\n", g.LikeCount, g.IsLiked)

	case "reply":
		fs := flag.NewFlagSet("reply", flag.ExitOnError)
		id := fs.String("id", "", "gossip id")
		text := fs.String("text", "", "reply text")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" || *text == "" {
			fail(errors.New("need -id and -text"))
		}
		if err := cli.Reply(ctx, *id, *text); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "boost":
		g, err := cli.Boost(ctx, requireID())
		if err != nil {
			if errors.Is(err, errs.ErrInsufficientBalance) {
				fmt.Fprintf(os.Stderr, "not enough buzz (boost costs %d)\n", api.BoostCost)
				os.Exit(1)
			}
			fail(err)
		}
		fmt.Printf("boosted until %s\n", fmtTime(g.BoostedUntil))

	case "report":
		fs := flag.NewFlagSet("report", flag.ExitOnError)
		id := fs.String("id", "", "gossip id")
		reason := fs.String("reason", "", "report reason")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fail(errors.New("need -id"))
		}
		if err := cli.Report(ctx, *id, *reason); err != nil {
			fail(err)
		}
		fmt.Println("reported")

	case "hide":
		if err := cli.Hide(ctx, requireID()); err != nil {
			fail(err)
		}
		fmt.Println("hidden")

	case "channels":
		fs := flag.NewFlagSet("channels", flag.ExitOnError)
		profile := fs.String("profile", "", "profile id")
		_ = fs.Parse(flag.Args()[1:])
		chans, err := cli.ListChannels(ctx, *profile)
		if err != nil {
			fail(err)
		}
		printJSON(chans)

	case "create-channel":
		fs := flag.NewFlagSet("create-channel", flag.ExitOnError)
		profile := fs.String("profile", "", "profile id")
		name := fs.String("name", "", "channel name")
		_ = fs.Parse(flag.Args()[1:])
		if *profile == "" || *name == "" {
			fail(errors.New("need -profile and -name"))
		}
		ch, err := cli.CreateChannel(ctx, *profile, *name)
		if err != nil {
			if errors.Is(err, errs.ErrInsufficientBalance) {
				fmt.Fprintf(os.Stderr, "not enough buzz (a channel costs %d)\n", api.ChannelCost)
				os.Exit(1)
			}
			fail(err)
		}
		printJSON(ch)

	case "rename-channel":
		fs := flag.NewFlagSet("rename-channel", flag.ExitOnError)
		id := fs.String("id", "", "channel id")
		name := fs.String("name", "", "new name")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" || *name == "" {
			fail(errors.New("need -id and -name"))
		}
		ch, err := cli.RenameChannel(ctx, *id, *name)
		if err != nil {
			fail(err)
		}
		printJSON(ch)

	case "rm-channel":
		if err := cli.DeleteChannel(ctx, requireID()); err != nil {
			fail(err)
		}
		fmt.Println("deleted")

	case "profiles":
		fs := flag.NewFlagSet("profiles", flag.ExitOnError)
		q := fs.String("q", "", "search query")
		_ = fs.Parse(flag.Args()[1:])
		profiles, err := cli.SearchProfiles(ctx, *q)
		if err != nil {
			fail(err)
		}
		printJSON(profiles)

	case "profile":
		p, err := cli.Profile(ctx, requireID())
		if err != nil {
			fail(err)
		}
		printJSON(p)

	case "create-profile":
		fs := flag.NewFlagSet("create-profile", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		handle := fs.String("handle", "", "handle")
		_ = fs.Parse(flag.Args()[1:])
		if *name == "" {
			fail(errors.New("need -name"))
		}
		p, err := cli.CreateProfile(ctx, *name, *handle)
		if err != nil {
			fail(err)
		}
		printJSON(p)

	case "claim-profile":
		p, err := cli.ClaimProfile(ctx, requireID())
		if err != nil {
			fail(err)
		}
		printJSON(p)

	case "link-social":
		fs := flag.NewFlagSet("link-social", flag.ExitOnError)
		network := fs.String("network", "", "social network")
		handle := fs.String("handle", "", "handle on that network")
		_ = fs.Parse(flag.Args()[1:])
		if *network == "" || *handle == "" {
			fail(errors.New("need -network and -handle"))
		}
		if err := cli.LinkSocial(ctx, *network, *handle); err != nil {
			fail(err)
		}
		fmt.Println("linked")

	default:
		usage()
	}
}

// requireID parses a lone -id flag from the subcommand args.
func requireID() string {
	fs := flag.NewFlagSet("id", flag.ExitOnError)
	id := fs.String("id", "", "id")
	_ = fs.Parse(flag.Args()[1:])
	if *id == "" {
		fail(errors.New("need -id"))
	}
	return *id
}

func fail(err error) {
	switch {
	case errors.Is(err, errs.ErrSessionExpired):
		fmt.Fprintln(os.Stderr, "session expired; log in again")
	case errors.Is(err, errs.ErrNetworkUnavailable):
		fmt.Fprintln(os.Stderr, "network unavailable; try again later")
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
