// fairpay — консольный клиент FairPay: сессия, группы, расходы,
// платежи и ссылки-приглашения поверх HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fairpay-app/fairpay-client-go/internal/auth"
	"github.com/fairpay-app/fairpay-client-go/internal/client"
	"github.com/fairpay-app/fairpay-client-go/internal/config"
	"github.com/fairpay-app/fairpay-client-go/internal/expenses"
	"github.com/fairpay-app/fairpay-client-go/internal/groups"
	"github.com/fairpay-app/fairpay-client-go/internal/invite"
	"github.com/fairpay-app/fairpay-client-go/internal/models"
	logctx "github.com/fairpay-app/fairpay-client-go/internal/pkg/log"
	"github.com/fairpay-app/fairpay-client-go/internal/session"
	"github.com/fairpay-app/fairpay-client-go/internal/tokenstore"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const usage = `usage: fairpay [--config path] <command> [args]

commands:
  login <email> <password>       sign in and print the current user
  register <name> <email> <pw>   create an account and sign in
  logout                         revoke the session and clear tokens
  whoami                         print the current user (null if anonymous)
  refresh                        rotate the token pair
  groups                         list groups
  group <id>                     group details
  members <id>                   group members
  create-group -name N [-desc D] create a group
  expenses <groupID>             list group expenses
  add-expense [flags]            create an expense (see -h)
  invite <groupID> [-days N]     generate an invite link
  join <token|link>              accept an invite
  pay -group G -from F -to T -amount A   record a manual payment
`

// app — собранная клиентская вертикаль для одной команды CLI.
type app struct {
	cfg      *config.Config
	tokens   *tokenstore.Store
	auth     *auth.Service
	session  *session.Session
	groups   *groups.Service
	expenses *expenses.Service
}

func main() {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logctx.Into(ctx, log)

	a, err := newApp(cfg)
	if err != nil {
		log.Error("init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	if err := a.run(ctx, args[0], args[1:]); err != nil {
		log.Error("command_failed",
			slog.String("command", args[0]),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) (*app, error) {
	path := cfg.Tokens.Path
	if path == "" {
		var err error
		path, err = tokenstore.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve token path: %w", err)
		}
	}
	tokens := tokenstore.New(path)

	api := client.New(tokens, client.Options{
		BaseURL:  cfg.API.BaseURL,
		Timeout:  cfg.API.Timeout,
		Attempts: cfg.Retry.Attempts,
		Backoff:  cfg.Retry.Backoff,
		CacheTTL: cfg.Cache.TTL,
	})

	authSvc := auth.New(api, tokens, auth.DemoMode{
		Enabled: cfg.Demo.Enabled,
		Secret:  cfg.Demo.Secret,
	})

	return &app{
		cfg:    cfg,
		tokens: tokens,
		auth:   authSvc,
		session: session.New(authSvc, tokens, session.Options{
			StartDelay:    cfg.Session.StartDelay,
			LoginAttempts: cfg.Session.LoginAttempts,
			LoginBackoff:  cfg.Session.LoginBackoff,
		}),
		groups:   groups.New(api),
		expenses: expenses.New(api),
	}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login", "register", "logout", "refresh":
	default:
		a.refreshIfNearExpiry(ctx)
	}

	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.session.Logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "refresh":
		return a.refresh(ctx)
	case "groups":
		return printJSON(a.groups.List(ctx))
	case "group":
		return a.group(ctx, args)
	case "members":
		return a.members(ctx, args)
	case "create-group":
		return a.createGroup(ctx, args)
	case "expenses":
		return a.listExpenses(ctx, args)
	case "add-expense":
		return a.addExpense(ctx, args)
	case "invite":
		return a.invite(ctx, args)
	case "join":
		return a.join(ctx, args)
	case "pay":
		return a.pay(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// refreshIfNearExpiry заранее обновляет пару, если access-токен скоро
// истечёт, чтобы команда не упёрлась в 401 посреди работы.
func (a *app) refreshIfNearExpiry(ctx context.Context) {
	tok := a.tokens.AccessToken()
	if tok == "" || auth.IsDemoToken(tok) || a.tokens.RefreshToken() == "" {
		return
	}

	if tokenstore.NearExpiry(tok, a.cfg.Session.ExpiryMargin) {
		_, _ = a.auth.RefreshAccessToken(ctx)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("login requires <email> <password>")
	}

	user, err := a.session.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	return printJSON(user)
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("register requires <name> <email> <password>")
	}

	resp, err := a.auth.Register(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	return printJSON(resp.User)
}

func (a *app) whoami(ctx context.Context) error {
	user, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return err
	}

	return printJSON(user)
}

func (a *app) refresh(ctx context.Context) error {
	access, err := a.auth.RefreshAccessToken(ctx)
	if err != nil {
		return err
	}

	if access == "" {
		return errors.New("no session to refresh")
	}

	fmt.Println("token pair rotated")
	return nil
}

func (a *app) group(ctx context.Context, args []string) error {
	id, err := idArg(args, "group")
	if err != nil {
		return err
	}

	return printJSON(a.groups.ByID(ctx, id))
}

func (a *app) members(ctx context.Context, args []string) error {
	id, err := idArg(args, "members")
	if err != nil {
		return err
	}

	return printJSON(a.groups.Members(ctx, id))
}

func (a *app) createGroup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-group", flag.ContinueOnError)
	name := fs.String("name", "", "group name")
	desc := fs.String("desc", "", "group description")
	image := fs.String("image", "", "group image url")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("create-group requires -name")
	}

	group, err := a.groups.Create(ctx, models.CreateGroupRequest{
		Name:        *name,
		Description: *desc,
		ImageURL:    *image,
	})
	if err != nil {
		return err
	}

	return printJSON(group)
}

func (a *app) listExpenses(ctx context.Context, args []string) error {
	id, err := idArg(args, "expenses")
	if err != nil {
		return err
	}

	return printJSON(a.expenses.ListByGroup(ctx, id))
}

func (a *app) addExpense(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-expense", flag.ContinueOnError)
	group := fs.Int64("group", 0, "group id")
	desc := fs.String("desc", "", "expense description")
	amount := fs.Float64("amount", 0, "total amount")
	date := fs.String("date", "", "expense date (YYYY-MM-DD)")
	payer := fs.String("payer", "", "payer email")
	participants := fs.String("participants", "", "comma-separated participant emails")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := models.CreateExpenseRequest{
		Description: *desc,
		TotalAmount: *amount,
		Date:        *date,
		GroupID:     *group,
		Payer:       *payer,
	}
	for _, p := range strings.Split(*participants, ",") {
		if p = strings.TrimSpace(p); p != "" {
			req.Participants = append(req.Participants, p)
		}
	}

	expense, err := a.expenses.Create(ctx, req)
	if err != nil {
		return err
	}

	return printJSON(expense)
}

func (a *app) invite(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("invite requires <groupID>")
	}

	id, err := idArg(args[:1], "invite")
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("invite", flag.ContinueOnError)
	days := fs.Int("days", 7, "invite lifetime in days")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	link, err := a.groups.InviteLink(ctx, id, models.InviteLinkRequest{ExpiresInDays: *days})
	if err != nil {
		return err
	}

	return printJSON(map[string]string{
		"inviteLink":  link.Link(),
		"frontendUrl": invite.FrontendURL(a.cfg.Invites.FrontendURL, link.Link()),
		"expiresAt":   link.ExpiresAt,
	})
}

func (a *app) join(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("join requires <token|link>")
	}

	token := invite.ExtractToken(args[0])
	if token == "" {
		return errors.New("invite token is empty")
	}
	if !invite.ValidateToken(token) {
		return fmt.Errorf("invite token %q is malformed", token)
	}

	resp, err := a.groups.AcceptInvite(ctx, token)
	if err != nil {
		return err
	}

	return printJSON(resp)
}

func (a *app) pay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	group := fs.Int64("group", 0, "group id")
	from := fs.Int64("from", 0, "payer user id")
	to := fs.Int64("to", 0, "recipient user id")
	amount := fs.Float64("amount", 0, "payment amount")
	date := fs.String("date", "", "payment date (YYYY-MM-DD)")
	desc := fs.String("desc", "", "payment description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payment, err := a.expenses.CreatePayment(ctx, *group, models.PaymentRequest{
		FromUserID:  *from,
		ToUserID:    *to,
		Amount:      *amount,
		Date:        *date,
		Description: *desc,
	})
	if err != nil {
		return err
	}

	return printJSON(payment)
}

func idArg(args []string, cmd string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s requires <groupID>", cmd)
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s: bad group id %q", cmd, args[0])
	}

	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setupLogger пишет в stderr: stdout зарезервирован под JSON-вывод команд.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
}
