package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/app"
	"github.com/MrJamesThe3rd/fluxo/internal/config"
	"github.com/MrJamesThe3rd/fluxo/internal/database"
	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

var (
	header = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell   = lipgloss.NewStyle().Padding(0, 1)
	muted  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}

// open loads the configuration and wires the services onto the configured store.
func open(ctx context.Context) (*app.App, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := app.NewLogger(cfg)

	store, closeStore, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return app.New(store, app.SettingsFrom(cfg), ledger.SystemClock, logger, nil), closeStore, nil
}

type tokenCmd struct {
	company string
	subject string
	ttl     time.Duration
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "issue a bearer token for the API" }
func (*tokenCmd) Usage() string {
	return `fluxoctl token [-company <id>] [-subject <name>] [-ttl <duration>]

  Signs a token with JWT_SECRET. Without -company the token may only create companies.
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.company, "company", "", "Company the token is scoped to.")
	f.StringVar(&c.subject, "subject", "fluxoctl", "Subject claim.")
	f.DurationVar(&c.ttl, "ttl", 24*time.Hour, "Token lifetime.")
}

func (c *tokenCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		return fail("%v", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return fail("JWT_SECRET is not set")
	}

	companyID := uuid.Nil
	if c.company != "" {
		if companyID, err = uuid.Parse(c.company); err != nil {
			return fail("invalid company id: %v", err)
		}
	}

	token, err := auth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(c.subject, companyID, c.ttl, time.Now())
	if err != nil {
		return fail("%v", err)
	}

	fmt.Println(token)

	return subcommands.ExitSuccess
}

type migrateCmd struct{}

func (*migrateCmd) Name() string           { return "migrate" }
func (*migrateCmd) Synopsis() string       { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string          { return "fluxoctl migrate\n" }
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		return fail("%v", err)
	}

	db, err := database.New(cfg.ConnectionString(), cfg.Pool())
	if err != nil {
		return fail("%v", err)
	}
	defer db.Close()

	version, err := database.Migrate(ctx, db, cfg.DB.Name)
	if err != nil {
		return fail("%v", err)
	}

	fmt.Printf("schema at version %d\n", version)

	return subcommands.ExitSuccess
}

type companiesCmd struct {
	all bool
}

func (*companiesCmd) Name() string     { return "companies" }
func (*companiesCmd) Synopsis() string { return "list registered companies" }
func (*companiesCmd) Usage() string    { return "fluxoctl companies [-all]\n" }

func (c *companiesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Include inactive companies.")
}

func (c *companiesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, closeStore, err := open(ctx)
	if err != nil {
		return fail("%v", err)
	}
	defer closeStore()

	companies, err := a.References.ListCompanies(ctx, c.all)
	if err != nil {
		return fail("%v", err)
	}

	rows := make([][]string, 0, len(companies))
	for _, co := range companies {
		rows = append(rows, []string{co.ID.String(), co.CNPJ, co.Name, strconv.FormatBool(co.Active)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(muted).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}

			return cell
		}).
		Headers("ID", "CNPJ", "NAME", "ACTIVE").
		Rows(rows...)

	fmt.Println(t)

	return subcommands.ExitSuccess
}

type jobsCmd struct{}

func (*jobsCmd) Name() string     { return "jobs" }
func (*jobsCmd) Synopsis() string { return "run one pass of the background jobs" }
func (*jobsCmd) Usage() string {
	return `fluxoctl jobs

  Generates due recurring transactions, marks overdue ones and raises alerts for
  every active company, then exits.
`
}
func (*jobsCmd) SetFlags(*flag.FlagSet) {}

func (*jobsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, closeStore, err := open(ctx)
	if err != nil {
		return fail("%v", err)
	}
	defer closeStore()

	report, err := a.Scheduler.RunOnce(ctx)

	fmt.Printf("generated=%d swept=%d alerts=%d\n", report.Generated, report.Swept, report.Alerts)

	if err != nil {
		return fail("%v", err)
	}

	return subcommands.ExitSuccess
}

type verifyTransfersCmd struct {
	company string
}

func (*verifyTransfersCmd) Name() string     { return "verify-transfers" }
func (*verifyTransfersCmd) Synopsis() string { return "report transfer pairs that are out of sync" }
func (*verifyTransfersCmd) Usage() string {
	return "fluxoctl verify-transfers -company <id>\n"
}

func (c *verifyTransfersCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.company, "company", "", "Company to audit.")
}

func (c *verifyTransfersCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	companyID, err := uuid.Parse(c.company)
	if err != nil {
		return fail("invalid company id: %v", err)
	}

	a, closeStore, err := open(ctx)
	if err != nil {
		return fail("%v", err)
	}
	defer closeStore()

	problems, err := a.Transfers.Verify(ctx, companyID)
	if err != nil {
		return fail("%v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(problems); err != nil {
		return fail("%v", err)
	}

	if len(problems) > 0 {
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
