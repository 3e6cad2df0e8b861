package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/brewline/console/internal/core/credential"
	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
	"github.com/brewline/console/internal/core/service"
	"github.com/brewline/console/internal/core/session"
	"github.com/brewline/console/internal/infrastructure/backend"
	redisdb "github.com/brewline/console/internal/infrastructure/db/redis"
	"github.com/brewline/console/internal/pkg/config"
)

const passwordEnv = "SESSIONCTL_PASSWORD"

// cli is one invocation: a process-wide Store restored from Redis and the
// service bound to it.
type cli struct {
	store *session.Store
	svc   *service.SessionService
	out   io.Writer
}

// writerNotifier prints notifications as they happen.
type writerNotifier struct{ w io.Writer }

func (n writerNotifier) Notify(note ports.Notification) {
	fmt.Fprintf(n.w, "%s: %s\n", note.Level, note.Message)
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string, stdout, stderr io.Writer) error {
	global := pflag.NewFlagSet("sessionctl", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	profile := global.String("profile", "default", "credential profile kept in Redis")
	backendURL := global.String("backend", cfg.Backend.BaseURL, "identity backend base URL")
	redisAddr := global.String("redis", cfg.Redis.Addr, "Redis address holding credentials")

	if err := global.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printUsage(stdout, global)
			return nil
		}
		return err
	}
	if global.NArg() == 0 {
		printUsage(stderr, global)
		return errUsage
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: *redisAddr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	decoder := credential.NewDecoder(log)
	store := session.NewStore(redisdb.NewCredentialStore(rdb, *profile), decoder, log)
	c := &cli{
		store: store,
		svc: service.NewSessionService(service.SessionDeps{
			API:      backend.NewClient(backend.Config{BaseURL: *backendURL, Timeout: cfg.Backend.Timeout}),
			Store:    store,
			Decoder:  decoder,
			Notifier: writerNotifier{w: stderr},
			Log:      log,
		}),
		out: stdout,
	}
	store.Initialize(ctx)

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "login":
		return c.login(ctx, rest, stderr)
	case "register":
		return c.register(ctx, rest, stderr)
	case "logout":
		c.svc.Logout(ctx)
		return nil
	case "whoami":
		return c.whoami()
	case "status":
		return c.status()
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		printUsage(stderr, global)
		return errUsage
	}
}

func (c *cli) login(ctx context.Context, args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (or $"+passwordEnv+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("login needs --email and --password")
	}

	user, err := c.svc.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed in as %s (%s)\n", user.Email, user.Role)
	return nil
}

func (c *cli) register(ctx context.Context, args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	company := fs.String("company", "", "company name")
	email := fs.String("email", "", "owner email")
	password := fs.String("password", "", "owner password (or $"+passwordEnv+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}
	if *company == "" || *email == "" || *password == "" {
		return fmt.Errorf("register needs --company, --email and --password")
	}

	return c.svc.Register(ctx, *company, *email, *password)
}

func (c *cli) whoami() error {
	user := c.svc.CurrentUser()
	if user == nil {
		return fmt.Errorf("not signed in")
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(user)
}

func (c *cli) status() error {
	snap := c.store.Snapshot()
	fmt.Fprintf(c.out, "authenticated: %t\n", snap.IsAuthenticated)
	if snap.User == nil {
		return nil
	}
	fmt.Fprintf(c.out, "role: %s\ntenant: %s\n", snap.User.Role, snap.User.TenantID)
	for _, area := range []struct {
		name  string
		roles []domain.Role
	}{
		{"admin", domain.AdminRoles},
		{"accounting", domain.AccountantRoles},
		{"roasting", domain.RoasterRoles},
		{"superadmin", []domain.Role{domain.RoleSuperAdmin}},
	} {
		fmt.Fprintf(c.out, "%-11s %t\n", area.name+":", c.svc.HasRole(area.roles...))
	}
	return nil
}
