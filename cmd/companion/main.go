// companion is the headless client for the course platform: it boots the
// session (device login), then runs one subcommand against the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"al-ilm/companion/internal/bootstrap"
	"al-ilm/companion/internal/catalog"
	"al-ilm/companion/internal/config"
	"al-ilm/companion/internal/credstore"
	"al-ilm/companion/internal/gateway"
	"al-ilm/companion/internal/httpapi"
	"al-ilm/companion/internal/identity"
	sessionstore "al-ilm/companion/internal/session/store"
	"al-ilm/companion/internal/telemetry"
	otelsetup "al-ilm/companion/internal/telemetry/otel"
)

const usage = `usage: companion <command> [flags]

commands:
  status       boot the session and report its state
  login        sign in with email and password
  logout       end the current session
  whoami       show the profile bound to the current session
  refresh      exchange the current token for a fresh one
  courses      list courses
  categories   list categories
  books        list source texts
  stats        show dashboard counts
  device-id    print the stable device identifier
  reset        wipe all locally stored credentials
`

func main() {
	command := "status"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "al-ilm-companion", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		if cfg.OTLPEndpoint != "" {
			// Give in-flight async emits time to land before the exporters close.
			time.Sleep(telemetry.ShutdownDrainDuration)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	creds, err := credstore.Open(cfg.DatabasePath(), credstore.Options{Seal: cfg.SealCredentials})
	if err != nil {
		log.Fatalf("credstore: %v", err)
	}
	defer creds.Close()

	api := httpapi.NewClient(cfg.APIBaseURL, cfg.Timeout())
	gw := gateway.NewClient(api)
	sessions := sessionstore.New(gw, creds)
	api.BindSession(sessions)

	ids := identity.NewProvider(creds)
	emitter := otelsetup.NewEventEmitter(providers.LoggerProvider)
	boot := bootstrap.New(creds, ids, gw, sessions, emitter, bootstrap.Policy{
		AlwaysDeviceLogin: cfg.AlwaysDeviceLogin,
		MinSplash:         cfg.SplashDuration(),
	})

	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := run(ctx, command, args, boot, sessions, gw, catalog.NewClient(api), ids, creds, emitter); err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func run(ctx context.Context, command string, args []string, boot *bootstrap.Orchestrator, sessions *sessionstore.Store, gw *gateway.Client, cat *catalog.Client, ids *identity.Provider, creds *credstore.SQLiteStore, emitter telemetry.EventEmitter) error {
	switch command {
	case "device-id":
		id := ids.Identity(ctx)
		fmt.Printf("%s (%s)\n", id.Value, id.Origin)
		return nil
	case "reset":
		creds.ClearAllData(ctx)
		sessions.ForceLogout(ctx)
		fmt.Println("local credentials wiped")
		return nil
	}

	// Every remaining command acts on a booted session.
	res, err := boot.Run(ctx)
	if err != nil {
		return err
	}

	switch command {
	case "status":
		fmt.Println("status:", res.Status)
		fmt.Printf("device: %s (%s)\n", res.Device.Value, res.Device.Origin)
		if res.Session.User != nil {
			fmt.Printf("user:   %s (%s)\n", res.Session.User.Email, res.Session.User.Role)
		}
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *email == "" || *password == "" {
			return fmt.Errorf("both -email and -password are required")
		}
		if err := sessions.Login(ctx, *email, *password); err != nil {
			return err
		}
		sess := sessions.Current()
		telemetry.EmitAsync(emitter, ctx, &telemetry.Event{
			EventType: "login",
			UserID:    sess.User.ID,
			Source:    "cli",
			CreatedAt: time.Now().UTC(),
		})
		fmt.Printf("signed in as %s (%s)\n", sess.User.Email, sess.User.Role)
		return nil

	case "logout":
		sess := sessions.Current()
		sessions.Logout(ctx)
		event := &telemetry.Event{EventType: "logout", Source: "cli", CreatedAt: time.Now().UTC()}
		if sess.User != nil {
			event.UserID = sess.User.ID
		}
		telemetry.EmitAsync(emitter, ctx, event)
		fmt.Println("signed out")
		return nil

	case "whoami":
		u, err := gw.CurrentUser(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s\n", u.ID, u.Email, u.Role)
		return nil

	case "refresh":
		grant, err := gw.Refresh(ctx)
		if err != nil {
			return err
		}
		sessions.SetToken(grant.Token, grant.User)
		fmt.Println("token refreshed")
		return nil

	case "courses":
		courses, err := cat.Courses(ctx)
		if err != nil {
			return err
		}
		for _, c := range courses {
			fmt.Printf("%s  %-30s  %dmin\n", c.ID, c.Title, c.Duration)
		}
		return nil

	case "categories":
		cats, err := cat.Categories(ctx)
		if err != nil {
			return err
		}
		for _, c := range cats {
			fmt.Printf("%s  %s\n", c.ID, c.Name)
		}
		return nil

	case "books":
		books, err := cat.Books(ctx)
		if err != nil {
			return err
		}
		for _, b := range books {
			fmt.Printf("%s  %s  %s\n", b.ID, b.Title, b.Author)
		}
		return nil

	case "stats":
		stats, err := cat.DashboardStats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("courses: %d\nbooks: %d\ncategories: %d\n", stats.CourseCount, stats.BookCount, stats.CategoryCount)
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
