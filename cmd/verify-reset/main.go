package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	verifyreset "github.com/goliatone/go-verify-reset"
	"github.com/goliatone/go-verify-reset/activitymap"
	"github.com/goliatone/go-verify-reset/notify"
	"github.com/goliatone/go-verify-reset/repository"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config *gconfig.Container[*BaseConfig]
	db     *bun.DB
	users  *repository.Users
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("verify-reset"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := gconfig.New(&BaseConfig{})
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	if cfg.Raw().App.Debug {
		fmt.Println(print.MaybePrettyJSON(cfg.Raw()))
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	go func() {
		if err := app.srv.Serve(app.Config().App.Address); err != nil {
			app.GetLogger("app").Error("server stopped", "error", err)
		}
	}()

	WaitExitSignal()

	if err := app.srv.Shutdown(ctx); err != nil {
		app.GetLogger("app").Error("failed to shutdown server", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.GetLogger("app").Error("failed to close database", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.Config().Persistence.DSN)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	group, err := repository.Migrate(ctx, db)
	if err != nil {
		return err
	}

	app.GetLogger("persistence").Info("migrations applied", "group", group.String())

	app.db = db
	app.users = repository.NewUsers(db)

	return SeedDemoUser(ctx, app)
}

// SeedDemoUser creates a verified user from the seed section so the login
// and change flows can be tried right away.
func SeedDemoUser(ctx context.Context, app *App) error {
	seed := app.Config().Seed
	if seed.Email == "" {
		return nil
	}

	res, err := app.users.Find(ctx, verifyreset.Query{verifyreset.FieldEmail: seed.Email})
	if err != nil {
		return err
	}
	if len(res.Users()) > 0 {
		return nil
	}

	hash, err := verifyreset.HashPassword(seed.Password)
	if err != nil {
		return err
	}

	id, err := hashid.NewUUID(seed.Email)
	if err != nil {
		return err
	}

	_, err = app.users.Create(ctx, &verifyreset.User{
		ID:           id,
		Email:        seed.Email,
		Username:     "demo",
		PasswordHash: hash,
		IsVerified:   true,
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryConflict, "could not seed demo user")
	}

	app.GetLogger("persistence").Info("seeded demo user", "email", seed.Email)
	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	cfg := app.Config()

	activity := activitymap.NewLogSink(app.GetLogger("activity"))

	svc := verifyreset.NewService(app.users, cfg.Tokens.ToConfig()).
		WithLogger(app.GetLogger("workflows")).
		WithNotifier(newNotifier(app)).
		WithActivitySink(activity)

	dispatcher := verifyreset.NewDispatcher(svc).
		WithLogger(app.GetLogger("dispatcher"))

	auther := verifyreset.NewAuthenticator(app.users, verifyreset.AuthConfig{
		SigningKey:      cfg.Auth.SigningKey,
		TokenExpiration: cfg.Auth.GetTokenExpiration(),
		Issuer:          cfg.Auth.Issuer,
		Audience:        cfg.Auth.Audience,
	}).WithLogger(app.GetLogger("auth")).
		WithActivitySink(activity)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: cfg.App.Debug,
			StrictRouting:     false,
		}))
	})

	verifyreset.NewHTTPController(dispatcher, auther, verifyreset.HTTPConfig{Debug: cfg.App.Debug}).
		WithLogger(app.GetLogger("http")).
		RegisterRoutes(srv.Router())

	app.srv = srv

	return nil
}

func newNotifier(app *App) verifyreset.Notifier {
	mcfg := app.Config().Mail

	mailer := notify.NewMailer(
		notify.NewSMTPSender(notify.SMTPConfig{
			Host:               mcfg.Host,
			Port:               mcfg.Port,
			User:               mcfg.User,
			Password:           mcfg.Password,
			From:               mcfg.From,
			InsecureSkipVerify: mcfg.InsecureSkipVerify,
		}),
		notify.NewRenderer(nil),
		notify.Links{BaseURL: app.Config().App.BaseURL},
	).WithLogger(app.GetLogger("mailer"))

	fallback := mcfg.Transport
	if fallback == "" {
		fallback = "log"
	}

	return notify.NewRouter(fallback).
		Handle("email", mailer).
		Handle("log", notify.NewLogNotifier(app.GetLogger("notify")))
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
