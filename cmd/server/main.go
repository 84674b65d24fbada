package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cleft-care-backend/internal/config"
	"github.com/iliyamo/cleft-care-backend/internal/database"
	"github.com/iliyamo/cleft-care-backend/internal/handler"
	"github.com/iliyamo/cleft-care-backend/internal/lib/logger/sl"
	"github.com/iliyamo/cleft-care-backend/internal/middleware"
	"github.com/iliyamo/cleft-care-backend/internal/notify"
	"github.com/iliyamo/cleft-care-backend/internal/oauth"
	"github.com/iliyamo/cleft-care-backend/internal/queue"
	"github.com/iliyamo/cleft-care-backend/internal/repository"
	"github.com/iliyamo/cleft-care-backend/internal/router"
	"github.com/iliyamo/cleft-care-backend/internal/service"
	"github.com/iliyamo/cleft-care-backend/internal/utils"
)

func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)
	log.Info("starting cleft-care backend", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", sl.Err(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := database.Open(cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	notifier, closeNotifier, err := setupNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	issuer := utils.NewTokenIssuer(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	users := repository.NewUserRepo(db)

	svc := service.NewAuthService(log, service.Deps{
		Users:      users,
		Donations:  repository.NewDonationRepo(db),
		Signups:    repository.NewSignupStore(rdb, cfg.OTP.TTL),
		Resets:     repository.NewResetStore(rdb, cfg.OTP.TTL),
		Refresh:    repository.NewTokenRepo(rdb, cfg.JWT.RefreshTTL),
		Notifier:   notifier,
		Google:     oauth.NewGoogleVerifier(cfg.Google.ClientID),
		Issuer:     issuer,
		BcryptCost: cfg.BcryptCost,
	})

	cookies := handler.CookieSettings{Secure: cfg.Secure(), Domain: cfg.Cookie.Domain, Path: cfg.Cookie.Path}
	requireAuth := middleware.RequireAuth(issuer, users, log)

	e := newEcho(log)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(log, svc, cookies), requireAuth,
		middleware.NewTokenBucket(cfg.RateLimit, rdb, log))
	router.RegisterAdmin(e, handler.NewAdminHandler(log, svc), requireAuth)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newEcho(log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log)

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, sl.Err(v.Error))
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))
	return e
}

// setupNotifier picks how OTP mails are delivered.  In queue mode the
// returned notifier publishes to RabbitMQ and, when enabled, a consumer in
// this process performs the SMTP delivery.
func setupNotifier(ctx context.Context, cfg config.Config, log *slog.Logger) (service.Notifier, func(), error) {
	smtp := notify.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password,
		cfg.SMTP.From, cfg.SMTP.AppName, cfg.OTP.TTL)

	if cfg.RabbitMQ.Mode != "queue" {
		return smtp, func() {}, nil
	}

	pub, err := queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
	if err != nil {
		return nil, nil, err
	}
	if cfg.RabbitMQ.StartConsumer {
		go func() {
			err := queue.StartOTPMailConsumer(ctx, log, cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, smtp)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("otp mail consumer stopped", sl.Err(err))
			}
		}()
	}
	return pub, pub.Close, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvProduction:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return log
}
