package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/covid-counter/covid-counter/internal/auth"
	"github.com/covid-counter/covid-counter/internal/config"
	"github.com/covid-counter/covid-counter/internal/handler"
	"github.com/covid-counter/covid-counter/internal/mailer"
	"github.com/covid-counter/covid-counter/internal/service"
	"github.com/covid-counter/covid-counter/internal/storage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")

	flag.Parse()
	if configPath == "" {
		log.Fatal("failed get config path from flags")
	}

	cfg := config.MustLoadConfig(configPath)

	lgr := setupLogger(cfg.Env)
	lgr.Info("starting covid counter", slog.String("env", cfg.Env))

	st, err := storage.NewPostgresStorage(cfg.DB.DbURL)
	if err != nil {
		lgr.Error("failed to connect to storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	tokens := auth.NewTokenService([]byte(cfg.Auth.SigningSecret), cfg.Auth.TokenTTL)
	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	authService := service.NewAuthService(st, smtpMailer, tokens, cfg.Auth.OTPTTL)
	covidService := service.NewCovidService(st)

	h := handler.NewHandler(authService, covidService, tokens, lgr)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      h.InitRoutes(),
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	lgr.Info("listening", slog.String("address", cfg.HTTPServer.Address))

	if err := srv.ListenAndServe(); err != nil {
		lgr.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func setupLogger(env string) *slog.Logger {
	var lgr *slog.Logger

	switch env {
	case envLocal:
		lgr = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		lgr = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		lgr = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return lgr
}
