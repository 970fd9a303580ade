// Package main воркер исходящей почты Golden Pips: читает очередь писем
// (OTP-коды, подтверждения оплаты) и отправляет их через SMTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/golden-pips/internal/app/sender"
	"github.com/magabrotheeeer/golden-pips/internal/config"
	"github.com/magabrotheeeer/golden-pips/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting email sender",
		slog.String("env", cfg.Env),
		slog.String("queue", rabbitmq.QueueEmail),
		slog.String("smtp_host", cfg.SMTPHost),
	)
	if cfg.SMTPHost == "" {
		logger.Warn("smtp host is not set, otp and activation emails will fail to send")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := sender.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize email sender", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("email sender stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("email sender stopped gracefully")
}
