// Package main wires and runs the safe-mode monitoring binary.
// It owns the command line, logging setup, registry creation and the HTTP
// server lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leinardi/safemode-monitoring/internal/appctx"
	"github.com/leinardi/safemode-monitoring/internal/auth"
	"github.com/leinardi/safemode-monitoring/internal/config"
	"github.com/leinardi/safemode-monitoring/internal/labels"
	"github.com/leinardi/safemode-monitoring/internal/logger"
	"github.com/leinardi/safemode-monitoring/internal/monitoring"
	"github.com/leinardi/safemode-monitoring/internal/server"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the root command and returns an exit code.
func run(args []string) int {
	rootCommand := newRootCommand()
	rootCommand.SetArgs(args)

	executeErr := rootCommand.ExecuteContext(context.Background())
	if executeErr != nil {
		_, _ = fmt.Fprintln(os.Stderr, executeErr)

		return 1
	}

	return 0
}

func newRootCommand() *cobra.Command {
	var configFile string

	command := &cobra.Command{
		Use:           "safemode-monitoring",
		Short:         "Serve the process metrics registry behind passcode or bearer credentials",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			settings, viperErr := config.NewViper(command.Flags(), configFile)
			if viperErr != nil {
				return viperErr
			}

			cfg, loadErr := config.Load(settings)
			if loadErr != nil {
				return loadErr
			}

			ctx, cancel := signal.NotifyContext(command.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg)
		},
	}

	command.Flags().StringVar(&configFile, "config", "", "Optional config file (yaml, json or toml)")
	config.RegisterFlags(command.Flags())

	return command
}

// serve builds the application context, defines the metrics action and runs
// the HTTP server until ctx is canceled.
func serve(ctx context.Context, cfg config.Config) error {
	log := logger.Configure(logger.Options{
		Format:      cfg.LogFormat,
		Level:       cfg.LogLevel,
		IncludeTime: cfg.LogTime,
	})

	log.Info("safemode-monitoring starting",
		"version", version,
		"commit", commit,
		"date", date,
	)

	constLabels, labelsErr := labels.ParseConstLabels(cfg.ConstLabels, log)
	if labelsErr != nil {
		return fmt.Errorf("parse constant labels: %w", labelsErr)
	}

	appContext := appctx.New(constLabels)

	buildInfoErr := appContext.RegisterBuildInfo(version, commit, date)
	if buildInfoErr != nil {
		return buildInfoErr
	}

	if cfg.RuntimeMetrics {
		runtimeErr := appContext.RegisterRuntimeCollectors()
		if runtimeErr != nil {
			return runtimeErr
		}
	}

	gate := newSafeModeGate(cfg)
	if !cfg.AnySchemeConfigured() {
		log.Warn("no credential scheme configured; every metrics request will be denied")
	}

	action := monitoring.NewMetricsAction(appContext, gate, log.With("component", "monitoring"))

	mux, muxErr := server.NewMux(action, cfg.MetricsPath, func() (bool, string) {
		return action.IsWebUp(), ""
	})
	if muxErr != nil {
		// Duplicate registration is a startup configuration error.
		return muxErr
	}

	log.Info("serving metrics",
		"addr", cfg.ListenAddr,
		"path", cfg.MetricsPath,
		"schemes", gate.Schemes(),
	)

	runErr := server.Run(ctx, cfg.ListenAddr, mux, log)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("http server: %w", runErr)
	}

	return nil
}

// newSafeModeGate assembles the credential schemes accepted while the
// application runs in safe mode, in evaluation order.
func newSafeModeGate(cfg config.Config) *auth.Gate {
	validators := []auth.Validator{
		auth.NewSystemPasscode(cfg.PasscodeHeader, cfg.Passcode),
		auth.SafeModeAdminSession{},
		auth.NewBearerPasscode(cfg.BearerPasscode),
	}

	if cfg.JWTSecret != "" {
		validators = append(validators, auth.NewBearerJWT(cfg.JWTSecret, auth.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   cfg.JWTLeeway,
		}))
	}

	return auth.NewGate(validators...)
}
