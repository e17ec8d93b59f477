// Package command contains the CLI command constructors.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/repository"
)

type settingsKey struct{}

// RootCommand instantiates the root command, with all sub-commands bound.
func RootCommand() *cobra.Command {
	var configFilePath string
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "authsvc [command] [flags]",
		Short:        "Stateless token issuer for a user directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := auth.LoadSettingsWith(v, configFilePath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := newLogger(cfg)
			slog.SetDefault(logger)
			logger.DebugContext(cmd.Context(), "configuration loaded",
				slog.String("http_addr", cfg.HTTPAddr),
				slog.String("database", string(repository.DriverFor(cfg.DatabaseURL))),
			)
			cmd.SetContext(context.WithValue(cmd.Context(), settingsKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(
		&configFilePath,
		"config", "c",
		"",
		"path to an optional configuration file",
	)
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging and query logging")
	_ = v.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))

	cmd.AddCommand(
		serveCommand(v),
		migrateCommand(),
		userCommand(),
	)

	return cmd
}

func settingsFrom(ctx context.Context) *auth.Settings {
	cfg, _ := ctx.Value(settingsKey{}).(*auth.Settings)
	return cfg
}

func newLogger(cfg *auth.Settings) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
