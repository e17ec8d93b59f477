package command

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			svc, err := newService(cmd.Context(), settingsFrom(cmd.Context()))
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			if err := svc.migrate(cmd.Context()); err != nil {
				return err
			}

			slog.InfoContext(cmd.Context(), "schema ready")
			return nil
		},
	}
}
