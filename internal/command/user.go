package command

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-auth-service"
)

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "User commands",
	}
	cmd.AddCommand(
		userListCommand(),
		userCreateCommand(),
	)
	return cmd
}

func userListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every user as JSON lines",
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

			enc := json.NewEncoder(cmd.OutOrStdout())
			for user, err := range svc.auther.ListAll(cmd.Context()) {
				if err != nil {
					return err
				}
				if err := enc.Encode(user); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func userCreateCommand() *cobra.Command {
	var email, born string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create user",
		Long: "Registers a user with the provided username. The password is read\n" +
			"from the first line of stdin. The stored user is printed as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			svc, err := newService(cmd.Context(), settingsFrom(cmd.Context()))
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			dateBorn, err := auth.ParseDate(born)
			if err != nil {
				return fmt.Errorf("invalid --born value %q: %w", born, err)
			}

			password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && password == "" {
				return fmt.Errorf("failed to read password from stdin: %w", err)
			}

			user, err := svc.auther.Register(cmd.Context(), auth.RegisterUserMessage{
				Username: args[0],
				Password: strings.TrimRight(password, "\r\n"),
				Email:    email,
				DateBorn: dateBorn,
			})
			if err != nil {
				return err
			}

			slog.InfoContext(cmd.Context(), "created user",
				slog.String("name", user.Username),
				slog.String("id", user.ID.String()),
			)
			return json.NewEncoder(cmd.OutOrStdout()).Encode(user)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&born, "born", "", "date of birth, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("born")

	return cmd
}
