package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	auth "github.com/goliatone/go-auth-service"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server
const ShutdownTimeout = 10 * time.Second

func serveCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the auth HTTP API",
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

			srv, err := newHTTPServer(svc)
			if err != nil {
				return err
			}

			grp, ctx := errgroup.WithContext(cmd.Context())
			serveHTTP(ctx, grp, srv, svc.cfg.HTTPAddr)
			return grp.Wait()
		},
	}

	cmd.Flags().String("addr", "", "HTTP listen address")
	_ = v.BindPFlag("http_addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func newHTTPServer(svc *service) (router.Server[*fiber.App], error) {
	gate, err := auth.NewHTTPAuthenticator(svc.tokens, svc.cfg)
	if err != nil {
		return nil, err
	}
	gate.WithLogger(svc.logger)

	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               "authsvc",
			DisableStartupMessage: true,
			ErrorHandler:          auth.NewFiberErrorHandler(svc.logger),
			ReadTimeout:           15 * time.Second,
			WriteTimeout:          15 * time.Second,
		}))
	})

	auth.RegisterAuthRoutes(srv.Router(),
		auth.WithAuthenticator(svc.auther),
		auth.WithRouteAuthenticator(gate),
		auth.WithControllerLogger(svc.logger),
		auth.WithDebug(svc.cfg.Debug),
	)

	return srv, nil
}

// fiberApp returns the fiber app behind srv with every route mounted
func fiberApp(srv router.Server[*fiber.App]) *fiber.App {
	if i, ok := srv.(interface{ Init() }); ok {
		i.Init()
	}
	return srv.WrappedRouter()
}

func serveHTTP(ctx context.Context, grp *errgroup.Group, srv router.Server[*fiber.App], addr string) {
	slog.InfoContext(ctx, "starting HTTP server...", slog.String("address", addr))

	app := fiberApp(srv)

	grp.Go(func() error {
		return app.Listen(addr)
	})

	grp.Go(func() error {
		<-ctx.Done()
		slog.InfoContext(context.WithoutCancel(ctx), "shutting down HTTP server")
		return app.ShutdownWithTimeout(ShutdownTimeout)
	})
}
