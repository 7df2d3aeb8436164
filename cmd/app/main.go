package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atvirokodosprendimai/castingapi/internal/app"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "castingapi",
		Usage: "Casting agency REST API over SQLite",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: ":8080",
				Usage: "HTTP listen address",
			},
			&cli.StringFlag{
				Name:  "db-path",
				Value: "./castingapi.sqlite",
				Usage: "SQLite file path",
			},
			&cli.StringFlag{
				Name:    "auth0-domain",
				Sources: cli.EnvVars("AUTH0_DOMAIN"),
				Usage:   "Auth0 tenant domain, e.g. example.us.auth0.com",
			},
			&cli.StringFlag{
				Name:    "auth-audience",
				Sources: cli.EnvVars("AUTH_AUDIENCE"),
				Usage:   "Expected token audience",
			},
			&cli.DurationFlag{
				Name:  "jwks-timeout",
				Value: 10 * time.Second,
				Usage: "Timeout for signing-key set fetches",
			},
			&cli.DurationFlag{
				Name:  "jwks-cache-ttl",
				Value: 10 * time.Minute,
				Usage: "How long fetched signing keys stay cached",
			},
			&cli.StringFlag{
				Name:    "client-id",
				Sources: cli.EnvVars("AUTH0_CLIENT_ID"),
				Usage:   "Optional Auth0 application client id for the login redirect",
			},
			&cli.StringFlag{
				Name:    "login-redirect-url",
				Sources: cli.EnvVars("LOGIN_REDIRECT_URL"),
				Usage:   "Redirect URI registered for the login redirect",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := app.Config{
				Addr:             c.String("addr"),
				DBPath:           c.String("db-path"),
				Auth0Domain:      c.String("auth0-domain"),
				AuthAudience:     c.String("auth-audience"),
				JWKSTimeout:      c.Duration("jwks-timeout"),
				JWKSCacheTTL:     c.Duration("jwks-cache-ttl"),
				ClientID:         c.String("client-id"),
				LoginRedirectURL: c.String("login-redirect-url"),
			}

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Printf("close resources: %v", closeErr)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				log.Printf("received signal %s", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
