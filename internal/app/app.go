package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/atvirokodosprendimai/castingapi/internal/adapters/auth0"
	"github.com/atvirokodosprendimai/castingapi/internal/adapters/httpapi"
	sqliteadapter "github.com/atvirokodosprendimai/castingapi/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/castingapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/castingapi/internal/core/usecase"
	"github.com/atvirokodosprendimai/castingapi/migrations"
)

type Config struct {
	Addr   string
	DBPath string

	// Auth0Domain is the identity provider tenant, e.g. "example.us.auth0.com".
	// The token issuer and the JWKS endpoint are both derived from it.
	Auth0Domain  string
	AuthAudience string
	JWKSTimeout  time.Duration
	JWKSCacheTTL time.Duration

	// ClientID and LoginRedirectURL configure the optional /api/login
	// redirect. Leaving either empty disables it.
	ClientID         string
	LoginRedirectURL string
}

func (c Config) issuer() string {
	return "https://" + c.Auth0Domain + "/"
}

// loginURL builds the identity provider's authorize page URL for the
// implicit flow. Empty when the login redirect is not configured.
func (c Config) loginURL() string {
	if c.ClientID == "" || c.LoginRedirectURL == "" {
		return ""
	}
	q := url.Values{}
	q.Set("audience", c.AuthAudience)
	q.Set("response_type", "token")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.LoginRedirectURL)
	return "https://" + c.Auth0Domain + "/authorize?" + q.Encode()
}

func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	if cfg.Auth0Domain == "" {
		return nil, nil, fmt.Errorf("auth0 domain must be configured")
	}
	if cfg.AuthAudience == "" {
		return nil, nil, fmt.Errorf("auth audience must be configured")
	}

	db, err := gormsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	schemaService, err := usecase.NewSchemaService()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("compile request schemas: %w", err)
	}

	keySet := auth0.NewKeySet(cfg.Auth0Domain, cfg.JWKSTimeout, cfg.JWKSCacheTTL)
	authService := usecase.NewAuthService(keySet, cfg.AuthAudience, cfg.issuer())
	actorService := usecase.NewActorService(sqliteadapter.NewActorRepository(db))
	movieService := usecase.NewMovieService(sqliteadapter.NewMovieRepository(db))

	handler := httpapi.NewHandler(actorService, movieService, schemaService, authService, cfg.loginURL())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, db, nil
}
