package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
	"github.com/atvirokodosprendimai/castingapi/internal/core/ports"
)

var errMissingKeyID = errors.New("token header has no kid")

type tokenClaims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// AuthService verifies externally-issued RS256 bearer tokens against the
// identity provider's published key set and checks that the token carries a
// required permission string.
type AuthService struct {
	keys     ports.SigningKeyProvider
	audience string
	issuer   string
	bypass   bool
}

func NewAuthService(keys ports.SigningKeyProvider, audience, issuer string) *AuthService {
	return &AuthService{keys: keys, audience: audience, issuer: issuer}
}

// NewInsecureAuthService returns a verifier that skips every check and
// yields empty claims. It exists for handler tests only; production wiring
// in internal/app constructs the real verifier unconditionally.
func NewInsecureAuthService() *AuthService {
	return &AuthService{bypass: true}
}

// Authorize runs the full pipeline: header shape, signature, registered
// claims, then the permission check. Failures are *domain.AuthError except
// a key-set fetch failure, which propagates as an internal error.
func (s *AuthService) Authorize(ctx context.Context, header, permission string) (domain.Claims, error) {
	if s.bypass {
		return domain.Claims{}, nil
	}

	raw, err := bearerToken(header)
	if err != nil {
		return domain.Claims{}, err
	}

	claims, err := s.verify(ctx, raw)
	if err != nil {
		return domain.Claims{}, err
	}

	if claims.Permissions == nil {
		return domain.Claims{}, &domain.AuthError{
			Code:        "invalid_claims",
			Description: "Permissions not included in JWT.",
			Status:      http.StatusForbidden,
		}
	}
	if !claims.HasPermission(permission) {
		return domain.Claims{}, &domain.AuthError{
			Code:        "unauthorized",
			Description: "Permission not found.",
			Status:      http.StatusForbidden,
		}
	}
	return claims, nil
}

// bearerToken extracts the token from an Authorization header of the exact
// form "Bearer <token>".
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", &domain.AuthError{
			Code:        "authorization_header_missing",
			Description: "Authorization header is expected.",
			Status:      http.StatusUnauthorized,
		}
	}

	parts := strings.Fields(header)
	if len(parts) == 0 {
		// Whitespace-only header. Same failure as an absent one.
		return "", &domain.AuthError{
			Code:        "authorization_header_missing",
			Description: "Authorization header is expected.",
			Status:      http.StatusUnauthorized,
		}
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", &domain.AuthError{
			Code:        "invalid_header",
			Description: `Authorization header must start with "Bearer".`,
			Status:      http.StatusUnauthorized,
		}
	}
	if len(parts) == 1 {
		return "", &domain.AuthError{
			Code:        "invalid_header",
			Description: "Token not found.",
			Status:      http.StatusUnauthorized,
		}
	}
	if len(parts) > 2 {
		return "", &domain.AuthError{
			Code:        "invalid_header",
			Description: "Authorization header must be bearer token.",
			Status:      http.StatusUnauthorized,
		}
	}
	return parts[1], nil
}

func (s *AuthService) verify(ctx context.Context, raw string) (domain.Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(s.audience),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)

	var claims tokenClaims
	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errMissingKeyID
		}
		return s.keys.SigningKey(ctx, kid)
	})
	if err != nil {
		return domain.Claims{}, mapTokenError(err)
	}

	return domain.Claims{
		Issuer:      claims.Issuer,
		Subject:     claims.Subject,
		Audience:    claims.Audience,
		Permissions: claims.Permissions,
	}, nil
}

// mapTokenError converts golang-jwt parse errors into the auth failure
// taxonomy. Anything left over from the keyfunc is a key-set retrieval
// problem and stays an internal error.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, errMissingKeyID):
		return &domain.AuthError{
			Code:        "invalid_header",
			Description: "Authorization malformed.",
			Status:      http.StatusUnauthorized,
		}
	case errors.Is(err, domain.ErrSigningKeyNotFound):
		return &domain.AuthError{
			Code:        "invalid_header",
			Description: "Unable to find the appropriate key.",
			Status:      http.StatusUnauthorized,
		}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &domain.AuthError{
			Code:        "token_expired",
			Description: "Token expired.",
			Status:      http.StatusUnauthorized,
		}
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return &domain.AuthError{
			Code:        "invalid_claims",
			Description: "Incorrect claims. Please check the audience and issuer.",
			Status:      http.StatusUnauthorized,
		}
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return &domain.AuthError{
			Code:        "invalid_header",
			Description: "Unable to parse authentication token.",
			Status:      http.StatusUnauthorized,
		}
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("retrieve signing key set: %w", err)
	default:
		return &domain.AuthError{
			Code:        "invalid_header",
			Description: "Unable to parse authentication token.",
			Status:      http.StatusUnauthorized,
		}
	}
}
