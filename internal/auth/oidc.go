package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier checks tokens issued by an OpenID Connect provider such as
// Keycloak. The global role is read from the role claim when present.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the provider at issuer.
func NewOIDCVerifier(ctx context.Context, issuer string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	// SkipClientIDCheck → no client ID required
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true})}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (Principal, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid token: %w", err)
	}
	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return Principal{}, fmt.Errorf("failed to parse claims: %w", err)
	}
	claims.Subject = idToken.Subject
	return claims.principal()
}
