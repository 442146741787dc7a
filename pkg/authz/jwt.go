package authz

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// JWTConfig configures the JWT-based caller extractor.
type JWTConfig struct {
	// EmailClaim is the claim path holding the caller's email.
	// Default: "email"
	EmailClaim string

	// RolesClaim is the claim path holding the caller's roles, either a
	// string (comma separated) or an array of strings. Dot-notation reaches
	// nested claims, e.g. "realm_access.roles".
	// Default: "roles"
	RolesClaim string

	// BusinessUnitClaim is the claim path holding the business-unit display name.
	// Default: "business_unit"
	BusinessUnitClaim string

	// PublicKeyPath is the PEM-encoded RSA public key used for RS256 verification.
	// If empty, tokens are parsed but NOT verified (trusted proxy mode).
	PublicKeyPath string

	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string

	// Audience is the expected aud claim. Empty skips the check.
	Audience string

	Logger *slog.Logger
}

func (c *JWTConfig) setDefaults() {
	if c.EmailClaim == "" {
		c.EmailClaim = "email"
	}
	if c.RolesClaim == "" {
		c.RolesClaim = "roles"
	}
	if c.BusinessUnitClaim == "" {
		c.BusinessUnitClaim = "business_unit"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// NewJWTCallerExtractor creates a CallerExtractor that reads identity from
// "Authorization: Bearer <token>". Missing or invalid tokens produce an
// anonymous caller.
func NewJWTCallerExtractor(cfg JWTConfig, resolver *roles.Resolver) (CallerExtractor, error) {
	cfg.setDefaults()

	var publicKey *rsa.PublicKey
	if cfg.PublicKeyPath != "" {
		key, err := loadRSAPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		publicKey = key
		cfg.Logger.Info("jwt caller extractor: using RS256 verification", "keyPath", cfg.PublicKeyPath)
	} else {
		cfg.Logger.Warn("jwt caller extractor: no public key configured, tokens parsed without verification (trusted proxy mode)")
	}

	return func(r *http.Request) Caller {
		token := extractBearerToken(r)
		if token == "" {
			return Caller{Roles: roles.NewSet()}
		}

		claims, err := parseJWTClaims(token, publicKey, cfg)
		if err != nil {
			cfg.Logger.Debug("jwt parse failed, treating caller as anonymous", "error", err)
			return Caller{Roles: roles.NewSet()}
		}

		email, _ := claimAt(claims, cfg.EmailClaim).(string)
		bu, _ := claimAt(claims, cfg.BusinessUnitClaim).(string)
		res := resolver.Resolve(claimStrings(claimAt(claims, cfg.RolesClaim)))
		return Caller{
			Email:          strings.ToLower(strings.TrimSpace(email)),
			Roles:          res.Roles,
			BusinessUnitID: resolver.DeriveBusinessUnitID(bu),
			Unrecognized:   res.Unrecognized,
		}
	}, nil
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read JWT public key from %s: %w", path, err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("decode PEM block from %s", path)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA (got %T)", parsed)
	}
	return rsaKey, nil
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseJWTClaims(tokenString string, publicKey *rsa.PublicKey, cfg JWTConfig) (jwt.MapClaims, error) {
	var opts []jwt.ParserOption
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	var (
		token *jwt.Token
		err   error
	)
	if publicKey != nil {
		token, err = jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return publicKey, nil
		}, opts...)
	} else {
		token, _, err = jwt.NewParser(opts...).ParseUnverified(tokenString, jwt.MapClaims{})
	}
	if err != nil {
		return nil, fmt.Errorf("parse jwt: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	return claims, nil
}

// claimAt walks a dot-separated path through nested claim maps.
func claimAt(claims jwt.MapClaims, path string) interface{} {
	var current interface{} = map[string]interface{}(claims)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

func claimStrings(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return splitList(val)
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
