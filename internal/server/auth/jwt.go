// Package auth signs and verifies access tokens. It is the only place that
// knows about JWT: the issuer signs through GenerateAccessToken, the
// authorization boundary verifies through ParseAccessToken and the rotator
// uses ParseExpiredAccessToken, which checks the signature but not expiry.
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Config is read once at startup and never changes afterwards.
type Config struct {
	SigningMethod SigningMethod
	// SecretKey is the HMAC key for hs256.
	SecretKey []byte
	// PrivateKey and PublicKey are ed25519 keys, PEM or raw. The public key
	// is derived from the private one when omitted.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	Leeway     time.Duration
}

// Claims is the access token payload.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	cfg       Config
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	now       func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager validates cfg and prepares the signing keys. Every failure is
// reported as common.ErrSigningKeyMisconfigured.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	m := &Manager{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.init(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrSigningKeyMisconfigured, err)
	}
	return m, nil
}

func (m *Manager) init() error {
	if m.cfg.AccessTTL <= 0 {
		return errors.New("access token lifetime must be positive")
	}
	if m.cfg.Leeway < 0 || m.cfg.Leeway > 2*time.Minute {
		return errors.New("leeway must be between 0 and 2m")
	}

	switch m.cfg.SigningMethod {
	case MethodHS256:
		if len(m.cfg.SecretKey) == 0 {
			return errors.New("hs256 requires a secret key")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = m.cfg.SecretKey
		m.verifyKey = m.cfg.SecretKey
	case MethodEd25519:
		priv, err := parseEdPrivateKey(m.cfg.PrivateKey)
		if err != nil {
			return err
		}
		pub := priv.Public().(ed25519.PublicKey)
		if len(m.cfg.PublicKey) > 0 {
			configured, err := parseEdPublicKey(m.cfg.PublicKey)
			if err != nil {
				return err
			}
			if !configured.Equal(pub) {
				return errors.New("ed25519 public key does not match private key")
			}
		}
		m.method = jwt.SigningMethodEdDSA
		m.signKey = priv
		m.verifyKey = pub
	default:
		return fmt.Errorf("unsupported signing method %q", m.cfg.SigningMethod)
	}

	return nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

// GenerateAccessToken signs a token for the given identity and returns it
// together with its expiry.
func (m *Manager) GenerateAccessToken(userID, username string, role models.Role) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.cfg.AccessTTL)

	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}

	token, err := jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// ParseAccessToken fully validates a token: signature, algorithm, expiry,
// issuer and audience. Expired tokens yield common.ErrTokenExpired, anything
// else common.ErrInvalidToken.
func (m *Manager) ParseAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString, true)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	return claims, nil
}

// ParseExpiredAccessToken verifies signature, algorithm, issuer and audience
// but accepts tokens past their expiry. Only the refresh flow may use it.
func (m *Manager) ParseExpiredAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if m.cfg.Issuer != "" && claims.Issuer != m.cfg.Issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", common.ErrInvalidToken)
	}
	if m.cfg.Audience != "" && !containsAudience(claims.Audience, m.cfg.Audience) {
		return nil, fmt.Errorf("%w: audience mismatch", common.ErrInvalidToken)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil || !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return nil, fmt.Errorf("%w: bad validity window", common.ErrInvalidToken)
	}

	return claims, nil
}

func (m *Manager) parse(tokenString string, validateClaims bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(m.cfg.Leeway))
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	if m.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.cfg.Audience))
	}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.verifyKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token not valid")
	}
	if claims.UserID == "" {
		return nil, errors.New("missing uid claim")
	}

	return claims, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == 0 {
		return nil, errors.New("ed25519 requires a private key")
	}
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
