package jwtx

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the smallest HMAC key accepted for HS256.
const MinSecretBytes = 32

// CodecConfig is the immutable configuration of an HMACCodec.
type CodecConfig struct {
	// Secret is the shared HMAC-SHA256 key. Every service validating our
	// tokens holds the same bytes.
	Secret []byte

	// Issuer is written to iss and enforced on verify when non-empty.
	Issuer string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides the clock (tests). Defaults to time.Now.
	Now func() time.Time
}

// HMACCodec issues and verifies HS256 compact JWTs.
type HMACCodec struct {
	cfg    CodecConfig
	parser *jwt.Parser
}

// NewHMACCodec validates cfg and returns a codec. The secret is copied so the
// caller can't mutate it afterwards.
func NewHMACCodec(cfg CodecConfig) (*HMACCodec, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, ErrWeakSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(cfg.Now),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &HMACCodec{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

// DecodeSecret decodes a base64 (standard or URL alphabet) encoded secret.
func DecodeSecret(encoded string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(encoded); err == nil {
		return b, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("jwtx: secret is not base64: %w", err)
	}
	return b, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *HMACCodec) AccessTTL() time.Duration { return c.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *HMACCodec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// IssueAccessToken mints an access token for sub and returns it with its expiry.
func (c *HMACCodec) IssueAccessToken(sub Subject) (string, time.Time, error) {
	if sub.AccountID == "" || !sub.Role.Valid() {
		return "", time.Time{}, ErrMissingClaim
	}
	claims := NewAccessClaims(sub, c.cfg.Issuer, c.cfg.AccessTTL, c.cfg.Now().UTC())
	return c.sign(claims)
}

// IssueRefreshToken mints a refresh token for accountID.
func (c *HMACCodec) IssueRefreshToken(accountID string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, ErrMissingClaim
	}
	claims := NewRefreshClaims(accountID, c.cfg.Issuer, c.cfg.RefreshTTL, c.cfg.Now().UTC())
	return c.sign(claims)
}

func (c *HMACCodec) sign(claims Claims) (string, time.Time, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks the signature first and the expiry second. An authentic but
// expired token yields ErrExpired; anything else wrong yields ErrInvalidToken.
func (c *HMACCodec) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := c.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return Claims{}, ErrMissingClaim
	}
	switch claims.Purpose {
	case PurposeAccess:
		if claims.Role == "" {
			return Claims{}, ErrMissingClaim
		}
	case PurposeRefresh:
	default:
		return Claims{}, ErrWrongPurpose
	}

	return claims, nil
}

// VerifyAccess is Verify restricted to access tokens.
func (c *HMACCodec) VerifyAccess(raw string) (Claims, error) {
	return c.verifyPurpose(raw, PurposeAccess)
}

// VerifyRefresh is Verify restricted to refresh tokens.
func (c *HMACCodec) VerifyRefresh(raw string) (Claims, error) {
	return c.verifyPurpose(raw, PurposeRefresh)
}

func (c *HMACCodec) verifyPurpose(raw string, p Purpose) (Claims, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return Claims{}, err
	}
	if err := claims.ValidatePurpose(p); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// VerifySignature checks authenticity but tolerates an expired token. Used
// by logout, where revoking an expired token is harmless.
func (c *HMACCodec) VerifySignature(raw string) (Claims, error) {
	claims, err := c.Verify(raw)
	if err == nil {
		return claims, nil
	}
	if !errors.Is(err, ErrExpired) {
		return Claims{}, err
	}

	lenient := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := lenient.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	}); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.cfg.Issuer != "" && claims.Issuer != c.cfg.Issuer {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// The Extract helpers verify the token themselves, so a caller can never
// read claims off an unverified token by accident.

// ExtractAccountID returns the sub claim of a verified token.
func (c *HMACCodec) ExtractAccountID(raw string) (string, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractRole returns the role claim of a verified access token.
func (c *HMACCodec) ExtractRole(raw string) (Role, error) {
	claims, err := c.VerifyAccess(raw)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}

// ExtractEmail returns the email claim of a verified access token.
func (c *HMACCodec) ExtractEmail(raw string) (string, error) {
	claims, err := c.VerifyAccess(raw)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}
