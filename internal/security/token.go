package security

import (
	"errors"
	"slices"
	"time"

	"rentbook/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// UserClaims identifies the caller of the REST API. The subject is the user ID;
// user_id is accepted for tokens minted by older issuers.
type UserClaims struct {
	UserID string   `json:"user_id,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	arbiterRole string
	now         func() time.Time
}

func NewTokenManager(secret, issuer, arbiterRole string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		secret:      []byte(secret),
		issuer:      issuer,
		ttl:         ttl,
		arbiterRole: arbiterRole,
		now:         time.Now,
	}
}

// GenerateAccessToken signs an HS256 token for userID.
func (m *TokenManager) GenerateAccessToken(userID string, roles []string) (string, error) {
	now := m.now()
	claims := UserClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Actor maps validated claims to the booking engine's caller identity.
func (m *TokenManager) Actor(claims *UserClaims) models.Actor {
	return models.Actor{
		UserID:    claims.Subject,
		IsArbiter: m.arbiterRole != "" && slices.Contains(claims.Roles, m.arbiterRole),
	}
}
