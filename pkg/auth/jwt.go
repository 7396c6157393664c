package auth

import (
	"errors"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

var ErrInvalidToken = errors.New("invalid reconnect token")

// ReconnectClaims identify the seat a token holder may take back.
type ReconnectClaims struct {
	GameID   string      `json:"gameId"`
	Slot     domain.Slot `json:"slot"`
	Username string      `json:"username"`
	jwt.RegisteredClaims
}

// ReconnectTokens signs and verifies seat tokens handed out on join.
type ReconnectTokens struct {
	secret []byte
	ttl    time.Duration
	clock  quartz.Clock
}

// NewReconnectTokens returns a signer whose tokens expire after ttl.
// clock may be nil.
func NewReconnectTokens(secret string, ttl time.Duration, clock quartz.Clock) *ReconnectTokens {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &ReconnectTokens{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (r *ReconnectTokens) Issue(gameID string, slot domain.Slot, username string) (string, error) {
	now := r.clock.Now()
	claims := &ReconnectClaims{
		GameID:   gameID,
		Slot:     slot,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   gameID,
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}

func (r *ReconnectTokens) Parse(tokenString string) (*ReconnectClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ReconnectClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return r.secret, nil
	}, jwt.WithTimeFunc(r.clock.Now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ReconnectClaims)
	if !ok || !token.Valid || claims.GameID == "" || !claims.Slot.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
