// Package auth токены игроков клуба. Токены выпускает внешняя часть клуба;
// здесь они только проверяются и, для тестов и ссылок привязки, выпускаются.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/Freeeeeet/club_league/internal/model"
)

// Имена claims
const (
	claimUserID = "user_id"
	claimRole   = "role"

	RoleAdmin  = "admin"
	RolePlayer = "player"
)

var ErrInvalidToken = errors.New("invalid token")

type Tokens struct {
	secret []byte
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

// Issue подписывает HS256 токен для actor; ttl = 0 - без срока действия
func (t *Tokens) Issue(actor model.Actor, ttl time.Duration) (string, error) {
	role := RolePlayer
	if actor.Admin {
		role = RoleAdmin
	}
	claims := jwt.MapClaims{
		claimUserID: actor.ID.String(),
		claimRole:   role,
		"iat":       time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись и срок действия и возвращает actor из claims
func (t *Tokens) Parse(raw string) (model.Actor, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return model.Actor{}, ErrInvalidToken
	}

	rawID, _ := claims[claimUserID].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: missing or malformed %s claim", ErrInvalidToken, claimUserID)
	}

	role, _ := claims[claimRole].(string)
	switch role {
	case RoleAdmin, RolePlayer:
	default:
		return model.Actor{}, fmt.Errorf("%w: invalid role %q", ErrInvalidToken, role)
	}

	return model.Actor{ID: id, Admin: role == RoleAdmin}, nil
}
