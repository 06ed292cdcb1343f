package notify

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SubscriptionTokenTTL bounds how long a push-transport connection token is accepted.
const SubscriptionTokenTTL = 24 * time.Hour

var ErrInvalidSubscriptionToken = errors.New("invalid subscription token")

// SubscriptionToken signs an HS256 token naming the recipient as subject.
func SubscriptionToken(secret []byte, recipientID int64, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(recipientID, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(SubscriptionTokenTTL)),
	})
	return token.SignedString(secret)
}

// ParseSubscriptionToken returns the recipient id the token was issued for.
func ParseSubscriptionToken(secret []byte, tokenString string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, ErrInvalidSubscriptionToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidSubscriptionToken
	}
	return id, nil
}
