package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/digimenu/checkoutflow/lib/myerrors"
	"github.com/digimenu/checkoutflow/lib/mytime"
)

// Identity is what a verified bearer token says about the customer.
type Identity struct {
	CustomerUID string
	Name        string
	Phone       string
}

//go:generate mockgen -source=identity.go -package identity -destination verifier_mock.go TokenVerifier
type TokenVerifier interface {
	Verify(c context.Context, tokenString string) (Identity, error)
}

type claims struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

type hmacVerifier struct {
	secret []byte
	nower  mytime.Nower
}

func NewVerifier(secret string, nower mytime.Nower) TokenVerifier {
	return &hmacVerifier{
		secret: []byte(secret),
		nower:  nower,
	}
}

func (v *hmacVerifier) Verify(c context.Context, tokenString string) (Identity, error) {
	parsed := claims{}
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.nower.Now))
	if err != nil {
		return Identity{}, myerrors.NewAuthenticationError(fmt.Errorf("error verifying token: %s", err))
	}
	if !token.Valid {
		return Identity{}, myerrors.NewAuthenticationError(fmt.Errorf("invalid token"))
	}
	if parsed.Subject == "" {
		return Identity{}, myerrors.NewAuthenticationError(fmt.Errorf("token without subject"))
	}

	return Identity{
		CustomerUID: parsed.Subject,
		Name:        parsed.Name,
		Phone:       parsed.Phone,
	}, nil
}
