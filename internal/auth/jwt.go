package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nurpe/lensbook/internal/model"
)

// Parser validates HS256 access tokens and resolves them into principals.
type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (p *Parser) Parse(token string) (model.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Principal{}, fmt.Errorf("empty token")
	}

	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return model.Principal{}, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return model.Principal{}, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("invalid subject: %w", err)
	}

	role, err := parseRole(claims.Role)
	if err != nil {
		return model.Principal{}, err
	}

	return model.Principal{UserID: userID, Role: role}, nil
}

func parseRole(raw string) (model.Role, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CLIENT":
		return model.RoleClient, nil
	case "PHOTOGRAPHER":
		return model.RolePhotographer, nil
	case "ADMIN":
		return model.RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}
