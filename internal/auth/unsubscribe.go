package auth

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// UnsubscribeTokenManager issues and validates the signed tokens embedded in
// every nurture email's unsubscribe link. A token identifies exactly one
// lead; anyone holding the link can unsubscribe that lead and nothing else.
type UnsubscribeTokenManager struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
}

// NewUnsubscribeTokenManager builds a new manager.
func NewUnsubscribeTokenManager(secret, baseURL string, ttlDays int) *UnsubscribeTokenManager {
	if ttlDays <= 0 {
		ttlDays = 90
	}
	return &UnsubscribeTokenManager{
		secret:  []byte(secret),
		baseURL: baseURL,
		ttl:     time.Duration(ttlDays) * 24 * time.Hour,
	}
}

// UnsubscribeClaims describes the JWT payload.
type UnsubscribeClaims struct {
	LeadID string `json:"lead_id"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for the lead.
func (tm *UnsubscribeTokenManager) GenerateToken(leadID string) (string, error) {
	now := time.Now()
	claims := &UnsubscribeClaims{
		LeadID: leadID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   leadID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// UnsubscribeURL builds the full one-click link for the lead.
func (tm *UnsubscribeTokenManager) UnsubscribeURL(leadID string) (string, error) {
	token, err := tm.GenerateToken(leadID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s?token=%s", tm.baseURL, url.QueryEscape(token)), nil
}

// ParseToken validates a token and returns the lead id it names.
func (tm *UnsubscribeTokenManager) ParseToken(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &UnsubscribeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*UnsubscribeClaims)
	if !ok || !parsed.Valid || claims.LeadID == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.LeadID, nil
}
