package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"karton/models"
	"karton/pkg/bootstrap"
)

func RegisterOperator(username, password, displayName, role string) (models.Operator, error) {
	return bootstrap.CreateOperator(db, username, password, displayName, role)
}

func Authenticate(username, password string) (models.Operator, error) {
	return bootstrap.Authenticate(db, username, password)
}

// issueAccessToken signs an HS256 token carrying the operator's name and role.
func issueAccessToken(op models.Operator) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": op.Username,
		"role":     op.Role.Name,
		"exp":      time.Now().Add(cfg.Auth.AccessTTL).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(operatorID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	rt := models.RefreshToken{OperatorID: operatorID, TokenHash: hashToken(token), ExpiresAt: time.Now().Add(cfg.Auth.RefreshTTL)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", hashToken(token)).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
