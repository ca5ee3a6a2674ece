package utils

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var JWTSecret []byte

func init() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Default secret hanya untuk development
		secret = "DashboardSecretKey1945"
	}
	JWTSecret = []byte(secret)
}

// SetJWTSecret -> override secret dari config (dipanggil di main setelah .env dibaca)
func SetJWTSecret(secret string) {
	if secret != "" {
		JWTSecret = []byte(secret)
	}
}

// DashboardClaims -> claim yang dibawa token dashboard. Token diterbitkan oleh
// layanan auth di luar modul ini; di sini hanya diverifikasi.
type DashboardClaims struct {
	UserID     string   `json:"user_id"`
	Role       string   `json:"role"`
	Businesses []string `json:"businesses"`
	jwt.RegisteredClaims
}

// CanAccess -> admin boleh semua business, role lain hanya yang ada di claim
func (c *DashboardClaims) CanAccess(businessID string) bool {
	if c.Role == "admin" {
		return true
	}
	for _, b := range c.Businesses {
		if b == businessID {
			return true
		}
	}
	return false
}

func GenerateToken(userID, role string, businesses []string, ttl time.Duration) (string, error) {
	claims := &DashboardClaims{
		UserID:     userID,
		Role:       role,
		Businesses: businesses,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "RestaurantDashboard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(JWTSecret)
	if err != nil {
		ErrorLogger.Errorf("Error generating token: %v", err)
		return "", err
	}
	return tokenString, nil
}

func ParseToken(tokenString string) (*DashboardClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DashboardClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return JWTSecret, nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*DashboardClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, errors.New("invalid user ID in token")
	}

	return claims, nil
}
