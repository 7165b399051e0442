package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"roster-roast/internal/domain/ports/adapter"
)

// URLSigner mints and verifies short-lived HS256 tokens that grant access to
// a single blob. The API's file endpoint exchanges a valid token for bytes.
type URLSigner struct {
	secret  []byte
	baseURL string
}

type blobClaims struct {
	Key    string `json:"key"`
	Bucket string `json:"bucket"`
	jwt.RegisteredClaims
}

func NewURLSigner(secret, baseURL string) *URLSigner {
	return &URLSigner{secret: []byte(secret), baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *URLSigner) SignedURL(key string, bucket adapter.Bucket, ttl time.Duration) (string, error) {
	claims := blobClaims{
		Key:    key,
		Bucket: string(bucket),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign url token: %w", err)
	}
	return s.baseURL + "/api/v1/files?token=" + url.QueryEscape(token), nil
}

// Verify returns the key and bucket a token grants, or an error when the
// token is invalid or expired.
func (s *URLSigner) Verify(token string) (string, adapter.Bucket, error) {
	var claims blobClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", "", err
	}
	if !parsed.Valid || claims.Key == "" {
		return "", "", errors.New("invalid file token")
	}
	return claims.Key, adapter.Bucket(claims.Bucket), nil
}
