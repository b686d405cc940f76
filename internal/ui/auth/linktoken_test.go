package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKeyID  = "test-key-dm"
	testIssuer = "https://api.teamdesk.test"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	return data
}

func newTestVerifier(t *testing.T, key *rsa.PrivateKey) *LinkVerifier {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewLinkVerifierWithKeyfunc(kf, testIssuer, testLogger())
}

// signLinkToken подписывает токен ссылки на задачу taskID.
func signLinkToken(t *testing.T, key *rsa.PrivateKey, taskID int64, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":    "42",
		"iss":    testIssuer,
		"taskId": taskID,
		"userId": 42,
		"exp":    jwt.NewNumericDate(exp),
		"iat":    jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLinkVerifier_ValidToken(t *testing.T) {
	key := generateTestKey(t)
	v := newTestVerifier(t, key)

	claims, err := v.Verify(context.Background(), signLinkToken(t, key, 15, time.Now().Add(time.Hour)), 15)
	if err != nil {
		t.Fatalf("Verify() ошибка: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, ожидается 42", claims.UserID)
	}
	if claims.TaskID == nil || *claims.TaskID != 15 {
		t.Errorf("TaskID = %v, ожидается 15", claims.TaskID)
	}
}

func TestLinkVerifier_Rejects(t *testing.T) {
	key := generateTestKey(t)
	other := generateTestKey(t)
	v := newTestVerifier(t, key)

	tests := []struct {
		name    string
		token   string
		taskID  int64
		wantErr error
	}{
		{"пустой токен", "", 1, ErrLinkTokenMissing},
		{"просроченный", signLinkToken(t, key, 1, time.Now().Add(-time.Hour)), 1, ErrLinkTokenInvalid},
		{"чужая подпись", signLinkToken(t, other, 1, time.Now().Add(time.Hour)), 1, ErrLinkTokenInvalid},
		{"мусор", "not-a-jwt", 1, ErrLinkTokenInvalid},
		{"другая задача", signLinkToken(t, key, 2, time.Now().Add(time.Hour)), 1, ErrLinkTokenScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token, tt.taskID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() = %v, ожидается %v", err, tt.wantErr)
			}
		})
	}
}

func TestLinkVerifier_WithoutJWKS(t *testing.T) {
	key := generateTestKey(t)
	v, err := NewLinkVerifier("", testIssuer, time.Minute, time.Second, testLogger())
	if err != nil {
		t.Fatalf("NewLinkVerifier() ошибка: %v", err)
	}

	// Подпись не проверяется, срок и issuer — проверяются
	if _, err := v.Verify(context.Background(), signLinkToken(t, key, 3, time.Now().Add(time.Hour)), 3); err != nil {
		t.Errorf("Verify() ошибка: %v", err)
	}
	_, err = v.Verify(context.Background(), signLinkToken(t, key, 3, time.Now().Add(-time.Hour)), 3)
	if !errors.Is(err, ErrLinkTokenInvalid) {
		t.Errorf("просроченный токен: %v, ожидается ErrLinkTokenInvalid", err)
	}
}
