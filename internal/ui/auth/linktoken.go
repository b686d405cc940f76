package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Ошибки проверки токена публичной ссылки.
var (
	// ErrLinkTokenMissing — в ссылке нет токена.
	ErrLinkTokenMissing = errors.New("токен ссылки отсутствует")
	// ErrLinkTokenInvalid — подпись, срок или формат токена неверны.
	ErrLinkTokenInvalid = errors.New("токен ссылки невалиден или просрочен")
	// ErrLinkTokenScope — токен выдан для другой задачи.
	ErrLinkTokenScope = errors.New("токен ссылки выдан для другого ресурса")
)

// LinkClaims — claims токена из письма со ссылкой на задачу.
type LinkClaims struct {
	jwt.RegisteredClaims
	// TaskID — задача, к которой даёт доступ ссылка (опционально).
	TaskID *int64 `json:"taskId,omitempty"`
	// UserID — получатель письма.
	UserID int64 `json:"userId,omitempty"`
}

// LinkVerifier — проверка токенов публичных ссылок через JWKS backend.
// Без JWKS подпись не проверяется: токен лишь разбирается и передаётся
// backend, который выполняет окончательную проверку.
type LinkVerifier struct {
	jwks   keyfunc.Keyfunc
	issuer string
	leeway time.Duration
	logger *slog.Logger
}

// NewLinkVerifier создаёт проверку с JWKS, загружаемым по jwksURL
// и обновляемым с интервалом refreshInterval. Пустой jwksURL отключает
// проверку подписи.
func NewLinkVerifier(
	jwksURL string,
	issuer string,
	refreshInterval time.Duration,
	httpTimeout time.Duration,
	logger *slog.Logger,
) (*LinkVerifier, error) {
	logger = logger.With(slog.String("component", "link_verifier"))
	if jwksURL == "" {
		logger.Warn("DM_LINK_JWKS_URL не задан, подпись токенов ссылок не проверяется")
		return &LinkVerifier{issuer: issuer, leeway: 30 * time.Second, logger: logger}, nil
	}

	// NoErrorReturnFirstHTTPReq — стартуем, даже если backend ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: httpTimeout},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewLinkVerifierWithKeyfunc(k, issuer, logger), nil
}

// NewLinkVerifierWithKeyfunc создаёт проверку с готовой keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewLinkVerifierWithKeyfunc(kf keyfunc.Keyfunc, issuer string, logger *slog.Logger) *LinkVerifier {
	return &LinkVerifier{
		jwks:   kf,
		issuer: issuer,
		leeway: 30 * time.Second,
		logger: logger,
	}
}

// Verify проверяет токен ссылки на задачу taskID.
// Возвращает claims токена; сам токен далее используется как bearer.
func (v *LinkVerifier) Verify(ctx context.Context, token string, taskID int64) (*LinkClaims, error) {
	if token == "" {
		return nil, ErrLinkTokenMissing
	}

	claims := &LinkClaims{}
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	if v.jwks == nil {
		// Только разбор и проверка срока; подпись проверит backend
		if _, _, err := jwt.NewParser(opts...).ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLinkTokenInvalid, err)
		}
		if err := jwt.NewValidator(opts...).Validate(claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLinkTokenInvalid, err)
		}
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{"RS256", "ES256"}))
		parsed, err := jwt.ParseWithClaims(token, claims, v.jwks.KeyfuncCtx(ctx), opts...)
		if err != nil || !parsed.Valid {
			v.logger.Debug("Токен ссылки не прошёл проверку", slog.Any("error", err))
			return nil, fmt.Errorf("%w: %v", ErrLinkTokenInvalid, err)
		}
	}

	if claims.TaskID != nil && *claims.TaskID != taskID {
		return nil, fmt.Errorf("%w: задача %s", ErrLinkTokenScope, strconv.FormatInt(*claims.TaskID, 10))
	}
	return claims, nil
}
