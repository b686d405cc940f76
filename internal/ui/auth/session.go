// Пакет auth — хранение сессии Dashboard в браузере и проверка
// токенов публичных ссылок.
// Сессия сжимается zstd, шифруется AES-256-GCM и лежит в одном или
// нескольких cookie: teamdesk_session, teamdesk_session_1, ...
package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
)

// Имя cookie для зашифрованной сессии.
const SessionCookieName = "teamdesk_session"

const (
	// maxCookieValueLen — предел значения одного cookie с запасом под атрибуты
	// (браузеры режут на 4096).
	maxCookieValueLen = 3800
	// maxCookieChunks — сколько cookie может занять одна сессия.
	maxCookieChunks = 4
	// maxPlaintextLen — предел распакованной сессии.
	maxPlaintextLen = 1 << 20
)

// ErrCookieTooLarge — сессия не помещается в maxCookieChunks cookie.
// Оборачивает session.ErrStorageFull.
var ErrCookieTooLarge = fmt.Errorf("сессия превышает допустимый размер cookie: %w", session.ErrStorageFull)

// chunkName — имя i-го cookie сессии.
func chunkName(i int) string {
	if i == 0 {
		return SessionCookieName
	}
	return SessionCookieName + "_" + strconv.Itoa(i)
}

// CookieStore — шифрование пространства сессии в HTTP cookie через AES-256-GCM.
type CookieStore struct {
	// gcm — AEAD cipher для шифрования/дешифрования.
	gcm cipher.AEAD
	// secure — использовать Secure flag для cookie (true для HTTPS).
	secure bool
	// maxAge — время жизни cookie.
	maxAge time.Duration
	// EncodeAll и DecodeAll безопасны для конкурентных вызовов.
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCookieStore создаёт хранилище сессий в cookie.
// key — 32-байтовый ключ (base64) или произвольная строка (хешируется SHA-256).
// Если key пустой — генерируется случайный ключ (сессии не переживают рестарт).
func NewCookieStore(key string, secure bool, maxAge time.Duration) (*CookieStore, error) {
	var keyBytes []byte

	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			keyBytes = sha256Key(key)
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxPlaintextLen))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd decoder: %w", err)
	}

	return &CookieStore{
		gcm:     gcm,
		secure:  secure,
		maxAge:  maxAge,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Encrypt сжимает и шифрует записи сессии, возвращает base64-строку.
func (cs *CookieStore) Encrypt(entries map[string]string) (string, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}
	plaintext := cs.encoder.EncodeAll(raw, nil)

	// Уникальный nonce для каждого шифрования
	nonce := make([]byte, cs.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	ciphertext := cs.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt дешифрует base64-строку обратно в записи сессии.
func (cs *CookieStore) Decrypt(encrypted string) (map[string]string, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := cs.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := cs.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}
	raw, err := cs.decoder.DecodeAll(plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки сессии: %w", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}
	if entries == nil {
		entries = map[string]string{}
	}
	return entries, nil
}

// StorageFor возвращает пространство сессии текущего запроса.
// Чтение — из cookie запроса, запись — заменой Set-Cookie в ответе.
func (cs *CookieStore) StorageFor(w http.ResponseWriter, r *http.Request) session.Storage {
	return &cookieStorage{store: cs, w: w, r: r}
}

// cookieStorage — session.Storage одного HTTP-запроса.
// Последнее записанное состояние кэшируется: повторные Apply в рамках
// запроса накладываются друг на друга, а не на исходные cookie.
type cookieStorage struct {
	store   *CookieStore
	w       http.ResponseWriter
	r       *http.Request
	current map[string]string
	// written — сколько частей выставлено в ответе последней записью.
	written int
}

// readChunks склеивает части сессии из запроса. Чтение идёт до первой
// отсутствующей части.
func (s *cookieStorage) readChunks() (string, error) {
	first, err := s.r.Cookie(chunkName(0))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(first.Value)
	for i := 1; i < maxCookieChunks; i++ {
		c, err := s.r.Cookie(chunkName(i))
		if err != nil {
			break
		}
		b.WriteString(c.Value)
	}
	return b.String(), nil
}

func (s *cookieStorage) Load(_ context.Context) (map[string]string, error) {
	if s.current != nil {
		return maps.Clone(s.current), nil
	}
	value, err := s.readChunks()
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			s.current = map[string]string{}
			return map[string]string{}, nil
		}
		return nil, err
	}
	entries, err := s.store.Decrypt(value)
	if err != nil {
		// Чужой или повреждённый cookie — далее пишем поверх пустого пространства
		s.current = map[string]string{}
		return nil, err
	}
	s.current = entries
	return maps.Clone(entries), nil
}

func (s *cookieStorage) Apply(ctx context.Context, m session.Mutation) error {
	if m.IsEmpty() {
		return nil
	}
	if s.current == nil {
		// Нечитаемый cookie при записи считается пустым
		_, _ = s.Load(ctx)
	}

	next := maps.Clone(s.current)
	maps.Copy(next, m.Set)
	for _, key := range m.Delete {
		delete(next, key)
	}

	if len(next) == 0 {
		s.expireFrom(0)
		s.current = next
		return nil
	}

	encrypted, err := s.store.Encrypt(next)
	if err != nil {
		return err
	}
	chunks := splitValue(encrypted, maxCookieValueLen)
	if len(chunks) > maxCookieChunks {
		return fmt.Errorf("%w: %d байт", ErrCookieTooLarge, len(encrypted))
	}

	for i, part := range chunks {
		replaceCookie(s.w, s.cookie(chunkName(i), part, int(s.store.maxAge.Seconds())))
	}
	// Части прежней, более длинной сессии удаляются
	s.expireFrom(len(chunks))
	s.written = len(chunks)
	s.current = next
	return nil
}

func (s *cookieStorage) Clear(_ context.Context) error {
	s.expireFrom(0)
	s.current = map[string]string{}
	return nil
}

// expireFrom удаляет в браузере части сессии начиная с from: те, что
// пришли в запросе или были выставлены в этом ответе. При from=0 основной
// cookie удаляется всегда.
func (s *cookieStorage) expireFrom(from int) {
	for i := from; i < maxCookieChunks; i++ {
		name := chunkName(i)
		if i > 0 && i >= s.written {
			if _, err := s.r.Cookie(name); err != nil {
				continue
			}
		}
		replaceCookie(s.w, s.cookie(name, "", -1))
	}
	if from < s.written {
		s.written = from
	}
}

func (s *cookieStorage) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.store.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// splitValue режет строку на части не длиннее size.
func splitValue(v string, size int) []string {
	parts := make([]string, 0, len(v)/size+1)
	for len(v) > size {
		parts = append(parts, v[:size])
		v = v[size:]
	}
	return append(parts, v)
}

// replaceCookie заменяет ранее выставленный в ответе cookie с тем же именем.
func replaceCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	prefix := c.Name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(w, c)
}

// sha256Key хеширует строковый ключ в 32 bytes через SHA-256.
func sha256Key(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}
