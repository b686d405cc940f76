package repository

import (
	"context"
	"fmt"
	"time"
)

// SessionEntry — модель записи из таблицы session_entries.
type SessionEntry struct {
	// Идентификатор браузерной сессии (UUID из cookie)
	SessionID string
	// Ключ пространства (user, token, roleContexts, selectedRoleContext)
	Key string
	// Значение (строка как есть)
	Value string
	// Время последнего обновления
	UpdatedAt time.Time
}

// SessionEntryRepository — интерфейс для таблицы session_entries.
type SessionEntryRepository interface {
	// List возвращает все записи сессии, не старше notBefore.
	List(ctx context.Context, sessionID string, notBefore time.Time) ([]SessionEntry, error)
	// Set создаёт или обновляет запись (upsert).
	Set(ctx context.Context, sessionID, key, value string) error
	// Delete удаляет перечисленные ключи сессии.
	Delete(ctx context.Context, sessionID string, keys []string) error
	// DeleteAll удаляет все записи сессии.
	DeleteAll(ctx context.Context, sessionID string) error
	// Touch продлевает жизнь всех записей сессии.
	Touch(ctx context.Context, sessionID string) error
	// PurgeExpired удаляет записи, не обновлявшиеся с before.
	// Возвращает число удалённых строк.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// sessionEntryRepo — реализация SessionEntryRepository.
type sessionEntryRepo struct {
	db DBTX
}

// NewSessionEntryRepository создаёт репозиторий записей сессий.
// db может быть как пулом, так и транзакцией (pgx.Tx).
func NewSessionEntryRepository(db DBTX) SessionEntryRepository {
	return &sessionEntryRepo{db: db}
}

// List возвращает записи сессии, отсортированные по ключу.
func (r *sessionEntryRepo) List(ctx context.Context, sessionID string, notBefore time.Time) ([]SessionEntry, error) {
	query := `
		SELECT session_id, key, value, updated_at
		FROM session_entries
		WHERE session_id = $1 AND updated_at >= $2
		ORDER BY key`

	rows, err := r.db.Query(ctx, query, sessionID, notBefore)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения session_entries[%s]: %w", sessionID, err)
	}
	defer rows.Close()

	var entries []SessionEntry
	for rows.Next() {
		var e SessionEntry
		if err := rows.Scan(&e.SessionID, &e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования session_entries: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации session_entries: %w", err)
	}
	return entries, nil
}

// Set создаёт или обновляет запись (INSERT ... ON CONFLICT DO UPDATE).
func (r *sessionEntryRepo) Set(ctx context.Context, sessionID, key, value string) error {
	query := `
		INSERT INTO session_entries (session_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, key) DO UPDATE
		SET value = EXCLUDED.value,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, sessionID, key, value); err != nil {
		return fmt.Errorf("ошибка сохранения session_entries[%s/%s]: %w", sessionID, key, err)
	}
	return nil
}

// Delete удаляет перечисленные ключи сессии.
func (r *sessionEntryRepo) Delete(ctx context.Context, sessionID string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	query := `DELETE FROM session_entries WHERE session_id = $1 AND key = ANY($2)`

	if _, err := r.db.Exec(ctx, query, sessionID, keys); err != nil {
		return fmt.Errorf("ошибка удаления session_entries[%s]: %w", sessionID, err)
	}
	return nil
}

// DeleteAll удаляет все записи сессии.
func (r *sessionEntryRepo) DeleteAll(ctx context.Context, sessionID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM session_entries WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("ошибка очистки session_entries[%s]: %w", sessionID, err)
	}
	return nil
}

// Touch обновляет updated_at всех записей сессии.
func (r *sessionEntryRepo) Touch(ctx context.Context, sessionID string) error {
	query := `UPDATE session_entries SET updated_at = NOW() WHERE session_id = $1`

	if _, err := r.db.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("ошибка продления session_entries[%s]: %w", sessionID, err)
	}
	return nil
}

// PurgeExpired удаляет устаревшие записи всех сессий.
func (r *sessionEntryRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM session_entries WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки устаревших session_entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
