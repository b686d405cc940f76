// Пакет storage — серверные бэкенды долговременного хранилища сессий.
// Каждый бэкенд выдаёт отдельное пространство ключей на браузерную сессию.
package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
)

// Prometheus-метрики бэкендов.
var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_session_storage_loads_total",
		Help: "Количество чтений пространства сессии по результату (hit, miss, error).",
	}, []string{"backend", "result"})
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_session_storage_writes_total",
		Help: "Количество записей в пространство сессии по операции (apply, clear).",
	}, []string{"backend", "op"})
)

// Backend — источник пространств хранилища по идентификатору сессии.
type Backend interface {
	// Name — имя бэкенда для логов и метрик.
	Name() string
	// For возвращает пространство ключей сессии sessionID.
	For(sessionID string) session.Storage
}
