// Пакет static — встроенные статические ресурсы Dashboard UI.
// Раздаются по /static/* прямо из бинарника.
package static

import (
	"embed"
	"net/http"
)

//go:embed css/*.css
var content embed.FS

// FileSystem возвращает http.FileSystem для обработки запросов к /static/*.
func FileSystem() http.FileSystem {
	return http.FS(content)
}
