// loader.go — загрузка каталогов переводов из embed.FS.
package i18n

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

// LoadFromFS загружает все каталоги locales/*.json: имя файла — код языка.
func LoadFromFS(bundle *Bundle, fsys fs.FS, logger *slog.Logger) error {
	files, err := fs.Glob(fsys, "locales/*.json")
	if err != nil {
		return fmt.Errorf("i18n: поиск каталогов: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("i18n: каталоги переводов не найдены")
	}

	for _, file := range files {
		lang := strings.TrimSuffix(path.Base(file), ".json")
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("i18n: не удалось прочитать %s: %w", file, err)
		}
		if err := bundle.LoadMessages(lang, data); err != nil {
			return err
		}
	}

	logger.Info("i18n каталоги загружены", slog.Int("languages", len(files)))
	return nil
}

// Load создаёт Bundle из встроенных каталогов.
// logger может быть nil.
func Load(logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bundle := NewBundle(logger)
	if err := LoadFromFS(bundle, LocaleFS, logger); err != nil {
		return nil, err
	}
	return bundle, nil
}
