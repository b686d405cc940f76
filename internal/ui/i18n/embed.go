package i18n

import "embed"

// LocaleFS — встроенные JSON-каталоги переводов, по одному на язык.
//
//go:embed locales/*.json
var LocaleFS embed.FS
