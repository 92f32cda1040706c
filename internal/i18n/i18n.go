package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const fallbackLang = "en"

// Bundle holds every loaded language map. Language files are flat YAML
// string maps named <code>.yaml under locales/.
type Bundle struct {
	languages map[string]map[string]string
}

// Load parses every locale file in fsys. The English bundle is mandatory
// since it is the fallback for missing keys.
func Load(fsys fs.FS) (*Bundle, error) {
	entries, err := fs.ReadDir(fsys, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	langs := make(map[string]map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		var m map[string]string
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		langs[strings.TrimSuffix(name, ".yaml")] = m
	}

	if _, ok := langs[fallbackLang]; !ok {
		return nil, fmt.Errorf("fallback locale %q missing", fallbackLang)
	}
	return &Bundle{languages: langs}, nil
}

// Codes returns the loaded language codes, sorted.
func (b *Bundle) Codes() []string {
	codes := make([]string, 0, len(b.languages))
	for code := range b.languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Has reports whether a language is loaded.
func (b *Bundle) Has(code string) bool {
	_, ok := b.languages[code]
	return ok
}

// Text resolves key in the given language, falling back to English and
// finally to the key itself, then applies fmt formatting when args are given.
func (b *Bundle) Text(lang, key string, args ...any) string {
	format, ok := b.languages[lang][key]
	if !ok {
		format, ok = b.languages[fallbackLang][key]
		if !ok {
			return key
		}
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
