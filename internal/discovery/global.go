package discovery

import (
	"strings"

	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
)

// ParseGlobal extracts the language configuration from a global.json
// document. A missing or empty defaultLang.code is an InvalidConfigError.
func ParseGlobal(raw []byte) (*domain.GlobalConfig, error) {
	if !gjson.ValidBytes(raw) {
		return nil, domain.NewInvalidConfigError("global.json", "not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, domain.NewInvalidConfigError("global.json", "expected a JSON object")
	}

	code := strings.TrimSpace(doc.Get("defaultLang.code").String())
	if code == "" {
		return nil, domain.NewInvalidConfigError("defaultLang.code", "missing or empty")
	}

	global := &domain.GlobalConfig{
		DefaultLanguage: domain.Language{
			Code: code,
			Name: doc.Get("defaultLang.name").String(),
		},
		FrontendURL:         doc.Get("frontendUrl").String(),
		PrefixDefaultLocale: doc.Get("prefixDefaultLocale").Bool(),
	}

	seen := map[string]bool{code: true}
	doc.Get("translations").ForEach(func(_, value gjson.Result) bool {
		lang := parseLanguage(value)
		if lang.Code == "" || seen[lang.Code] {
			return true
		}
		seen[lang.Code] = true
		global.Translations = append(global.Translations, lang)
		return true
	})

	return global, nil
}

// parseLanguage accepts {"code": "de", "name": "Deutsch"} as well as "de"
func parseLanguage(v gjson.Result) domain.Language {
	if v.Type == gjson.String {
		return domain.Language{Code: strings.TrimSpace(v.String())}
	}
	return domain.Language{
		Code: strings.TrimSpace(v.Get("code").String()),
		Name: v.Get("name").String(),
	}
}

// Languages returns the default language followed by the translations,
// de-duplicated, in CMS order.
func Languages(global *domain.GlobalConfig) []string {
	langs := []string{global.DefaultLanguage.Code}
	seen := map[string]bool{global.DefaultLanguage.Code: true}
	for _, t := range global.Translations {
		if t.Code == "" || seen[t.Code] {
			continue
		}
		seen[t.Code] = true
		langs = append(langs, t.Code)
	}
	return langs
}

// ValidateLanguageCode reports whether code is a well-formed BCP 47 tag
func ValidateLanguageCode(code string) error {
	_, err := language.Parse(code)
	return err
}

// WarnInvalidCodes logs languages whose code is not a BCP 47 tag. The CMS
// stays the source of truth, so they are still synced.
func WarnInvalidCodes(logger *utils.Logger, codes []string) {
	for _, code := range codes {
		if err := ValidateLanguageCode(code); err != nil {
			logger.Warn().Str("lang", code).Err(err).Msg("Language code is not a valid BCP 47 tag")
		}
	}
}
