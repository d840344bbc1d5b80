package discovery

import (
	"path"

	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
)

// Passes enumerates the language passes of a sync in their required order:
// the unprefixed root pass, the prefixed default-language pass, then every
// translation in CMS order. With dedupeDefault the first two are merged into
// a single unprefixed fetch written to both destinations.
func Passes(global *domain.GlobalConfig, dedupeDefault bool) []domain.Pass {
	def := global.DefaultLanguage.Code

	var passes []domain.Pass
	if dedupeDefault {
		passes = append(passes, domain.Pass{
			Language:     def,
			Destinations: []string{"", def},
			Default:      true,
		})
	} else {
		passes = append(passes,
			domain.Pass{Destinations: []string{""}, Default: true},
			domain.Pass{Language: def, Prefix: def, Destinations: []string{def}, Default: true},
		)
	}

	for _, code := range Languages(global)[1:] {
		passes = append(passes, domain.Pass{
			Language:     code,
			Prefix:       code,
			Destinations: []string{code},
		})
	}
	return passes
}

// ResourceURL builds the API URL of a resource ("global", "index" or a
// page uri) for the given language prefix.
func ResourceURL(base, prefix, name string) string {
	return utils.JoinURL(base, prefix, domain.ResourceName(name)+".json")
}

// ResourcePath builds the content-tree path of a resource below dir
func ResourcePath(dir, name string) string {
	return path.Join(dir, domain.ResourceName(name)+".json")
}
