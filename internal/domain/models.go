package domain

import "strings"

// TemplateSection marks pages whose index entry embeds their child items.
const TemplateSection = "section"

// Language is a CMS language as it appears in global.json
type Language struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// GlobalConfig represents the site-wide settings document (global.json).
// It is fetched fresh on every run and never persisted on its own.
type GlobalConfig struct {
	DefaultLanguage     Language
	Translations        []Language
	FrontendURL         string
	PrefixDefaultLocale bool
}

// TranslationCodes returns the codes of all translations in CMS order
func (g *GlobalConfig) TranslationCodes() []string {
	codes := make([]string, 0, len(g.Translations))
	for _, t := range g.Translations {
		codes = append(codes, t.Code)
	}
	return codes
}

// PageSummary is a single entry of a content index
type PageSummary struct {
	URI              string
	IntendedTemplate string
	Raw              []byte
}

// IsSection reports whether the page embeds its children
func (p PageSummary) IsSection() bool {
	return p.IntendedTemplate == TemplateSection
}

// ContentIndex is the ordered list of pages published for one language
type ContentIndex []PageSummary

// URIs returns the page URIs in index order
func (c ContentIndex) URIs() []string {
	uris := make([]string, 0, len(c))
	for _, p := range c {
		uris = append(uris, p.URI)
	}
	return uris
}

// Pass describes one language walk of the orchestrator: which API prefix is
// fetched and which content directories receive the documents.
type Pass struct {
	// Language is the language code, empty for the unprefixed root pass
	Language string
	// Prefix is the URL path segment inserted after the API base, empty for root
	Prefix string
	// Destinations are directories relative to the content root, "" is the root itself
	Destinations []string
	// Default is true when the pass serves the default language
	Default bool
}

// Name returns a human readable label for logs
func (p Pass) Name() string {
	if p.Language == "" {
		return "root"
	}
	if len(p.Destinations) > 1 {
		return p.Language + "+root"
	}
	return p.Language
}

// ResourceName converts a page uri into the resource name used for URLs and
// file paths ("blog/post-1" stays, leading and trailing slashes are dropped).
func ResourceName(uri string) string {
	return strings.Trim(uri, "/")
}
