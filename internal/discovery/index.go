package discovery

import (
	"fmt"
	"strings"

	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
	"github.com/tidwall/gjson"
)

// ParseIndex parses an index.json document. Entries keep their order;
// repeated uris are dropped after the first occurrence.
func ParseIndex(raw []byte, logger *utils.Logger) (domain.ContentIndex, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("index: %w", domain.ErrInvalidJSON)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, fmt.Errorf("index: expected a JSON array, got %s", doc.Type)
	}

	entries := doc.Array()
	index := make(domain.ContentIndex, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		uri := domain.ResourceName(strings.TrimSpace(entry.Get("uri").String()))
		if uri == "" {
			return nil, fmt.Errorf("index: entry %d has no uri", i)
		}
		if seen[uri] {
			if logger != nil {
				logger.Warn().Str("uri", uri).Msg("Duplicate uri in index, ignoring")
			}
			continue
		}
		seen[uri] = true

		index = append(index, domain.PageSummary{
			URI:              uri,
			IntendedTemplate: entry.Get("intendedTemplate").String(),
			Raw:              []byte(entry.Raw),
		})
	}
	return index, nil
}
