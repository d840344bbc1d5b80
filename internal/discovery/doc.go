// Package discovery turns the CMS site configuration into the list of
// language passes a sync walks, and parses the per-language content index.
//
// The CMS publishes:
//
//	{base}/global.json          site settings, default language, translations
//	{base}/index.json           page index of the default language
//	{base}/{lang}/global.json   the same documents per language
//	{base}/{lang}/index.json
//	{base}/{lang}/{uri}.json    one document per page
//
// Every default-language resource has two canonical destinations in the
// content tree: the content root and the /{default}/ subtree.
package discovery
