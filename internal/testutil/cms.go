// Package testutil provides a fake CMS API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Page describes one page of a seeded site
type Page struct {
	URI      string
	Template string
	// Items are embedded into section pages
	Items []string
}

// FakeCMS serves JSON documents by path and counts requests
type FakeCMS struct {
	*httptest.Server

	mu     sync.Mutex
	docs   map[string]string
	status map[string]int
	fails  map[string]failure
	hits   map[string]int
}

type failure struct {
	code  int
	times int
}

// NewFakeCMS starts a fake CMS that is closed when the test ends
func NewFakeCMS(t *testing.T) *FakeCMS {
	t.Helper()

	cms := &FakeCMS{
		docs:   make(map[string]string),
		status: make(map[string]int),
		fails:  make(map[string]failure),
		hits:   make(map[string]int),
	}
	cms.Server = httptest.NewServer(http.HandlerFunc(cms.serve))
	t.Cleanup(cms.Close)
	return cms
}

func (c *FakeCMS) serve(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.hits[r.URL.Path]++
	body, ok := c.docs[r.URL.Path]
	code := c.status[r.URL.Path]
	if f, failing := c.fails[r.URL.Path]; failing && code == 0 {
		code = f.code
		f.times--
		if f.times <= 0 {
			delete(c.fails, r.URL.Path)
		} else {
			c.fails[r.URL.Path] = f
		}
	}
	c.mu.Unlock()

	if code != 0 {
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"error":%d}`, code)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// Set registers body under path, e.g. "/de/home.json"
func (c *FakeCMS) Set(path, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[path] = body
}

// SetJSON registers the JSON encoding of v under path
func (c *FakeCMS) SetJSON(path string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	c.Set(path, string(data))
}

// SetStatus makes path answer with code; 0 restores normal serving
func (c *FakeCMS) SetStatus(path string, code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if code == 0 {
		delete(c.status, path)
		return
	}
	c.status[path] = code
}

// FailNext makes the next times requests for path answer with code
func (c *FakeCMS) FailNext(path string, code, times int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fails[path] = failure{code: code, times: times}
}

// Remove unregisters path so it answers 404
func (c *FakeCMS) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, path)
}

// Hits returns how often path was requested
func (c *FakeCMS) Hits(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[path]
}

// TotalHits returns the number of requests served
func (c *FakeCMS) TotalHits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.hits {
		total += n
	}
	return total
}

// ResetHits clears the request counters
func (c *FakeCMS) ResetHits() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = make(map[string]int)
}

// SeedSite registers global, index and page documents for the default
// language (unprefixed and prefixed) and every translation. Page documents
// carry the language so tests can tell the trees apart.
func (c *FakeCMS) SeedSite(defaultLang string, translations []string, pages []Page) {
	langs := make([]map[string]string, 0, len(translations))
	for _, code := range translations {
		langs = append(langs, map[string]string{"code": code, "name": strings.ToUpper(code)})
	}

	global := map[string]any{
		"defaultLang":         map[string]string{"code": defaultLang, "name": strings.ToUpper(defaultLang)},
		"translations":        langs,
		"frontendUrl":         "https://www.example.com",
		"prefixDefaultLocale": false,
	}

	seed := func(prefix, lang string) {
		c.SetJSON(prefix+"/global.json", global)

		index := make([]map[string]string, 0, len(pages))
		for _, p := range pages {
			index = append(index, map[string]string{"uri": p.URI, "intendedTemplate": p.Template})
		}
		c.SetJSON(prefix+"/index.json", index)

		for _, p := range pages {
			c.Set(prefix+"/"+p.URI+".json", PageBody(p, lang))
		}
	}

	seed("", defaultLang)
	seed("/"+defaultLang, defaultLang)
	for _, code := range translations {
		seed("/"+code, code)
	}
}

// PageBody renders the document SeedSite serves for p in lang. Keys keep a
// fixed, unsorted order like the CMS output.
func PageBody(p Page, lang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `{"uri":%q,"title":%q,"lang":%q,"intendedTemplate":%q`, p.URI, strings.ToUpper(p.URI)+" "+lang, lang, p.Template)
	if len(p.Items) > 0 {
		items, _ := json.Marshal(p.Items)
		fmt.Fprintf(&b, `,"items":%s`, items)
	}
	b.WriteString("}")
	return b.String()
}
