package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// documentCacheSize bounds the shared parse cache. Extends chains re-read the
// same base documents across profiles (Check loads every profile), so parsed
// documents are memoized by path and invalidated on mtime/size change.
const documentCacheSize = 64

type cachedDocument struct {
	modTime int64
	size    int64
	doc     *Document
}

type documentCache struct {
	lru *lru.Cache[string, cachedDocument]
}

func newDocumentCache(size int) *documentCache {
	c, err := lru.New[string, cachedDocument](size)
	if err != nil {
		panic(err) // only fails for size <= 0
	}
	return &documentCache{lru: c}
}

var defaultCache = newDocumentCache(documentCacheSize)

// parserFor picks the document parser by file extension. The native profile
// format is the default; YAML and JSON documents with the same top-level
// profile layout are accepted too.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return kyaml.Parser()
	case ".json":
		return kjson.Parser()
	default:
		return NewParser()
	}
}

// load reads and parses the document at path, consulting the cache first.
func (c *documentCache) load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("settings document %q: %w", path, err)
	}
	if cached, ok := c.lru.Get(path); ok &&
		cached.modTime == info.ModTime().UnixNano() && cached.size == info.Size() {
		return cached.doc, nil
	}

	raw, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("settings document %q: %w", path, err)
	}
	top, err := parserFor(path).Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("settings document %q: %w", path, err)
	}
	doc, err := newDocument(top)
	if err != nil {
		return nil, fmt.Errorf("settings document %q: %w", path, err)
	}
	doc.Path = path

	c.lru.Add(path, cachedDocument{
		modTime: info.ModTime().UnixNano(),
		size:    info.Size(),
		doc:     doc,
	})
	return doc, nil
}
