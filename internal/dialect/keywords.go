package dialect

import (
	_ "embed"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var baseKeywordsYAML []byte

// baseKeywords maps a section (common or an engine name) to its entries.
var baseKeywords = mustParseBase(baseKeywordsYAML)

func mustParseBase(data []byte) map[string]map[string]string {
	var sections map[string]map[string]string
	if err := yaml.Unmarshal(data, &sections); err != nil {
		panic("dialect: embedded keywords.yaml: " + err.Error())
	}
	return sections
}

// BaseKeywords returns the built-in dictionary for engine: the common section
// overlaid with the engine's own entries. Keys are lowercase.
func BaseKeywords(engine string) map[string]string {
	out := make(map[string]string)
	merge(out, baseKeywords["common"])
	merge(out, baseKeywords[engine])
	return out
}

// LoadKeywords reads a pack keyword file: a flat mapping of keyword to help
// text.
func LoadKeywords(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kw map[string]string
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}
	out := make(map[string]string, len(kw))
	merge(out, kw)
	return out, nil
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[strings.ToLower(k)] = v
	}
}
