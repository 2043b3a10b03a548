// Package frameworks holds the catalog of compliance frameworks a document can be mapped against.
package frameworks

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed frameworks.yaml
var defaultCatalog []byte

// CoreKeys are the frameworks mapped when a request names none
var CoreKeys = []string{"ISO27001", "SOC2", "NIST", "CIS", "GDPR", "HIPAA"}

var (
	ErrEmptyCatalog = errors.New("framework catalog has no entries")
	ErrDuplicateKey = errors.New("duplicate framework key")
)

// Framework is one catalog entry
type Framework struct {
	Key    string `yaml:"key" json:"key"`
	Name   string `yaml:"name" json:"name"`
	Region string `yaml:"-" json:"region"`
}

// Region groups frameworks for display
type Region struct {
	Name       string      `yaml:"name" json:"name"`
	Frameworks []Framework `yaml:"frameworks" json:"frameworks"`
}

type catalogFile struct {
	Regions []Region `yaml:"regions"`
}

// Catalog is an immutable, ordered set of frameworks
type Catalog struct {
	regions []Region
	keys    []string
	byKey   map[string]Framework
}

// Parse builds a catalog from YAML
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing framework catalog: %w", err)
	}

	c := &Catalog{byKey: make(map[string]Framework)}
	for _, region := range file.Regions {
		r := Region{Name: region.Name}
		for _, fw := range region.Frameworks {
			if fw.Key == "" {
				continue
			}
			if _, exists := c.byKey[fw.Key]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, fw.Key)
			}
			fw.Region = region.Name
			if fw.Name == "" {
				fw.Name = fw.Key
			}
			c.byKey[fw.Key] = fw
			c.keys = append(c.keys, fw.Key)
			r.Frameworks = append(r.Frameworks, fw)
		}
		if len(r.Frameworks) > 0 {
			c.regions = append(c.regions, r)
		}
	}

	if len(c.keys) == 0 {
		return nil, ErrEmptyCatalog
	}
	return c, nil
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in framework catalog: %v", err))
	}
	return c
}

// Load reads the catalog from path, or returns the built-in catalog when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading framework catalog: %w", err)
	}
	return Parse(data)
}

// Keys returns every key in catalog order
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Regions returns the catalog grouped by region
func (c *Catalog) Regions() []Region {
	return append([]Region(nil), c.regions...)
}

// Get returns the framework for key
func (c *Catalog) Get(key string) (Framework, bool) {
	fw, ok := c.byKey[key]
	return fw, ok
}

// Has reports whether key is in the catalog
func (c *Catalog) Has(key string) bool {
	_, ok := c.byKey[key]
	return ok
}

// Filter keeps the known keys of requested, deduplicated, in request order.
// Unknown keys are returned separately.
func (c *Catalog) Filter(requested []string) (known, unknown []string) {
	seen := make(map[string]bool, len(requested))
	for _, k := range requested {
		if seen[k] {
			continue
		}
		seen[k] = true
		if c.Has(k) {
			known = append(known, k)
		} else {
			unknown = append(unknown, k)
		}
	}
	return known, unknown
}

// SortedKeys returns the keys of m in lexical order
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
