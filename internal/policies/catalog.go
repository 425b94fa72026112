// Package policies loads the payer policy catalog from a YAML or JSON file.
package policies

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/prism-backend/internal/domain/review"
)

type fileFormat struct {
	Policies []review.Policy `yaml:"policies" json:"policies"`
}

// Catalog is a read-only set of policies keyed by id.
type Catalog struct {
	byID  map[string]review.Policy
	order []string
}

func NewCatalog(policies []review.Policy) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]review.Policy, len(policies))}
	for _, p := range policies {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("policy without id (name %q)", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate policy id %q", p.ID)
		}
		if strings.TrimSpace(p.Name) == "" {
			p.Name = p.ID
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Load reads path; .json files are decoded as JSON, anything else as YAML.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy catalog: %w", err)
	}
	var f fileFormat
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &f)
	default:
		err = yaml.Unmarshal(raw, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode policy catalog %s: %w", path, err)
	}
	return NewCatalog(f.Policies)
}

func (c *Catalog) Get(id string) (review.Policy, bool) {
	if c == nil {
		return review.Policy{}, false
	}
	p, ok := c.byID[strings.TrimSpace(id)]
	return p, ok
}

// List returns every policy ordered by id.
func (c *Catalog) List() []review.Policy {
	if c == nil {
		return nil
	}
	out := make([]review.Policy, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byID)
}
