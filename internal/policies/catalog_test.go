package policies

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/prism-backend/internal/domain/review"
)

const sampleYAML = `
policies:
  - id: pol-mri
    name: Lumbar Spine MRI
    description: Advanced imaging of the lumbar spine
    criteria: |
      Six weeks of documented conservative therapy.
  - id: pol-bio
    name: Biologic DMARDs
`

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("len: want=2 got=%d", c.Len())
	}
	p, ok := c.Get("pol-mri")
	if !ok || p.Name != "Lumbar Spine MRI" || p.Criteria != "Six weeks of documented conservative therapy.\n" {
		t.Fatalf("unexpected policy: %+v", p)
	}
	list := c.List()
	if list[0].ID != "pol-bio" || list[1].ID != "pol-mri" {
		t.Fatalf("list order: %v", list)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.json")
	if err := os.WriteFile(path, []byte(`{"policies":[{"id":"pol-x","name":"X"}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := c.Get("pol-x"); !ok {
		t.Fatalf("pol-x missing")
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]review.Policy{{ID: "a"}, {ID: "a"}})
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if _, err := NewCatalog([]review.Policy{{Name: "no id"}}); err == nil {
		t.Fatalf("expected missing id error")
	}
}

func TestShippedCatalogLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "data", "policies.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() == 0 {
		t.Fatalf("shipped catalog is empty")
	}
}
