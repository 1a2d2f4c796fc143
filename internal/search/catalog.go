package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/roles"
	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk form of the curated content, keyed by role:
//
//	admin:
//	  - title: Greenwood Cemetery
//	    description: Cemetery service location
//	    to: /admin/cemeteries
//	    keywords: cemetery location
type Catalog map[models.Role][]models.SearchEntry

// Validate checks that every role is known and every entry has a title and a
// target inside its role's base path.
func (c Catalog) Validate() error {
	for role, entries := range c {
		cfg, ok := roles.Lookup(role)
		if !ok {
			return fmt.Errorf("unknown role %q", role)
		}
		for i, e := range entries {
			err := validation.ValidateStruct(&e,
				validation.Field(&e.Title, validation.Required),
				validation.Field(&e.To, validation.Required,
					validation.By(underBase(cfg.BasePath))),
			)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", role, i, err)
			}
		}
	}
	return nil
}

func underBase(base string) validation.RuleFunc {
	return func(v any) error {
		s, _ := v.(string)
		if !strings.HasPrefix(s, base+"/") {
			return fmt.Errorf("must start with %s/", base)
		}
		return nil
	}
}

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// LoadCatalog reads and validates a YAML catalog. It also returns the file's checksum.
func LoadCatalog(path string) (Catalog, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("search: read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, "", fmt.Errorf("search: parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, "", fmt.Errorf("search: invalid catalog: %w", err)
	}
	return c, Sum(data), nil
}

// Load reads path into ix. It reports whether the content changed.
func (ix *Index) Load(path string) (bool, error) {
	c, sum, err := LoadCatalog(path)
	if err != nil {
		return false, err
	}
	return ix.Replace(c, sum), nil
}
