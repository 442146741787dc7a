package roles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BusinessUnit is an entry in the business-unit directory.
type BusinessUnit struct {
	ID          string   `yaml:"id" json:"id"`
	DisplayName string   `yaml:"displayName" json:"displayName"`
	Keywords    []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Directory holds the data the resolver needs beyond the closed role set:
// business units and extra spellings for role names.
type Directory struct {
	BusinessUnits []BusinessUnit `yaml:"businessUnits" json:"businessUnits"`
	// RoleAliases maps an external role name to a role tag, e.g.
	// "catalog-reviewers": "product_admin".
	RoleAliases map[string]string `yaml:"roleAliases,omitempty" json:"roleAliases,omitempty"`
}

// LoadDirectory reads a directory from a YAML file.
// If the file does not exist, the default directory is returned.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDirectory(), nil
		}
		return nil, fmt.Errorf("read role directory: %w", err)
	}

	var dir Directory
	if err := yaml.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("parse role directory: %w", err)
	}
	if err := dir.Validate(); err != nil {
		return nil, err
	}
	return &dir, nil
}

// Validate checks that ids are present and unique and aliases name known roles.
func (d *Directory) Validate() error {
	seen := make(map[string]bool, len(d.BusinessUnits))
	for i, bu := range d.BusinessUnits {
		if bu.ID == "" {
			return fmt.Errorf("business unit %d: id is required", i)
		}
		if seen[bu.ID] {
			return fmt.Errorf("business unit %q: duplicate id", bu.ID)
		}
		seen[bu.ID] = true
	}
	for alias, target := range d.RoleAliases {
		if !Tag(target).Valid() {
			return fmt.Errorf("role alias %q: unknown role %q", alias, target)
		}
	}
	return nil
}

// DefaultDirectory returns the built-in business units.
func DefaultDirectory() *Directory {
	return &Directory{
		BusinessUnits: []BusinessUnit{
			{ID: "eng", DisplayName: "Engineering", Keywords: []string{"engineering", "platform engineering"}},
			{ID: "sales", DisplayName: "Sales", Keywords: []string{"sales", "revenue"}},
			{ID: "finance", DisplayName: "Finance", Keywords: []string{"finance", "accounting"}},
			{ID: "hr", DisplayName: "Human Resources", Keywords: []string{"human resources", "people"}},
			{ID: "marketing", DisplayName: "Marketing", Keywords: []string{"marketing"}},
			{ID: "support", DisplayName: "Customer Support", Keywords: []string{"support", "customer success"}},
		},
	}
}
