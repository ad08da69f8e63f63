// Package seed loads a YAML catalog of branches, users and titles into a
// running engine. It is the only path that can create the first admin.
package seed

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
)

// Catalog is the YAML document accepted by shelfctl seed.
type Catalog struct {
	Admin    UserEntry     `yaml:"admin"`
	Branches []BranchEntry `yaml:"branches"`
	Users    []UserEntry   `yaml:"users"`
	Titles   []TitleEntry  `yaml:"titles"`
}

// BranchEntry is referenced by Key from users and titles.
type BranchEntry struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	City    string `yaml:"city"`
	State   string `yaml:"state"`
	Zip     string `yaml:"zip"`
	Phone   string `yaml:"phone"`
	Email   string `yaml:"email"`
}

type UserEntry struct {
	Name   string     `yaml:"name"`
	Email  string     `yaml:"email"`
	Role   enums.Role `yaml:"role"`
	Branch string     `yaml:"branch"`
}

type TitleEntry struct {
	Title           string              `yaml:"title"`
	Author          string              `yaml:"author"`
	ISBN            string              `yaml:"isbn"`
	Publisher       string              `yaml:"publisher"`
	PublicationYear int                 `yaml:"publication_year"`
	Category        string              `yaml:"category"`
	Description     string              `yaml:"description"`
	Location        string              `yaml:"location"`
	Branch          string              `yaml:"branch"`
	Copies          int                 `yaml:"copies"`
	Condition       enums.CopyCondition `yaml:"condition"`
}

// Parse decodes a catalog and checks its cross references. Unknown keys are
// rejected so typos do not silently drop data.
func Parse(r io.Reader) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return Catalog{}, fmt.Errorf("catalog is empty")
		}
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate reports the first structural problem in the catalog.
func (c Catalog) Validate() error {
	keys := make(map[string]struct{}, len(c.Branches))
	for i, b := range c.Branches {
		key := strings.TrimSpace(b.Key)
		if key == "" {
			return fmt.Errorf("branches[%d]: key is required", i)
		}
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("branches[%d]: name is required", i)
		}
		if _, dup := keys[key]; dup {
			return fmt.Errorf("branches[%d]: duplicate key %q", i, key)
		}
		keys[key] = struct{}{}
	}

	if strings.TrimSpace(c.Admin.Email) == "" {
		return fmt.Errorf("admin.email is required")
	}
	if c.Admin.Role != "" && c.Admin.Role != enums.RoleAdmin {
		return fmt.Errorf("admin.role must be admin, got %q", c.Admin.Role)
	}
	if _, ok := keys[c.Admin.Branch]; !ok {
		return fmt.Errorf("admin.branch %q is not a declared branch", c.Admin.Branch)
	}

	for i, u := range c.Users {
		if _, ok := keys[u.Branch]; !ok {
			return fmt.Errorf("users[%d]: branch %q is not a declared branch", i, u.Branch)
		}
		if !u.Role.IsValid() {
			return fmt.Errorf("users[%d]: invalid role %q", i, u.Role)
		}
	}
	for i, t := range c.Titles {
		if _, ok := keys[t.Branch]; !ok {
			return fmt.Errorf("titles[%d]: branch %q is not a declared branch", i, t.Branch)
		}
		if t.Copies < 0 {
			return fmt.Errorf("titles[%d]: copies must not be negative", i)
		}
		if t.Condition != "" && !t.Condition.IsValid() {
			return fmt.Errorf("titles[%d]: invalid condition %q", i, t.Condition)
		}
	}
	return nil
}
