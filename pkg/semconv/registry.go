// Registry of attribute groups loaded from YAML, indexed by group, attribute and domain
package semconv

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/andrewh/tracelens/third_party/openinference"
	"gopkg.in/yaml.v3"
)

type groupsFile struct {
	Groups []Group `yaml:"groups"`
}

// Registry holds indexed attribute groups.
type Registry struct {
	groups    []Group
	byGroupID map[string]*Group
	byAttrID  map[string]*Attribute
	byDomain  map[string][]*Group
	prefixes  map[string]bool // first key segment of every top-level attribute
	itemAttrs map[string]bool
}

// Load parses every YAML file in fsys into a Registry. A group's domain is
// the first directory of its file; "deprecated" directories are skipped.
func Load(fsys fs.FS) (*Registry, error) {
	var all []Group
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && d.Name() == "deprecated":
			return fs.SkipDir
		case d.IsDir() || !isYAML(p):
			return nil
		}
		groups, err := loadFile(fsys, p)
		if err != nil {
			return err
		}
		all = append(all, groups...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking filesystem: %w", err)
	}
	return buildRegistry(all), nil
}

func loadFile(fsys fs.FS, p string) ([]Group, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	defer f.Close()

	var gf groupsFile
	if err := yaml.NewDecoder(f).Decode(&gf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}
	domain := domainOf(p)
	for i := range gf.Groups {
		gf.Groups[i].domain = domain
	}
	return gf.Groups, nil
}

func isYAML(p string) bool {
	ext := path.Ext(p)
	return ext == ".yaml" || ext == ".yml"
}

// LoadEmbedded loads the bundled OpenInference model.
func LoadEmbedded() (*Registry, error) {
	sub, err := fs.Sub(openinference.ModelFS, "model")
	if err != nil {
		return nil, fmt.Errorf("accessing embedded model: %w", err)
	}
	return Load(sub)
}

// Group returns the group with the given ID, or nil.
func (r *Registry) Group(id string) *Group {
	return r.byGroupID[id]
}

// Attribute returns the attribute with the given ID, or nil.
func (r *Registry) Attribute(id string) *Attribute {
	return r.byAttrID[id]
}

// ItemGroup returns the group describing the items of an object[] attribute, or nil.
func (r *Registry) ItemGroup(attr *Attribute) *Group {
	if attr == nil || attr.Type.Value != TypeObjectList {
		return nil
	}
	return r.byGroupID[attr.Items]
}

// Domain returns all groups of the given domain.
func (r *Registry) Domain(name string) []*Group {
	return r.byDomain[name]
}

// Domains returns the sorted domain names.
func (r *Registry) Domains() []string {
	domains := make([]string, 0, len(r.byDomain))
	for d := range r.byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// Groups returns all groups in load order.
func (r *Registry) Groups() []Group {
	return r.groups
}

// Governs reports whether the registry defines attributes under the first
// segment of key. Keys outside every known namespace are not checked.
func (r *Registry) Governs(key string) bool {
	first, _, _ := strings.Cut(key, ".")
	return r.prefixes[first]
}

// Merge combines two registries into a new one. Groups from other come after
// groups from r, so duplicate IDs in other take precedence.
func (r *Registry) Merge(other *Registry) *Registry {
	combined := make([]Group, 0, len(r.groups)+len(other.groups))
	for _, src := range [][]Group{r.groups, other.groups} {
		for _, g := range src {
			g.Attributes = append([]Attribute(nil), g.Attributes...)
			combined = append(combined, g)
		}
	}
	return buildRegistry(combined)
}

func buildRegistry(groups []Group) *Registry {
	r := &Registry{
		groups:    groups,
		byGroupID: make(map[string]*Group, len(groups)),
		byAttrID:  make(map[string]*Attribute, len(groups)*4),
		byDomain:  make(map[string][]*Group),
		prefixes:  make(map[string]bool),
		itemAttrs: make(map[string]bool),
	}

	for i := range r.groups {
		g := &r.groups[i]
		r.byGroupID[g.ID] = g
		if g.domain != "" {
			r.byDomain[g.domain] = append(r.byDomain[g.domain], g)
		}
		for j := range g.Attributes {
			attr := &g.Attributes[j]
			if attr.ID == "" || attr.Ref != "" {
				continue
			}
			r.byAttrID[attr.ID] = attr
			if g.IsItem() {
				r.itemAttrs[attr.ID] = true
				continue
			}
			first, _, _ := strings.Cut(attr.ID, ".")
			r.prefixes[first] = true
		}
	}

	// References resolve against the complete index, so order of files does not matter.
	for i := range r.groups {
		for j := range r.groups[i].Attributes {
			if attr := &r.groups[i].Attributes[j]; attr.Ref != "" {
				resolveRef(attr, r.byAttrID)
			}
		}
	}
	return r
}

// resolveRef fills a ref attribute from its definition. Brief and Note on the
// ref win when set; the requirement level always comes from the ref.
func resolveRef(attr *Attribute, index map[string]*Attribute) {
	def, ok := index[attr.Ref]
	if !ok {
		attr.ID = attr.Ref
		return
	}
	attr.ID = def.ID
	attr.Type = def.Type
	attr.Items = def.Items
	attr.Stability = def.Stability
	attr.Examples = def.Examples
	attr.Deprecated = def.Deprecated
	if attr.Brief == "" {
		attr.Brief = def.Brief
	}
	if attr.Note == "" {
		attr.Note = def.Note
	}
}

func domainOf(p string) string {
	dir, _, found := strings.Cut(p, "/")
	if !found {
		return ""
	}
	return dir
}
