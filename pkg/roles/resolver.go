package roles

import (
	"strings"
	"sync"
)

// Resolution is the outcome of resolving a caller's raw role names.
type Resolution struct {
	Roles Set
	// Unrecognized keeps the lower-cased names that matched nothing.
	// They are for logging only and grant nothing.
	Unrecognized []string
}

// Resolver normalizes role names and derives business units. It is safe for
// concurrent use; Update swaps the directory atomically.
type Resolver struct {
	mu      sync.RWMutex
	aliases map[string]Tag
	units   []BusinessUnit
}

// NewResolver creates a Resolver over dir. A nil dir uses DefaultDirectory.
func NewResolver(dir *Directory) *Resolver {
	r := &Resolver{}
	r.Update(dir)
	return r
}

// Update replaces the directory used for aliases and business units.
func (r *Resolver) Update(dir *Directory) {
	if dir == nil {
		dir = DefaultDirectory()
	}
	aliases := make(map[string]Tag, len(dir.RoleAliases))
	for name, target := range dir.RoleAliases {
		if t := Tag(target); t.Valid() {
			aliases[fold(name)] = t
		}
	}
	units := make([]BusinessUnit, len(dir.BusinessUnits))
	copy(units, dir.BusinessUnits)

	r.mu.Lock()
	r.aliases = aliases
	r.units = units
	r.mu.Unlock()
}

// fold lower-cases and trims raw and collapses separators to underscores so
// "Product Admin", "product-admin" and "PRODUCT_ADMIN" compare equal.
func fold(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.FieldsFunc(s, func(c rune) bool {
		return c == ' ' || c == '-' || c == '_' || c == '.' || c == '\t'
	}), "_")
}

// Normalize maps an external role name to a Tag. Unknown names yield
// Unrecognized; this function never fails.
func (r *Resolver) Normalize(raw string) Tag {
	key := fold(raw)
	if key == "" {
		return Unrecognized
	}
	if t := Tag(key); t.Valid() {
		return t
	}
	r.mu.RLock()
	t, ok := r.aliases[key]
	r.mu.RUnlock()
	if ok {
		return t
	}
	return Unrecognized
}

// Resolve normalizes every raw name and returns the caller's effective role set.
func (r *Resolver) Resolve(raws []string) Resolution {
	res := Resolution{Roles: NewSet()}
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		t := r.Normalize(raw)
		if t == Unrecognized {
			res.Unrecognized = append(res.Unrecognized, strings.ToLower(strings.TrimSpace(raw)))
			continue
		}
		res.Roles.Add(t)
	}
	return res
}

// DeriveBusinessUnitID matches a human readable business-unit name against the
// directory. An exact id or display-name match wins; otherwise the longest
// keyword contained in the name is used. A miss returns "".
func (r *Resolver) DeriveBusinessUnitID(displayName string) string {
	name := strings.ToLower(strings.TrimSpace(displayName))
	if name == "" {
		return ""
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, bu := range r.units {
		if name == strings.ToLower(bu.ID) || name == strings.ToLower(bu.DisplayName) {
			return bu.ID
		}
	}

	best, bestLen := "", 0
	for _, bu := range r.units {
		candidates := append([]string{bu.DisplayName}, bu.Keywords...)
		for _, kw := range candidates {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || len(kw) <= bestLen {
				continue
			}
			if strings.Contains(name, kw) {
				best, bestLen = bu.ID, len(kw)
			}
		}
	}
	return best
}

// BusinessUnits returns a copy of the configured business units.
func (r *Resolver) BusinessUnits() []BusinessUnit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BusinessUnit, len(r.units))
	copy(out, r.units)
	return out
}

// KnownBusinessUnit reports whether id names a configured business unit.
func (r *Resolver) KnownBusinessUnit(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, bu := range r.units {
		if bu.ID == id {
			return true
		}
	}
	return false
}
