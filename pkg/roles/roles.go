// Package roles maps identity-provider role names onto the closed set of
// governance roles and derives business-unit ids from display names.
package roles

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Tag is a normalized governance role.
type Tag string

const (
	Publisher          Tag = "publisher"
	ProductAdmin       Tag = "product_admin"
	EngineeringAdmin   Tag = "engineering_admin"
	PlatformAdmin      Tag = "platform_admin"
	PlatformGovernance Tag = "platform_governance"

	// Unrecognized is returned for any external name outside the closed set.
	// It never grants a capability.
	Unrecognized Tag = "unrecognized"
)

// Known lists every role that can grant a capability, in a stable order.
var Known = []Tag{Publisher, ProductAdmin, EngineeringAdmin, PlatformAdmin, PlatformGovernance}

var descriptions = map[Tag]string{
	Publisher:          "Registers MCP servers and business use cases.",
	ProductAdmin:       "First-stage reviewer for business use cases within a business unit.",
	EngineeringAdmin:   "Engineering owner allowed to retire active MCP servers.",
	PlatformAdmin:      "Second-stage reviewer for business use cases.",
	PlatformGovernance: "Org-wide governance; reviews MCP servers and may act without a business unit.",
}

// Description returns a human readable description for t.
func (t Tag) Description() string {
	return descriptions[t]
}

// Valid reports whether t is one of the known roles.
func (t Tag) Valid() bool {
	_, ok := descriptions[t]
	return ok
}

// Set is an unordered collection of known roles.
type Set = mapset.Set[Tag]

// NewSet builds a Set from tags, dropping Unrecognized and anything invalid.
func NewSet(tags ...Tag) Set {
	s := mapset.NewThreadUnsafeSet[Tag]()
	for _, t := range tags {
		if t.Valid() {
			s.Add(t)
		}
	}
	return s
}

// HasAny reports whether s contains at least one of tags.
func HasAny(s Set, tags ...Tag) bool {
	if s == nil {
		return false
	}
	for _, t := range tags {
		if s.Contains(t) {
			return true
		}
	}
	return false
}

// Sorted returns the members of s ordered by name.
func Sorted(s Set) []Tag {
	if s == nil {
		return nil
	}
	out := s.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted members of s as plain strings.
func Strings(s Set) []string {
	tags := Sorted(s)
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
