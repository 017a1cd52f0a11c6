package version

import (
	"fmt"
	"sort"
)

// Boundary API level. APIVersion is encoded as API*10000 + APIMinor*100.
const (
	API        = 1
	APIMinor   = 1
	APIVersion = API*10000 + APIMinor*100
)

// FormatAPIVersion renders an encoded API version as "major.minor".
func FormatAPIVersion(v int) string {
	return fmt.Sprintf("%d.%d", v/10000, (v/100)%100)
}

// Capability names an optional boundary operation.
type Capability string

// CapabilityRequireScope is validation with a required scope.
const CapabilityRequireScope Capability = "require_scope"

// capabilitySince records the first API version providing each capability.
var capabilitySince = map[Capability]int{
	CapabilityRequireScope: 10100,
}

// Capabilities is the set of optional operations an engine provides.
type Capabilities struct {
	set map[Capability]struct{}
}

// CapabilitiesFor returns the capabilities of an engine at apiVersion.
func CapabilitiesFor(apiVersion int) Capabilities {
	c := Capabilities{set: make(map[Capability]struct{})}
	for name, since := range capabilitySince {
		if apiVersion >= since {
			c.set[name] = struct{}{}
		}
	}
	return c
}

// Has reports whether name is available.
func (c Capabilities) Has(name Capability) bool {
	_, ok := c.set[name]
	return ok
}

// Without returns a copy of c lacking name.
func (c Capabilities) Without(name Capability) Capabilities {
	out := Capabilities{set: make(map[Capability]struct{}, len(c.set))}
	for k := range c.set {
		if k != name {
			out.set[k] = struct{}{}
		}
	}
	return out
}

// List returns the capability names in sorted order.
func (c Capabilities) List() []string {
	names := make([]string, 0, len(c.set))
	for k := range c.set {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}
