package policy

import "strings"

// wildcardSuffix marks a server-qualified rule matching every tool the
// server hosts.
const wildcardSuffix = "__*"

// AliasTable maps legacy tool names to their canonical names so rules
// written against either name match calls using either name.
type AliasTable struct {
	legacyToCanonical map[string]string
	canonicalToLegacy map[string][]string
}

// NewAliasTable builds a table from legacy→canonical pairs. Blank entries
// are skipped.
func NewAliasTable(pairs map[string]string) *AliasTable {
	t := &AliasTable{
		legacyToCanonical: make(map[string]string, len(pairs)),
		canonicalToLegacy: make(map[string][]string, len(pairs)),
	}
	for legacy, canonical := range pairs {
		legacy = strings.TrimSpace(legacy)
		canonical = strings.TrimSpace(canonical)
		if legacy == "" || canonical == "" || legacy == canonical {
			continue
		}
		t.legacyToCanonical[legacy] = canonical
		t.canonicalToLegacy[canonical] = append(t.canonicalToLegacy[canonical], legacy)
	}
	return t
}

// Resolve returns every name the given tool is known by: the name itself,
// its canonical name if the input is a legacy alias, and every legacy alias
// of that canonical tool.
func (t *AliasTable) Resolve(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	canonical := name
	if t != nil {
		if c, ok := t.legacyToCanonical[name]; ok {
			canonical = c
		}
	}

	seen := map[string]struct{}{name: {}}
	names := []string{name}
	add := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}

	add(canonical)
	if t != nil {
		for _, legacy := range t.canonicalToLegacy[canonical] {
			add(legacy)
		}
	}
	return names
}

// matchesToolName reports whether a rule's tool selector applies to a call.
//
// An empty selector matches everything. A "<server>__*" selector matches
// only when the call's declared server identity equals the prefix AND the
// call name carries that prefix: the string prefix alone is not trusted,
// because a server named "safe__evil" would otherwise satisfy a "safe__*"
// rule through its call names.
func (t *AliasTable) matchesToolName(ruleToolName, callName, serverName string) bool {
	if ruleToolName == "" {
		return true
	}

	if server, ok := strings.CutSuffix(ruleToolName, wildcardSuffix); ok {
		return serverName == server && strings.HasPrefix(callName, server+"__")
	}

	for _, alias := range t.Resolve(callName) {
		if ruleToolName == alias {
			return true
		}
	}
	return false
}
