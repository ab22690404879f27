package policy

import "sort"

// ExcludedTools computes which tool names (and server wildcard patterns)
// should never be offered to the model: those whose highest-priority,
// mode-applicable rule without an args pattern is a deny. A higher-priority
// wildcard-all allow (such as the yolo preset) rescues a tool unless a
// still-higher specific deny overrides it. Rules carrying an args pattern
// are conditional and are ignored here, and ask_user never excludes — a
// tool the user must approve is still offered.
//
// The result is args-independent and safe to compute synchronously.
func (e *Engine) ExcludedTools() []string {
	e.mu.RLock()
	rules := e.store.Rules()
	mode := e.mode
	e.mu.RUnlock()

	eligible := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.ArgsPattern != nil {
			continue
		}
		if !r.appliesInMode(mode) {
			continue
		}
		eligible = append(eligible, r)
	}

	selectors := make(map[string]struct{})
	for _, r := range eligible {
		if r.ToolName != "" {
			selectors[r.ToolName] = struct{}{}
		}
	}

	var excluded []string
	for selector := range selectors {
		// eligible is still priority-ordered; the first rule naming the
		// selector or matching everything wins.
		for _, r := range eligible {
			if r.ToolName != selector && r.ToolName != "" {
				continue
			}
			if r.Decision == DecisionDeny {
				excluded = append(excluded, selector)
			}
			break
		}
	}

	sort.Strings(excluded)
	return excluded
}

// ExcludedToolSet returns ExcludedTools as a membership set.
func (e *Engine) ExcludedToolSet() map[string]struct{} {
	names := e.ExcludedTools()
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
