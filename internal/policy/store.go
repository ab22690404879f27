package policy

import "sort"

// Store holds authorization rules and safety-checker bindings, kept sorted
// by priority descending with insertion order breaking ties. That ordering
// decides which rule wins a check, so it is restored after every mutation.
//
// The store is not safe for concurrent mutation; the owning engine
// serializes access.
type Store struct {
	rules    []Rule
	checkers []CheckerRule
}

// NewStore creates a store pre-populated with the given rules and checkers.
func NewStore(rules []Rule, checkers []CheckerRule) *Store {
	s := &Store{
		rules:    append([]Rule(nil), rules...),
		checkers: append([]CheckerRule(nil), checkers...),
	}
	s.sortRules()
	s.sortCheckers()
	return s
}

// AddRule appends a rule and restores the priority ordering.
func (s *Store) AddRule(rule Rule) {
	s.rules = append(s.rules, rule)
	s.sortRules()
}

// AddChecker appends a checker binding and restores the priority ordering.
func (s *Store) AddChecker(rule CheckerRule) {
	s.checkers = append(s.checkers, rule)
	s.sortCheckers()
}

// RemoveRulesForTool drops every rule whose ToolName exactly equals name.
// Wildcard and match-all rules are untouched even when they would match
// calls to that tool; this is used to tear down rules a dynamic source
// (such as an MCP server) registered for itself.
func (s *Store) RemoveRulesForTool(name string) {
	kept := s.rules[:0]
	for _, r := range s.rules {
		if r.ToolName != name {
			kept = append(kept, r)
		}
	}
	s.rules = kept
}

// Rules returns a priority-ordered copy of the policy rules.
func (s *Store) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Checkers returns a priority-ordered copy of the checker bindings.
func (s *Store) Checkers() []CheckerRule {
	return append([]CheckerRule(nil), s.checkers...)
}

func (s *Store) sortRules() {
	sort.SliceStable(s.rules, func(i, j int) bool {
		return s.rules[i].Priority > s.rules[j].Priority
	})
}

func (s *Store) sortCheckers() {
	sort.SliceStable(s.checkers, func(i, j int) bool {
		return s.checkers[i].Priority > s.checkers[j].Priority
	})
}
