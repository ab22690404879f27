package policy

import "testing"

func TestStore_RulesSortedByPriorityDescending(t *testing.T) {
	s := NewStore([]Rule{
		{ToolName: "a", Priority: 1},
		{ToolName: "b", Priority: 10},
		{ToolName: "c", Priority: 5},
	}, nil)

	rules := s.Rules()
	if rules[0].ToolName != "b" || rules[1].ToolName != "c" || rules[2].ToolName != "a" {
		t.Fatalf("expected b,c,a ordering, got %v,%v,%v", rules[0].ToolName, rules[1].ToolName, rules[2].ToolName)
	}
}

func TestStore_EqualPrioritiesKeepInsertionOrder(t *testing.T) {
	s := NewStore(nil, nil)
	s.AddRule(Rule{ToolName: "first", Priority: 5})
	s.AddRule(Rule{ToolName: "second", Priority: 5})
	s.AddRule(Rule{ToolName: "higher", Priority: 6})

	rules := s.Rules()
	if rules[0].ToolName != "higher" || rules[1].ToolName != "first" || rules[2].ToolName != "second" {
		t.Fatalf("expected stable ordering higher,first,second, got %v,%v,%v",
			rules[0].ToolName, rules[1].ToolName, rules[2].ToolName)
	}
}

func TestStore_AddRuleRestoresOrdering(t *testing.T) {
	s := NewStore([]Rule{{ToolName: "low", Priority: 1}}, nil)
	s.AddRule(Rule{ToolName: "high", Priority: 9})

	if rules := s.Rules(); rules[0].ToolName != "high" {
		t.Fatalf("expected new high-priority rule first, got %v", rules[0].ToolName)
	}
}

func TestStore_RemoveRulesForToolIsExactMatchOnly(t *testing.T) {
	s := NewStore([]Rule{
		{ToolName: "srv__tool", Priority: 3},
		{ToolName: "srv__tool", Priority: 1},
		{ToolName: "srv__*", Priority: 2},
		{ToolName: "", Priority: 0},
	}, nil)

	s.RemoveRulesForTool("srv__tool")

	rules := s.Rules()
	if len(rules) != 2 {
		t.Fatalf("expected 2 surviving rules, got %d", len(rules))
	}
	if rules[0].ToolName != "srv__*" || rules[1].ToolName != "" {
		t.Fatalf("expected wildcard and match-all rules to survive, got %v,%v",
			rules[0].ToolName, rules[1].ToolName)
	}
}

func TestStore_ReturnedSlicesAreCopies(t *testing.T) {
	s := NewStore([]Rule{{ToolName: "a", Priority: 1}}, nil)

	rules := s.Rules()
	rules[0].ToolName = "mutated"

	if s.Rules()[0].ToolName != "a" {
		t.Fatalf("expected store contents to be unaffected by caller mutation")
	}
}

func TestStore_CheckersSortedByPriorityDescending(t *testing.T) {
	s := NewStore(nil, []CheckerRule{
		{Priority: 1, Checker: CheckerSpec{Name: "low"}},
		{Priority: 9, Checker: CheckerSpec{Name: "high"}},
	})

	checkers := s.Checkers()
	if checkers[0].Checker.Name != "high" {
		t.Fatalf("expected high-priority checker first, got %v", checkers[0].Checker.Name)
	}
}
