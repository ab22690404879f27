package shell

import (
	"reflect"
	"testing"
)

func TestSplit_SingleCommandReturnsItself(t *testing.T) {
	got := Split("git status")
	want := []string{"git status"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSplit_AndOrSemicolonPipe(t *testing.T) {
	got := Split("git status && ls -la; echo done || true | wc -l")
	want := []string{"git status", "ls -la", "echo done", "true", "wc -l"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSplit_QuotedSeparatorsAreNotSplitPoints(t *testing.T) {
	got := Split(`echo "a && b; c" && ls`)
	want := []string{`echo "a && b; c"`, "ls"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSplit_SingleQuotesProtectDoubleQuotesAndSeparators(t *testing.T) {
	got := Split(`echo 'x; y "z"' ; pwd`)
	want := []string{`echo 'x; y "z"'`, "pwd"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSplit_UnbalancedQuoteIsParserFailure(t *testing.T) {
	if got := Split(`echo "unterminated`); got != nil {
		t.Fatalf("expected nil for unbalanced quote, got %v", got)
	}
}

func TestSplit_EmptyCommandYieldsNothing(t *testing.T) {
	if got := Split("   "); got != nil {
		t.Fatalf("expected nil for blank command, got %v", got)
	}
}

func TestSplit_BackgroundAmpersandStaysAttached(t *testing.T) {
	got := Split("sleep 5 & wait")
	want := []string{"sleep 5 & wait"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestHasRedirection_DetectsOutputRedirect(t *testing.T) {
	for _, cmd := range []string{"echo hi > f", "cat < in", "make 2> err.log", "cmd &> all", "echo a >> b"} {
		if !HasRedirection(cmd) {
			t.Fatalf("expected redirection in %q", cmd)
		}
	}
}

func TestHasRedirection_QuotedArrowsDoNotCount(t *testing.T) {
	for _, cmd := range []string{`echo "a -> b"`, `echo '>'`, `printf "1 > 0"`} {
		if HasRedirection(cmd) {
			t.Fatalf("did not expect redirection in %q", cmd)
		}
	}
}

func TestHasRedirection_PlainCommand(t *testing.T) {
	if HasRedirection("git status") {
		t.Fatalf("did not expect redirection in plain command")
	}
}

func TestSplit_IsIdempotentOnItsOwnOutput(t *testing.T) {
	parts := Split("a && b; c")
	for _, p := range parts {
		again := Split(p)
		if len(again) != 1 || again[0] != p {
			t.Fatalf("expected %q to split to itself, got %v", p, again)
		}
	}
}
