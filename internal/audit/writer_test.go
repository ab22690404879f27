package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWriter_AppendEvent(t *testing.T) {
	baseDir := t.TempDir()
	writer := NewWriter(baseDir)

	firstTime := time.Date(2026, 8, 15, 8, 0, 0, 0, time.UTC)
	secondTime := firstTime.Add(5 * time.Second)

	if err := writer.Append(Event{
		Time:     firstTime,
		Tool:     "run_shell_command",
		Decision: "allow",
		Rule:     "run_shell_command",
	}); err != nil {
		t.Fatalf("Append first event error: %v", err)
	}

	if err := writer.Append(Event{
		Time:     secondTime,
		Tool:     "corp__search",
		Server:   "corp",
		Decision: "deny",
		Reason:   "MCP server \"corp\" is excluded by settings",
	}); err != nil {
		t.Fatalf("Append second event error: %v", err)
	}

	auditPath := filepath.Join(baseDir, "state", "decisions.jsonl")
	file, err := os.Open(auditPath)
	if err != nil {
		t.Fatalf("Open audit file error: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lines := make([]string, 0, 2)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan audit file error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 jsonl lines, got %d", len(lines))
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line error: %v", err)
	}
	if !first.Time.Equal(firstTime) {
		t.Fatalf("expected first time %s, got %s", firstTime, first.Time)
	}
	if first.Tool != "run_shell_command" {
		t.Fatalf("expected first tool run_shell_command, got %q", first.Tool)
	}
	if first.Decision != "allow" {
		t.Fatalf("expected first decision allow, got %q", first.Decision)
	}

	var second Event
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second line error: %v", err)
	}
	if second.Server != "corp" {
		t.Fatalf("expected second server corp, got %q", second.Server)
	}
	if second.Decision != "deny" {
		t.Fatalf("expected second decision deny, got %q", second.Decision)
	}
	if second.Reason == "" {
		t.Fatalf("expected second event to carry a reason")
	}
}

func TestWriter_AppendEvent_MkdirAllFailure(t *testing.T) {
	baseDir := t.TempDir()
	statePath := filepath.Join(baseDir, "state")
	if err := os.WriteFile(statePath, []byte("not-a-dir"), 0644); err != nil {
		t.Fatalf("WriteFile state blocker error: %v", err)
	}

	writer := NewWriter(baseDir)
	err := writer.Append(Event{Time: time.Now().UTC(), Tool: "x", Decision: "deny"})
	if err == nil {
		t.Fatal("expected append error when state path is a file")
	}
}

func TestWriter_AppendEvent_Concurrent(t *testing.T) {
	baseDir := t.TempDir()
	writer := NewWriter(baseDir)

	const total = 20
	var wg sync.WaitGroup
	errCh := make(chan error, total)
	wg.Add(total)
	for i := 0; i < total; i++ {
		i := i
		go func() {
			defer wg.Done()
			if err := writer.Append(Event{
				Time:     time.Date(2026, 8, 15, 9, 0, i, 0, time.UTC),
				Tool:     fmt.Sprintf("tool-%d", i),
				Decision: "ask_user",
			}); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent append error: %v", err)
	}

	file, err := os.Open(writer.Path())
	if err != nil {
		t.Fatalf("open audit file error: %v", err)
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		count++
	}
	if count != total {
		t.Fatalf("expected %d lines, got %d", total, count)
	}
}
