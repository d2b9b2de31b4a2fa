package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/logger"
)

func TestPrintBatchDemo(t *testing.T) {
	logger.InitNop()
	s, err := openSession(&options{backend: "memory"})
	if err != nil {
		t.Fatalf("openSession failed: %v", err)
	}
	defer s.Close()

	var buf bytes.Buffer
	if err := printBatch(&buf, s.graph, s.registry); err != nil {
		t.Fatalf("printBatch failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Header, five commands, blank line, summary.
	if len(lines) != 8 {
		t.Fatalf("expected 8 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[len(lines)-1], "5 commands, 22 instances") {
		t.Errorf("unexpected summary: %s", lines[len(lines)-1])
	}
}

func TestPrintTreeIndents(t *testing.T) {
	logger.InitNop()
	s, err := openSession(&options{})
	if err != nil {
		t.Fatalf("openSession failed: %v", err)
	}
	defer s.Close()

	var buf bytes.Buffer
	printTree(&buf, s.graph)
	out := buf.String()
	if !strings.HasPrefix(out, "ground ") {
		t.Errorf("expected first line to be the ground, got %q", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, "\n  cap ") {
		t.Error("expected cap indented under tower")
	}
	if !strings.Contains(out, "24 entities, 2 lights") {
		t.Errorf("unexpected summary in:\n%s", out)
	}
}

func TestRunStress(t *testing.T) {
	logger.InitNop()
	cfg := stressConfig{Entities: 200, Frames: 10, Churn: 0.1, Seed: 7}

	res, err := runStress(gpu.NewMemoryBackend(), cfg)
	if err != nil {
		t.Fatalf("runStress failed: %v", err)
	}
	if res.Frames != cfg.Frames {
		t.Errorf("expected %d frames, got %d", cfg.Frames, res.Frames)
	}
	if res.Registry.LiveInstances != cfg.Entities {
		t.Errorf("expected %d live instances, got %d", cfg.Entities, res.Registry.LiveInstances)
	}
	if res.Deleted == 0 {
		t.Error("expected some entities deleted")
	}
	if res.Created-res.Registry.LiveInstances < res.Deleted {
		t.Errorf("expected at least %d replaced entities, got %d", res.Deleted, res.Created-res.Registry.LiveInstances)
	}
	if res.Reshaped == 0 {
		t.Error("expected some entities reshaped")
	}
	if res.Stale != 0 {
		t.Errorf("expected no stale skips, got %d", res.Stale)
	}
}

func TestOpenBackendRejectsGL(t *testing.T) {
	if _, _, err := openBackend("gl"); err == nil {
		t.Error("expected error for gl backend, got nil")
	}
	if _, _, err := openBackend("vulkan"); err == nil {
		t.Error("expected error for unknown backend, got nil")
	}
}
