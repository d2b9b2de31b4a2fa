package gpu

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemoryUploadReadBack(t *testing.T) {
	m := NewMemoryBackend()
	buf, err := m.CreateBuffer("test", 8, UsageStorage|UsageCopyDst)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}

	if err := m.Upload(buf, 2, []byte{1, 2, 3}); err != nil {
		t.Fatalf("failed to upload: %v", err)
	}

	got, err := m.ReadBack(buf, 0, 8)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	want := []byte{0, 0, 1, 2, 3, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if m.Usage(buf) != UsageStorage|UsageCopyDst {
		t.Errorf("expected usage storage|copy-dst, got %s", m.Usage(buf))
	}
}

func TestMemoryUploadOutOfRange(t *testing.T) {
	m := NewMemoryBackend()
	buf, _ := m.CreateBuffer("small", 4, UsageStorage)

	err := m.Upload(buf, 2, []byte{1, 2, 3})
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestMemoryCopy(t *testing.T) {
	m := NewMemoryBackend()
	src, _ := m.CreateBuffer("src", 4, UsageCopySrc)
	dst, _ := m.CreateBuffer("dst", 8, UsageCopyDst)
	m.Upload(src, 0, []byte{9, 8, 7, 6})

	if err := m.Copy(src, dst, 4); err != nil {
		t.Fatalf("failed to copy: %v", err)
	}
	got, _ := m.ReadBack(dst, 0, 8)
	if !bytes.Equal(got, []byte{9, 8, 7, 6, 0, 0, 0, 0}) {
		t.Errorf("unexpected dst contents %v", got)
	}

	if err := m.Copy(dst, src, 8); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange copying into a smaller buffer, got %v", err)
	}
}

func TestMemoryRelease(t *testing.T) {
	m := NewMemoryBackend()
	buf, _ := m.CreateBuffer("gone", 4, UsageStorage)

	m.Release(buf)
	m.Release(buf)

	if m.LiveBuffers() != 0 {
		t.Errorf("expected 0 live buffers, got %d", m.LiveBuffers())
	}
	if s := m.Stats(); s.Releases != 1 {
		t.Errorf("expected 1 release, got %d", s.Releases)
	}
	if err := m.Upload(buf, 0, []byte{1}); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("expected ErrUnknownBuffer after release, got %v", err)
	}
}

func TestMemoryForeignBuffer(t *testing.T) {
	a := NewMemoryBackend()
	b := NewMemoryBackend()
	buf, _ := a.CreateBuffer("a", 4, UsageStorage)

	if err := b.Upload(buf, 0, []byte{1}); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("expected ErrUnknownBuffer for a foreign buffer, got %v", err)
	}
}

func TestMemoryFailNextCreate(t *testing.T) {
	m := NewMemoryBackend()
	boom := errors.New("device lost")
	m.FailNextCreate(boom)

	if _, err := m.CreateBuffer("x", 4, UsageStorage); !errors.Is(err, ErrBackend) || !errors.Is(err, boom) {
		t.Errorf("expected wrapped ErrBackend and cause, got %v", err)
	}
	if _, err := m.CreateBuffer("y", 4, UsageStorage); err != nil {
		t.Errorf("expected failure to apply once, got %v", err)
	}
}

func TestUsageString(t *testing.T) {
	tests := []struct {
		usage BufferUsage
		want  string
	}{
		{0, "none"},
		{UsageVertex, "vertex"},
		{UsageIndirect | UsageCopyDst, "indirect|copy-dst"},
	}
	for _, tt := range tests {
		if got := tt.usage.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
