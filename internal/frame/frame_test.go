package frame

import (
	"errors"
	"testing"

	"github.com/Faultbox/scenebatch/internal/assets"
	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/internal/scene"
	"github.com/Faultbox/scenebatch/pkg/math"
)

func newTestDriver(t *testing.T, drawer Drawer) (*Driver, *gpu.MemoryBackend) {
	t.Helper()
	backend := gpu.NewMemoryBackend()
	reg, err := registry.New(backend, registry.Config{InitialCommandCapacity: 1, InitialInstanceCapacity: 1})
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	t.Cleanup(reg.Close)
	if _, err := reg.LoadGeometry([]registry.RawGeometry{assets.Cube(1), assets.Pyramid(1)}); err != nil {
		t.Fatalf("LoadGeometry failed: %v", err)
	}

	d, err := New(backend, reg, scene.New(reg), drawer)
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	t.Cleanup(d.Close)
	return d, backend
}

func TestFrameOrder(t *testing.T) {
	var views []View
	d, backend := newTestDriver(t, DrawerFunc(func(v View) error {
		views = append(views, v)
		return nil
	}))

	var mover scene.EntityRef
	err := d.Frame(func(g *scene.Graph) error {
		var err error
		mover, err = g.CreateEntity(nil, 1, 0)
		if err != nil {
			return err
		}
		if _, err := g.CreateEntity(&mover, 0, 0); err != nil {
			return err
		}
		_, err = g.CreateEntity(nil, 0, 0)
		return err
	})
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}

	if len(views) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(views))
	}
	v := views[0]
	if v.CommandCount != 2 || v.InstanceCount != 3 {
		t.Errorf("expected 2 commands over 3 instances, got %d over %d", v.CommandCount, v.InstanceCount)
	}

	// Edits made in the frame are visible to the same frame's rebuild.
	if err := d.Frame(func(g *scene.Graph) error {
		g.SetTranslation(mover, math.Vec3{X: 7})
		return nil
	}); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}

	raw, err := backend.ReadBack(d.View().InstanceBuffer, 0, 3*registry.InstanceRecordSize)
	if err != nil {
		t.Fatalf("ReadBack failed: %v", err)
	}
	var moved int
	for i := 0; i < 3; i++ {
		rec := registry.DecodeInstanceRecord(raw[i*registry.InstanceRecordSize:])
		if rec.Model.Translation().X == 7 {
			moved++
		}
	}
	if moved != 2 {
		t.Errorf("expected the mover and its child at x=7 in the uploaded buffer, got %d", moved)
	}

	stats := d.Stats()
	if stats.Frames != 2 {
		t.Errorf("expected 2 frames, got %d", stats.Frames)
	}
	if stats.Updated != 2 {
		t.Errorf("expected 2 entities updated in the last frame, got %d", stats.Updated)
	}
}

func TestFrameUploadsLights(t *testing.T) {
	d, backend := newTestDriver(t, nil)

	err := d.Frame(func(g *scene.Graph) error {
		ref, err := g.CreateGroup(nil, "lamp")
		if err != nil {
			return err
		}
		g.SetTranslation(ref, math.Vec3{Y: 5})
		g.AddPointLight(ref, scene.DefaultPointLight())
		return nil
	})
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}

	v := d.View()
	if v.LightCount != 1 {
		t.Fatalf("expected 1 light, got %d", v.LightCount)
	}
	got, err := backend.ReadBack(v.LightBuffer, 0, scene.LightRecordSize)
	if err != nil {
		t.Fatalf("ReadBack failed: %v", err)
	}
	want := scene.MarshalLights(d.Graph().Lights())
	if string(got) != string(want) {
		t.Errorf("expected uploaded light %x, got %x", want, got)
	}
	if v.CommandCount != 0 {
		t.Errorf("expected no commands for a scene without meshes, got %d", v.CommandCount)
	}
}

func TestFrameErrors(t *testing.T) {
	editErr := errors.New("bad edit")
	drawErr := errors.New("lost surface")

	d, _ := newTestDriver(t, DrawerFunc(func(View) error { return drawErr }))

	if err := d.Frame(func(*scene.Graph) error { return editErr }); !errors.Is(err, editErr) {
		t.Errorf("expected edit error, got %v", err)
	}
	if err := d.Frame(nil); !errors.Is(err, drawErr) {
		t.Errorf("expected draw error, got %v", err)
	}
	if d.Stats().Frames != 0 {
		t.Errorf("expected failed frames not counted, got %d", d.Stats().Frames)
	}
}

func TestCloseReleasesLightBuffer(t *testing.T) {
	backend := gpu.NewMemoryBackend()
	reg, err := registry.New(backend, registry.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	d, err := New(backend, reg, scene.New(reg), nil)
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	d.Close()
	d.Close()
	reg.Close()

	if backend.LiveBuffers() != 0 {
		t.Errorf("expected all buffers released, got %d live", backend.LiveBuffers())
	}
}
