// Package viewer implements the interactive scene viewer loop.
package viewer

import (
	"fmt"
	gomath "math"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/internal/assets"
	"github.com/Faultbox/scenebatch/internal/config"
	"github.com/Faultbox/scenebatch/internal/engine/camera"
	"github.com/Faultbox/scenebatch/internal/engine/debug"
	"github.com/Faultbox/scenebatch/internal/engine/input"
	"github.com/Faultbox/scenebatch/internal/engine/picking"
	"github.com/Faultbox/scenebatch/internal/engine/renderer"
	"github.com/Faultbox/scenebatch/internal/engine/window"
	"github.com/Faultbox/scenebatch/internal/frame"
	"github.com/Faultbox/scenebatch/internal/gpu/glbackend"
	"github.com/Faultbox/scenebatch/internal/logger"
	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/internal/scene"
	"github.com/Faultbox/scenebatch/pkg/math"
)

const title = "scenebatch"

// spinSpeed is the turntable rate in radians per second.
const spinSpeed = 0.5

// clickSlop is how far, in pixels, the mouse may move between press and
// release for the release to count as a click rather than a drag.
const clickSlop = 3

// Viewer owns the window, the GL pipeline and the scene being shown.
type Viewer struct {
	config  *config.Config
	running bool

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera

	backend  *glbackend.Backend
	registry *registry.Registry
	graph    *scene.Graph
	driver   *frame.Driver

	// Every scene node hangs off the turntable so one edit moves the whole scene.
	turntable scene.EntityRef
	spinning  bool
	angle     float32

	selected    selection
	pressX      int
	pressY      int
	screenshots *debug.ScreenshotCapture
	captureNext bool
}

// New creates the window and GL context, then loads the configured scene.
func New(cfg *config.Config) (*Viewer, error) {
	if cfg.Backend.Kind != config.BackendGL {
		logger.Warn("viewer only draws through OpenGL, ignoring backend setting",
			zap.String("backend", cfg.Backend.Kind),
		)
	}

	v := &Viewer{
		config:      cfg,
		camera:      camera.NewOrbitCamera(),
		input:       input.New(),
		screenshots: debug.NewScreenshotCapture("screenshots", title),
	}

	debug := cfg.Logging.Level == "debug"

	var err error
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Debug:      debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Renderer after window, since the GL context must exist
	v.renderer, err = renderer.New(renderer.Config{
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		Debug:  debug,
	})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.backend = glbackend.New()
	v.registry, err = registry.New(v.backend, cfg.Registry)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	v.graph = scene.New(v.registry)

	if err := v.loadScene(); err != nil {
		v.Close()
		return nil, err
	}

	v.driver, err = frame.New(v.backend, v.registry, v.graph, v.renderer)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create frame driver: %w", err)
	}

	logger.Info("viewer initialized",
		zap.Int("entities", v.graph.Len()),
		zap.Int("instances", v.registry.InstanceCount()),
		zap.Int("geometries", v.registry.GeometryCount()),
	)
	return v, nil
}

// loadScene reads the configured scene, or the built-in demo, under the turntable.
func (v *Viewer) loadScene() error {
	var (
		f   *assets.File
		err error
	)
	if v.config.Scene.File != "" {
		mgr := assets.NewManager(v.config.Scene.AssetRoot)
		defer mgr.Close()
		f, err = mgr.LoadScene(v.config.Scene.File)
	} else {
		logger.Info("no scene file configured, loading demo scene")
		f, err = assets.Demo()
	}
	if err != nil {
		return fmt.Errorf("failed to load scene: %w", err)
	}

	meshes, err := f.LoadMeshes(v.registry)
	if err != nil {
		return fmt.Errorf("failed to load meshes: %w", err)
	}

	v.turntable, err = v.graph.CreateGroup(nil, "turntable")
	if err != nil {
		return err
	}
	for _, n := range f.Nodes {
		if _, err := v.graph.Instantiate(&v.turntable, n, meshes); err != nil {
			return fmt.Errorf("failed to instantiate %q: %w", n.Name, err)
		}
	}

	// One pass so world positions exist for framing the camera.
	v.graph.Synchronize()
	if lo, hi, ok := v.graph.Bounds(); ok {
		v.camera.FitToBounds(lo, hi)
	}
	return nil
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting viewer loop")

	for v.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()

		// 2. Edits, sync, rebuild and draw
		if err := v.render(dt); err != nil {
			return fmt.Errorf("render error: %w", err)
		}

		// Read back before the swap leaves the back buffer undefined.
		if v.captureNext {
			v.captureScreenshot()
			v.captureNext = false
		}

		// 3. Present
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			st := v.driver.Stats()
			v.window.SetTitle(fmt.Sprintf("%s - %d fps, %d draws, %d instances",
				title, frameCount, st.Commands, st.Instances))
			logger.Debug("frame stats",
				zap.Int("fps", frameCount),
				zap.Int("commands", st.Commands),
				zap.Int("instances", st.Instances),
				zap.Int("updated", st.Updated),
				zap.Duration("sync", st.SyncTime),
				zap.Duration("rebuild", st.RebuildTime),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.renderer.Resize(event.Width, event.Height)
		case input.EventMouseMove:
			if v.input.IsButtonDown(sdl.BUTTON_LEFT) {
				v.camera.HandleDrag(float32(event.DeltaX), float32(event.DeltaY))
			}
		case input.EventMouseDown:
			if event.Button == sdl.BUTTON_LEFT {
				v.pressX, v.pressY = event.MouseX, event.MouseY
			}
		case input.EventMouseUp:
			if event.Button == sdl.BUTTON_LEFT &&
				abs(event.MouseX-v.pressX) <= clickSlop && abs(event.MouseY-v.pressY) <= clickSlop {
				v.pick(event.MouseX, event.MouseY)
			}
		case input.EventMouseWheel:
			v.camera.HandleZoom(float32(event.DeltaY))
		case input.EventKeyDown:
			switch event.Key {
			case sdl.SCANCODE_ESCAPE:
				v.running = false
			case sdl.SCANCODE_SPACE:
				v.spinning = !v.spinning
			case sdl.SCANCODE_DELETE:
				v.deleteSelected()
			case sdl.SCANCODE_F3:
				v.toggleDebugLog()
			case sdl.SCANCODE_F12:
				v.captureNext = true
			}
		}
	}
}

// pick selects the entity under the cursor, or clears the selection on a miss.
// World matrices are from the previous frame, which is what is on screen.
func (v *Viewer) pick(x, y int) {
	width, height := v.window.GetSize()
	inv, ok := v.camera.ViewProjection(width, height).Inverse()
	if !ok {
		return
	}
	ray := picking.ScreenToRay(float32(x), float32(y), float32(width), float32(height), inv)

	hit, ok := picking.Pick(v.graph, v.registry, ray)
	if !ok {
		v.selected.Clear(v.graph)
		return
	}
	v.selected.Set(v.graph, hit.Entity)
	e, _ := v.graph.Entity(hit.Entity)
	logger.Info("selected entity",
		zap.String("name", e.Name),
		zap.Uint32("index", hit.Entity.Index),
		zap.Uint32("generation", hit.Entity.Generation),
		zap.Float32("distance", hit.Distance),
	)
}

// deleteSelected removes the selected entity and its subtree.
func (v *Viewer) deleteSelected() {
	e, ok := v.selected.Delete(v.graph)
	if !ok {
		return
	}
	logger.Info("deleted entity",
		zap.String("name", e.Name),
		zap.Int("remaining", v.graph.Len()),
	)
}

// toggleDebugLog switches between debug and info logging, which turns the
// per-second frame stats on and off.
func (v *Viewer) toggleDebugLog() {
	level := "debug"
	if logger.Level() == "debug" {
		level = "info"
	}
	logger.SetLevel(level)
	logger.Info("log level changed", zap.String("level", level))
}

func (v *Viewer) captureScreenshot() {
	pixels, width, height := v.renderer.ReadPixels()
	path, err := v.screenshots.CaptureFromPixels(pixels, width, height)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (v *Viewer) render(dt float32) error {
	width, height := v.window.GetSize()
	v.renderer.SetCamera(v.camera.ViewProjection(width, height), v.camera.Position())

	v.renderer.Begin()
	err := v.driver.Frame(func(g *scene.Graph) error {
		if !v.spinning {
			return nil
		}
		v.angle = float32(gomath.Mod(float64(v.angle+spinSpeed*dt), 2*gomath.Pi))
		g.SetRotationEuler(v.turntable, math.Vec3{Y: v.angle})
		return nil
	})
	v.renderer.End()
	return err
}

// Close releases everything in reverse creation order.
func (v *Viewer) Close() {
	logger.Info("closing viewer")

	if v.driver != nil {
		v.driver.Close()
	}
	if v.registry != nil {
		v.registry.Close()
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
