// scenetool inspects and benchmarks scenes without a window.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/scenebatch/internal/assets"
	"github.com/Faultbox/scenebatch/internal/config"
	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/gpu/wgpubackend"
	"github.com/Faultbox/scenebatch/internal/logger"
	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/internal/scene"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "batch":
		err = cmdBatch(args)
	case "tree":
		err = cmdTree(args)
	case "stress":
		err = cmdStress(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`scenetool - headless scene batching utility

Usage:
  scenetool <command> [options]

Commands:
  batch [-scene file] [-backend memory|wgpu]   Print the draw commands of a scene
  tree  [-scene file]                          Print the entity forest of a scene
  stress [-n count] [-frames n] [-seed s]      Random add/remove churn with timing

Common options:
  -assets dir     Asset root for -scene (default .)
  -log level      Log level (default warn)
  -profile mode   Write a cpu or mem profile

Without -scene the built-in demo scene is used.

Examples:
  scenetool batch
  scenetool tree -scene yard.yaml -assets ./scenes
  scenetool stress -n 50000 -frames 200 -profile cpu`)
}

// options are the flags every command accepts.
type options struct {
	scene   string
	assets  string
	backend string
	level   string
	profile string
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.scene, "scene", "", "Scene description file")
	fs.StringVar(&o.assets, "assets", ".", "Asset root directory")
	fs.StringVar(&o.backend, "backend", config.BackendMemory, "GPU backend: memory or wgpu")
	fs.StringVar(&o.level, "log", "warn", "Log level")
	fs.StringVar(&o.profile, "profile", "", "Write a pprof profile: cpu or mem")
}

func (o *options) initLogger() error {
	return logger.Init(o.level, "")
}

// openBackend returns the backend named by kind and a function releasing it.
func openBackend(kind string) (gpu.Backend, func(), error) {
	switch kind {
	case config.BackendMemory, "":
		return gpu.NewMemoryBackend(), func() {}, nil
	case config.BackendWGPU:
		h, err := wgpubackend.NewHeadless()
		if err != nil {
			return nil, nil, err
		}
		return h, h.Close, nil
	case config.BackendGL:
		return nil, nil, fmt.Errorf("backend %q needs a window, use sceneview", kind)
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", kind)
	}
}

// loadScene reads path below root, or the demo scene when path is empty.
func loadScene(root, path string) (*assets.File, error) {
	if path == "" {
		return assets.Demo()
	}
	mgr := assets.NewManager(root)
	defer mgr.Close()
	return mgr.LoadScene(path)
}

// session is a registry and graph populated from one scene.
type session struct {
	registry *registry.Registry
	graph    *scene.Graph
	release  func()
}

func openSession(o *options) (*session, error) {
	backend, release, err := openBackend(o.backend)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(backend, registry.DefaultConfig())
	if err != nil {
		release()
		return nil, err
	}
	s := &session{
		registry: reg,
		graph:    scene.New(reg),
		release: func() {
			reg.Close()
			release()
		},
	}

	f, err := loadScene(o.assets, o.scene)
	if err != nil {
		s.release()
		return nil, err
	}
	if _, err := s.graph.LoadFile(f); err != nil {
		s.release()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	s.release()
}
