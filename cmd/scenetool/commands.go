package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Faultbox/scenebatch/internal/assets"
	"github.com/Faultbox/scenebatch/internal/config"
	"github.com/Faultbox/scenebatch/internal/frame"
	"github.com/Faultbox/scenebatch/internal/gpu"
	"github.com/Faultbox/scenebatch/internal/profiling"
	"github.com/Faultbox/scenebatch/internal/registry"
	"github.com/Faultbox/scenebatch/internal/scene"
	"github.com/Faultbox/scenebatch/pkg/math"
)

func cmdBatch(args []string) error {
	var o options
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	o.register(fs)
	fs.Parse(args)

	if err := o.initLogger(); err != nil {
		return err
	}
	s, err := openSession(&o)
	if err != nil {
		return err
	}
	defer s.Close()

	return printBatch(os.Stdout, s.graph, s.registry)
}

// printBatch synchronizes the graph, rebuilds the batch and writes one row per draw command.
func printBatch(w io.Writer, g *scene.Graph, reg *registry.Registry) error {
	g.Synchronize()
	if err := reg.RebuildDrawBatch(); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GEOMETRY\tNAME\tINDICES\tINSTANCES\tFIRST INDEX\tVERTEX OFFSET\tFIRST INSTANCE")
	for _, b := range reg.Batches() {
		geom, _ := reg.Geometry(b.GeometryID)
		c := b.Command
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			b.GeometryID, geom.Name, c.IndexCount, c.InstanceCount, c.FirstIndex, c.VertexOffset, c.FirstInstance)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	st := reg.Stats()
	fmt.Fprintf(w, "\n%d commands, %d instances, %d geometries (%d vertices, %d indices)\n",
		reg.DrawCommandCount(), st.LiveInstances, st.GeometryGroups, st.Vertices, st.Indices)
	return nil
}

func cmdTree(args []string) error {
	var o options
	fs := flag.NewFlagSet("tree", flag.ExitOnError)
	o.register(fs)
	fs.Parse(args)

	if err := o.initLogger(); err != nil {
		return err
	}
	s, err := openSession(&o)
	if err != nil {
		return err
	}
	defer s.Close()

	printTree(os.Stdout, s.graph)
	return nil
}

// printTree writes the entity forest depth first, one entity per line.
func printTree(w io.Writer, g *scene.Graph) {
	g.Synchronize()
	g.Walk(func(ref scene.EntityRef, e *scene.Entity, depth int) bool {
		name := e.Name
		if name == "" {
			name = "(unnamed)"
		}
		p := e.World.Translation()
		fmt.Fprintf(w, "%s%s #%d.%d at (%.2f, %.2f, %.2f)",
			strings.Repeat("  ", depth), name, ref.Index, ref.Generation, p.X, p.Y, p.Z)
		if len(e.Meshes) > 0 {
			fmt.Fprintf(w, " meshes=%d", len(e.Meshes))
		}
		if e.Light != nil {
			fmt.Fprintf(w, " light=%.1f", e.Light.Intensity)
		}
		fmt.Fprintln(w)
		return true
	})
	fmt.Fprintf(w, "\n%d entities, %d lights\n", g.Len(), len(g.Lights()))
}

// stressConfig controls a churn run.
type stressConfig struct {
	Entities int
	Frames   int
	Churn    float64 // fraction of entities replaced each frame
	Seed     uint64
}

// stressResult summarizes a churn run.
type stressResult struct {
	Frames      int
	Total       time.Duration
	SyncTime    time.Duration
	RebuildTime time.Duration
	Created     int
	Deleted     int
	Reshaped    int
	Registry    registry.Stats
	Stale       int
}

func cmdStress(args []string) error {
	var o options
	cfg := stressConfig{}
	fs := flag.NewFlagSet("stress", flag.ExitOnError)
	o.register(fs)
	fs.IntVar(&cfg.Entities, "n", 10000, "Live entity count")
	fs.IntVar(&cfg.Frames, "frames", 100, "Frames to run")
	fs.Float64Var(&cfg.Churn, "churn", 0.05, "Fraction of entities replaced per frame")
	fs.Uint64Var(&cfg.Seed, "seed", 1, "Random seed")
	fs.Parse(args)

	if err := o.initLogger(); err != nil {
		return err
	}
	prof, err := profiling.Start(config.ProfileConfig{Mode: o.profile, Dir: "."})
	if err != nil {
		return err
	}
	defer prof.Stop()

	backend, release, err := openBackend(o.backend)
	if err != nil {
		return err
	}
	defer release()

	res, err := runStress(backend, cfg)
	if err != nil {
		return err
	}
	printStress(os.Stdout, cfg, res)
	return nil
}

// runStress keeps cfg.Entities entities alive, replacing a random fraction and
// moving another every frame, and runs the full frame pipeline headless.
func runStress(backend gpu.Backend, cfg stressConfig) (stressResult, error) {
	var res stressResult

	reg, err := registry.New(backend, registry.DefaultConfig())
	if err != nil {
		return res, err
	}
	defer reg.Close()

	geoms, err := reg.LoadGeometry([]registry.RawGeometry{
		assets.Cube(1), assets.Plane(1), assets.Pyramid(1),
	})
	if err != nil {
		return res, err
	}

	g := scene.New(reg)
	driver, err := frame.New(backend, reg, g, nil)
	if err != nil {
		return res, err
	}
	defer driver.Close()

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	live := make([]scene.EntityRef, 0, cfg.Entities)

	spawn := func(g *scene.Graph) error {
		var parent *scene.EntityRef
		// One in four entities nests under an existing one.
		if len(live) > 0 && rng.IntN(4) == 0 {
			p := live[rng.IntN(len(live))]
			parent = &p
		}
		ref, err := g.CreateEntity(parent, geoms[rng.IntN(len(geoms))], rng.Uint32N(8))
		if err != nil {
			return err
		}
		g.SetTranslation(ref, randomPoint(rng, 50))
		live = append(live, ref)
		res.Created++
		return nil
	}

	edit := func(g *scene.Graph) error {
		n := min(int(float64(len(live))*cfg.Churn), len(live))
		for range n {
			i := rng.IntN(len(live))
			if g.DeleteEntity(live[i]) {
				res.Deleted++
			}
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
		}
		// Deleting a parent takes its subtree with it.
		live = compact(g, live)

		for len(live) < cfg.Entities {
			if err := spawn(g); err != nil {
				return err
			}
		}

		for i := 0; i < n && len(live) > 0; i++ {
			ref := live[rng.IntN(len(live))]
			g.SetTranslation(ref, randomPoint(rng, 50))
			// Some moves also swap the shape, which re-sorts the instance between batches.
			if rng.IntN(8) == 0 {
				if err := g.SetGeometry(ref, 0, geoms[rng.IntN(len(geoms))]); err != nil {
					return err
				}
				res.Reshaped++
			}
		}
		return nil
	}

	start := time.Now()
	for range cfg.Frames {
		if err := driver.Frame(edit); err != nil {
			return res, err
		}
		st := driver.Stats()
		res.SyncTime += st.SyncTime
		res.RebuildTime += st.RebuildTime
		res.Frames++
	}
	res.Total = time.Since(start)
	res.Registry = reg.Stats()
	res.Stale = g.StaleSkips()
	return res, nil
}

func compact(g *scene.Graph, refs []scene.EntityRef) []scene.EntityRef {
	out := refs[:0]
	for _, r := range refs {
		if g.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

func randomPoint(rng *rand.Rand, extent float32) math.Vec3 {
	f := func() float32 { return (rng.Float32()*2 - 1) * extent }
	return math.Vec3{X: f(), Y: f(), Z: f()}
}

func printStress(w io.Writer, cfg stressConfig, res stressResult) {
	perFrame := func(d time.Duration) time.Duration {
		if res.Frames == 0 {
			return 0
		}
		return d / time.Duration(res.Frames)
	}

	fmt.Fprintf(w, "entities:        %d\n", cfg.Entities)
	fmt.Fprintf(w, "frames:          %d\n", res.Frames)
	fmt.Fprintf(w, "created/deleted: %d/%d\n", res.Created, res.Deleted)
	fmt.Fprintf(w, "reshaped:        %d\n", res.Reshaped)
	fmt.Fprintf(w, "frame:           %v\n", perFrame(res.Total))
	fmt.Fprintf(w, "  sync:          %v\n", perFrame(res.SyncTime))
	fmt.Fprintf(w, "  rebuild:       %v\n", perFrame(res.RebuildTime))
	fmt.Fprintf(w, "instances:       %d live, %d slots, %d free\n",
		res.Registry.LiveInstances, res.Registry.Slots, res.Registry.FreeSlots)
	fmt.Fprintf(w, "capacity:        %d commands, %d instances, %d reallocations\n",
		res.Registry.CommandCapacity, res.Registry.InstanceCapacity, res.Registry.Reallocations)
	fmt.Fprintf(w, "stale skips:     %d\n", res.Stale)
}
