// Command rigtool imports character rigs into the binary rig cache, inspects cached
// rigs and evaluates or plays back their clips.
//
// Usage:
//
//	rigtool import  -input hero.glb -out hero.rig
//	rigtool inspect -input hero.rig
//	rigtool pose    -input hero.rig -clip Walk -time 0.5
//	rigtool play    -input hero.glb -cache .rigcache -instances 500 -frames 600
//	rigtool play    -input hero.rig -instances 500 -gpu
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/config"
	"github.com/Carmen-Shannon/oxy-rig/engine/loader"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/rigcache"
)

// command is one rigtool subcommand.
type command struct {
	name  string
	usage string
	run   func(opts options) error
}

// options carries the resolved configuration into a command.
type options struct {
	cfg config.Config
	out string
	gpu bool
}

var commands = []command{
	{name: "import", usage: "import a glTF/GLB rig and write it to the rig cache", run: runImport},
	{name: "inspect", usage: "print the bone tree and clips of a rig", run: runInspect},
	{name: "pose", usage: "evaluate one pose and print bone positions", run: runPose},
	{name: "play", usage: "play a clip on many instances and report throughput", run: runPlay},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == os.Args[1] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		printUsage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet(cmd.name, flag.ExitOnError)
	configFile := fs.String("config", "", "Path to a YAML config file")
	input := fs.String("input", "", "Input rig (.gltf, .glb or .rig)")
	cacheDir := fs.String("cache", "", "Rig cache directory")
	clip := fs.String("clip", "", "Clip name (default: first clip)")
	at := fs.Float64("time", 0, "Sample time in ticks")
	fps := fs.Float64("fps", 0, "Playback frame rate (default: 60)")
	frames := fs.Int("frames", 0, "Number of frames to play (default: 120)")
	speed := fs.Float64("speed", 0, "Playback speed multiplier (default: 1)")
	loop := fs.Bool("loop", true, "Loop the clip")
	instances := fs.Int("instances", 0, "Number of animated instances (default: 1)")
	workers := fs.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	logLevel := fs.String("log", "", "Log level: debug, info, warn, error")
	out := fs.String("out", "", "Output .rig file (import only)")
	gpu := fs.Bool("gpu", false, "Upload poses to a headless wgpu device (play only)")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	flags := config.Flags{
		Input:     *input,
		Cache:     *cacheDir,
		Clip:      *clip,
		FPS:       float32(*fps),
		Frames:    *frames,
		Speed:     float32(*speed),
		Instances: *instances,
		Workers:   *workers,
		LogLevel:  *logLevel,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "time":
			t := float32(*at)
			flags.Time = &t
		case "loop":
			l := *loop
			flags.Loop = &l
		}
	})
	cfg.Resolve(flags)

	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if cfg.Input == "" {
		fmt.Fprintln(os.Stderr, "Error: no input. Use -input or the config file.")
		os.Exit(1)
	}

	if err := cmd.run(options{cfg: cfg, out: *out, gpu: *gpu}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: rigtool <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.usage)
	}
}

// loadRig reads a .rig cache file directly, or imports a scene through the Loader.
func loadRig(cfg config.Config) (*model.RigDefinition, error) {
	if strings.EqualFold(filepath.Ext(cfg.Input), loader.CacheExtension) {
		s, err := rigcache.LoadFile(cfg.Input)
		if err != nil {
			return nil, err
		}
		return s.Rig, nil
	}

	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithCacheDir(cfg.Cache))
	return l.Load(cfg.Input)
}

// selectClip resolves the configured clip name, defaulting to clip 0.
func selectClip(rig *model.RigDefinition, name string) (int, error) {
	if name == "" {
		return 0, nil
	}
	return rig.ClipIndex(name)
}
