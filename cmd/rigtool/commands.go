package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/animator"
	"github.com/Carmen-Shannon/oxy-rig/engine/loader"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/pose"
	"github.com/Carmen-Shannon/oxy-rig/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/posebuffer"
	"github.com/Carmen-Shannon/oxy-rig/engine/rigcache"
)

func runImport(opts options) error {
	scene, err := loader.ImportGLTF(opts.cfg.Input)
	if err != nil {
		return err
	}
	rig, err := loader.BuildRig(scene)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		dir := common.Coalesce(opts.cfg.Cache, filepath.Dir(opts.cfg.Input))
		out = loader.CachePath(dir, opts.cfg.Input)
	}
	if err := rigcache.SaveFile(out, model.NewSkeleton(rig)); err != nil {
		return err
	}

	fmt.Printf("wrote %s: %d bones, %d clips\n", out, len(rig.Bones), len(rig.Clips))
	return nil
}

func runInspect(opts options) error {
	rig, err := loadRig(opts.cfg)
	if err != nil {
		return err
	}

	fmt.Printf("bones: %d\n", len(rig.Bones))
	if len(rig.Nodes) > 0 {
		printNode(rig, 0, 1)
	}

	fmt.Printf("clips: %d\n", len(rig.Clips))
	for i := range rig.Clips {
		c := &rig.Clips[i]
		keys := 0
		for t := range c.Tracks {
			keys += c.Tracks[t].KeyCount()
		}
		fmt.Printf("  [%d] %q duration=%.3f ticks tps=%.2f (%.3fs) tracks=%d keys=%d\n",
			i, c.Name, c.Duration, c.TicksPerSecond, c.Duration/c.TicksPerSecond, len(c.Tracks), keys)
	}
	return nil
}

func printNode(rig *model.RigDefinition, index int32, depth int) {
	n := &rig.Nodes[index]
	fmt.Printf("%s%s (bone %d)\n", strings.Repeat("  ", depth), n.Name, rig.Bones[n.BoneIndex].ID)
	for _, c := range n.Children {
		printNode(rig, c, depth+1)
	}
}

func runPose(opts options) error {
	rig, err := loadRig(opts.cfg)
	if err != nil {
		return err
	}
	clip, err := selectClip(rig, opts.cfg.Clip)
	if err != nil {
		return err
	}

	global, err := pose.NewEvaluator().ModelSpace(rig, clip, opts.cfg.Time)
	if err != nil {
		return err
	}

	fmt.Printf("time %.3f ticks\n", opts.cfg.Time)
	for i, m := range global {
		p := common.Translation(m)
		fmt.Printf("  %-24s % .4f % .4f % .4f\n", rig.Nodes[i].Name, p[0], p[1], p[2])
	}
	return nil
}

func runPlay(opts options) error {
	cfg := opts.cfg
	rig, err := loadRig(cfg)
	if err != nil {
		return err
	}
	clip, err := selectClip(rig, cfg.Clip)
	if err != nil {
		return err
	}

	pool := animator.NewPool(animator.WithWorkers(cfg.Workers))
	for i := 0; i < cfg.Instances; i++ {
		pool.Add(animator.NewAnimator(
			animator.WithRig(rig),
			animator.WithClip(clip),
			animator.WithSpeed(cfg.Speed),
			animator.WithLoop(cfg.Loop),
			animator.WithTime(cfg.Time),
		))
	}

	buf := posebuffer.NewPoseBuffer(
		posebuffer.WithLabel(filepath.Base(cfg.Input)),
		posebuffer.WithInstances(cfg.Instances),
	)
	prof := profiler.NewProfiler(time.Second)

	var upload func([]posebuffer.BufferWrite) error
	if opts.gpu {
		dev, err := openDevice()
		if err != nil {
			return err
		}
		defer dev.release()
		gpuBuf, err := posebuffer.NewGPUBuffer(dev.device, buf)
		if err != nil {
			return err
		}
		defer gpuBuf.Release()
		upload = func(writes []posebuffer.BufferWrite) error {
			return posebuffer.Submit(dev.queue, gpuBuf, writes)
		}
	}

	dt := 1 / cfg.FPS
	start := time.Now()
	var uploaded int
	var scratch model.Pose
	for f := 0; f < cfg.Frames; f++ {
		if err := pool.Step(dt); err != nil {
			return err
		}
		for i := 0; i < pool.Len(); i++ {
			pool.Animator(i).PoseInto(&scratch)
			if err := buf.Stage(i, &scratch); err != nil {
				return err
			}
		}
		buf.Flush()
		writes := buf.StagedWriteData()
		for _, w := range writes {
			uploaded += len(w.Data)
		}
		if upload != nil {
			if err := upload(writes); err != nil {
				return err
			}
		}
		prof.Tick(pool.Len())
	}
	elapsed := time.Since(start)

	poses := cfg.Frames * cfg.Instances
	fmt.Fprintf(os.Stdout, "%d frames x %d instances: %d poses in %s (%.0f poses/s), %d bytes staged\n",
		cfg.Frames, cfg.Instances, poses, elapsed.Round(time.Millisecond), float64(poses)/elapsed.Seconds(), uploaded)
	return nil
}
