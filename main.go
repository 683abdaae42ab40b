package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/memmaker/octovox/engine/util"
	"github.com/memmaker/octovox/engine/voxel"
	"github.com/pkg/errors"
)

func main() {
	config, err := ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, config); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config Config) error {
	if err := config.ApplyLogging(); err != nil {
		return err
	}
	world, err := openWorld(config)
	if err != nil {
		return err
	}
	defer world.Close()

	sim := NewSimulation(config, world)
	util.LogSystemInfo(fmt.Sprintf("[Simulation] %d chunks loaded, world size %d, player at %v", world.ChunkCount(), world.Size(), sim.Player().GetPosition()))
	runErr := sim.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		util.LogSystemWarning("[Simulation] interrupted")
		runErr = nil
	}

	if config.SnapshotPath != "" {
		if err := voxel.SaveToDisk(world, config.SnapshotPath); err != nil {
			return err
		}
	}
	util.LogSystemInfo(fmt.Sprintf("[Simulation] done: %s", sim.Stats()))
	util.LogSystemInfo(world.Timer().String())
	return runErr
}

// openWorld resumes from the snapshot when one exists and generates a fresh
// world otherwise.
func openWorld(config Config) (*voxel.VoxelWorld, error) {
	generator, err := voxel.GeneratorByName(config.Generator, config.Seed)
	if err != nil {
		return nil, err
	}
	if config.SnapshotPath != "" {
		if _, statErr := os.Stat(config.SnapshotPath); statErr == nil {
			return voxel.LoadFromDisk(config.SnapshotPath, generator, config.WorldConfig())
		}
	}
	return voxel.NewVoxelWorld(config.InitialSize, generator, config.WorldConfig())
}
