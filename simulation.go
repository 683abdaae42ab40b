package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/memmaker/octovox/engine/util"
	"github.com/memmaker/octovox/engine/voxel"
)

const (
	PROJECTILE_RADIUS = float32(0.1)
	PLAYER_TURN_RATE  = float32(0.25)
	SPAWN_HEIGHT      = float32(2)
	// aim below the horizon so shots land in the terrain
	AIM_PITCH = float32(-0.5)
)

type Player struct {
	position mgl32.Vec3
	velocity mgl32.Vec3
	radius   float32
	heading  float32
	grounded bool
}

func (p *Player) GetPosition() mgl32.Vec3 {
	return p.position
}

func (p *Player) IsGrounded() bool {
	return p.grounded
}

func (p *Player) forward() mgl32.Vec3 {
	return mgl32.Vec3{util.Cos(p.heading), 0, util.Sin(p.heading)}
}

type SimulationStats struct {
	Ticks          int
	ChunksReceived int
	MeshesRebuilt  int
	MeshedVoxels   int
	Shots          int
	Hits           int
	VoxelsCleared  int
}

func (s SimulationStats) String() string {
	return fmt.Sprintf("ticks=%d chunks=%d meshes=%d (%d voxels) shots=%d hits=%d cleared=%d",
		s.Ticks, s.ChunksReceived, s.MeshesRebuilt, s.MeshedVoxels, s.Shots, s.Hits, s.VoxelsCleared)
}

// Simulation drives a player through the world one tick at a time. It owns the
// world's octree, so all world access happens on the goroutine calling Step.
type Simulation struct {
	config Config
	world  *voxel.VoxelWorld
	player *Player
	spawn  mgl32.Vec3
	stats  SimulationStats
}

func NewSimulation(config Config, world *voxel.VoxelWorld) *Simulation {
	bounds := world.Bounds()
	spawn := mgl32.Vec3{
		float32(bounds.Max.X) / 2,
		float32(bounds.Max.Y) + 2,
		float32(bounds.Max.Z) / 2,
	}
	// drop the player just above the terrain in the middle of the world
	if ground, ok := world.Raycast(spawn, mgl32.Vec3{0, -1, 0}, spawn.Y()+1); ok {
		spawn = ground.CollisionWorldPosition.Add(mgl32.Vec3{0, SPAWN_HEIGHT, 0})
	}
	return &Simulation{
		config: config,
		world:  world,
		spawn:  spawn,
		player: &Player{position: spawn, radius: config.PlayerRadius},
	}
}

func (s *Simulation) Player() *Player {
	return s.player
}

func (s *Simulation) Stats() SimulationStats {
	return s.stats
}

func (s *Simulation) deltaTime() float32 {
	return 1 / float32(s.config.TickRate)
}

// Step advances the simulation by one tick.
func (s *Simulation) Step() {
	stop := s.world.Timer().Start("tick")
	defer stop()

	s.stats.Ticks++
	s.streamChunks()
	s.movePlayer(s.deltaTime())
	if s.config.FireInterval > 0 && s.stats.Ticks%s.config.FireInterval == 0 {
		s.fire()
	}
	s.rebuildDirtyChunks()

	if s.stats.Ticks%s.config.TickRate == 0 {
		util.LogSystemInfo(fmt.Sprintf("[Simulation] %s player=%v", s.stats, s.player.position))
	}
}

// streamChunks keeps the view region around the player generated.
func (s *Simulation) streamChunks() {
	view := util.IAabbFromAABB(util.NewAABBCenter(s.player.position, 2*s.config.ViewDistance))
	s.world.ExpandToFitRegion(view, s.player.position)
	s.stats.ChunksReceived += s.world.ReceiveChunks()
}

func (s *Simulation) movePlayer(deltaTime float32) {
	p := s.player
	p.heading += PLAYER_TURN_RATE * deltaTime
	wish := p.forward().Mul(s.config.PlayerSpeed * deltaTime)
	// stay on the non-negative side of the world
	if p.position.X()+wish.X() < p.radius {
		wish[0] = 0
	}
	if p.position.Z()+wish.Z() < p.radius {
		wish[2] = 0
	}

	p.velocity[1] -= s.config.Gravity * deltaTime
	move := mgl32.Vec3{wish.X(), p.velocity.Y() * deltaTime, wish.Z()}

	stop := s.world.Timer().Start("collide")
	delta := util.CollideAndSlide(s.world, move, p.position, p.radius, 0)
	stop()

	p.position = p.position.Add(delta)
	_, p.grounded = s.world.QuerySphereCast(p.position, p.radius-util.SKIN_WIDTH, mgl32.Vec3{0, -1, 0}, 2*util.SKIN_WIDTH)
	if p.grounded && p.velocity.Y() < 0 {
		p.velocity[1] = 0
	}

	if p.position.Y() < -s.config.ViewDistance {
		util.LogSystemWarning(fmt.Sprintf("[Simulation] player fell out of the world at %v, respawning", p.position))
		p.position = s.spawn
		p.velocity = mgl32.Vec3{}
	}
}

// fire shoots a projectile along the aim and blows a hole where it lands.
func (s *Simulation) fire() {
	p := s.player
	aim := p.forward().Add(mgl32.Vec3{0, AIM_PITCH, 0}).Normalize()
	s.stats.Shots++
	hit, ok := s.world.QuerySphereCast(p.position, PROJECTILE_RADIUS, aim, s.config.ViewDistance)
	if !ok {
		return
	}
	s.stats.Hits++
	cleared := s.world.ClearSphere(hit.ContactPoint, s.config.ExplosionRadius)
	s.stats.VoxelsCleared += cleared
	util.LogVoxelInfo(fmt.Sprintf("[Simulation] explosion at %v cleared %d voxels", hit.ContactPoint, cleared))
}

// rebuildDirtyChunks stands in for mesh generation: it visits every stale chunk
// and marks it clean.
func (s *Simulation) rebuildDirtyChunks() {
	stop := s.world.Timer().Start("mesh_rebuild")
	defer stop()
	for chunk := range s.world.IterDirtyChunks() {
		s.stats.MeshedVoxels += chunk.SolidCount()
		chunk.SetClean()
		s.stats.MeshesRebuilt++
	}
}

// Run steps the simulation at the configured tick rate until the tick count is
// reached or ctx is done.
func (s *Simulation) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.config.TickRate))
	defer ticker.Stop()
	for s.stats.Ticks < s.config.Ticks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Step()
		}
	}
	return nil
}
