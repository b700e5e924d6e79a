package main

// Simulation defaults. Arena size is configuration, not a constant the
// core depends on; these only seed SimConfig.
const (
	DefaultWorldWidth  = 2500.0
	DefaultWorldHeight = 1200.0

	DefaultCellSize = 24.0
	MinCellSize     = 8.0

	DefaultSpawnCount  = 4
	DefaultSpawnRadius = 8.0
	DefaultSpawnSpeed  = 64.0 // units/sec

	DefaultTickRate = 30
	FastTickRate    = 120

	// Spawn requests beyond this are truncated, matching the cap the
	// command surface advertises.
	MaxSpawnPerCommand = 10000
)
