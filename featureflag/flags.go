package featureflag

type Flag string

const (
	// Stops sending session states to feed clients.
	FlagDisableSceneStateBroadcast Flag = "DISABLE_SCENE_STATE_BROADCAST"

	// Stops recording per tick Prometheus metrics.
	FlagDisableTickMetrics Flag = "DISABLE_TICK_METRICS"

	// Stops the demo walkers from changing direction.
	FlagDisableWander Flag = "DISABLE_WANDER"
)
