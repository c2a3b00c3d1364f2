package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/hagall-rooms/collision"
	"github.com/aukilabs/hagall-rooms/featureflag"
	"github.com/aukilabs/hagall-rooms/geom"
	roomshttp "github.com/aukilabs/hagall-rooms/http"
	"github.com/aukilabs/hagall-rooms/models"
	"github.com/aukilabs/hagall-rooms/simulation"
	"github.com/aukilabs/hagall-rooms/smoketest"
	roomswebsocket "github.com/aukilabs/hagall-rooms/websocket"
	"github.com/aukilabs/hagall-rooms/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeInvalidConfig = "invalid_config"
)

var (
	// The version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "rooms_info",
		Help:        "Rooms server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr              string          `cli:""        env:"ROOMS_ADDR"               help:"Listening address for client connections."`
	AdminAddr         string          `cli:""        env:"ROOMS_ADMIN_ADDR"         help:"Admin listening address."`
	PublicEndpoint    string          `cli:""        env:"ROOMS_PUBLIC_ENDPOINT"    help:"The public endpoint where this server is reachable."`
	ServerID          string          `cli:""        env:"ROOMS_SERVER_ID"          help:"The id of this server, used as global session id prefix."`
	LogLevel          string          `cli:""        env:"ROOMS_LOG_LEVEL"          help:"Log level (debug|info|warning|error)."`
	LogIndent         bool            `cli:""        env:"ROOMS_LOG_INDENT"         help:"Indent logs."`
	Sessions          int             `cli:""        env:"ROOMS_SESSIONS"           help:"The number of simulated worlds."`
	FrameDuration     time.Duration   `cli:",hidden" env:"ROOMS_FRAME_DURATION"     help:"The duration of a simulation frame."`
	ExecutionDuration time.Duration   `cli:""        env:"ROOMS_EXECUTION_DURATION" help:"The time after which the simulation stops. 0 runs forever."`
	Collision         collisionConfig `cli:",hidden" env:"-"                        help:"Collision configuration."`
	World             worldConfig     `cli:",hidden" env:"-"                        help:"Demo world configuration."`
	Events            eventsConfig    `cli:",hidden" env:"-"                        help:"Event pusher configuration."`
	FeatureFlags      []string        `cli:",hidden" env:"ROOMS_FEATURE_FLAGS"      help:"Comma separated feature flags"`
	Version           bool            `cli:""        env:"-"                        help:"Show version."`
	Help              bool            `cli:""        env:"-"                        help:"Show help."`
}

type collisionConfig struct {
	Granularity   int    `cli:",hidden" env:"ROOMS_COLLISION_GRANULARITY"    help:"The number of samples of a collision sweep."`
	Strategy      string `cli:",hidden" env:"ROOMS_COLLISION_STRATEGY"       help:"The collision strategy (sequential|parallel|gpu)."`
	Workers       int    `cli:",hidden" env:"ROOMS_COLLISION_WORKERS"        help:"The number of workers of parallel fan-outs. 0 uses every CPU."`
	WorkgroupSize int    `cli:",hidden" env:"ROOMS_COLLISION_WORKGROUP_SIZE" help:"The workgroup size of the compute device."`
}

type worldConfig struct {
	Rooms          int    `cli:",hidden" env:"ROOMS_WORLD_ROOMS"            help:"The number of rooms of a world."`
	RoomBoxes      string `cli:",hidden" env:"ROOMS_WORLD_ROOM_BOXES"       help:"The number of grid boxes of a room (x,y,z)."`
	RoomBoxDim     string `cli:",hidden" env:"ROOMS_WORLD_ROOM_BOX_DIM"     help:"The dimension of a room grid box (x,y,z)."`
	UniverseBoxDim string `cli:",hidden" env:"ROOMS_WORLD_UNIVERSE_BOX_DIM" help:"The dimension of a universe grid box (x,y,z)."`
	Walkers        int    `cli:",hidden" env:"ROOMS_WORLD_WALKERS"          help:"The number of walkers per room."`
	Speed          string `cli:",hidden" env:"ROOMS_WORLD_SPEED"            help:"The distance a walker travels per frame."`
	Seed           int    `cli:",hidden" env:"ROOMS_WORLD_SEED"             help:"The seed of the world generation."`
	TurnEvery      int    `cli:",hidden" env:"ROOMS_WORLD_TURN_EVERY"       help:"The number of frames between two walker turns."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"ROOMS_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"ROOMS_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"ROOMS_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"ROOMS_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:           ":4000",
		AdminAddr:      ":18190",
		PublicEndpoint: "http://localhost:4000",
		LogLevel:       logs.InfoLevel.String(),
		Sessions:       1,
		FrameDuration:  time.Millisecond * 15,
		Collision: collisionConfig{
			Granularity:   16,
			Strategy:      collision.StrategyParallel,
			WorkgroupSize: 64,
		},
		World: worldConfig{
			Rooms:          3,
			RoomBoxes:      "4,3,4",
			RoomBoxDim:     "4,1,4",
			UniverseBoxDim: "8,3,8",
			Walkers:        8,
			Speed:          "0.05",
			Seed:           1,
			TurnEvery:      120,
		},
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts a rooms simulation server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	worldConf, err := validateConfig(conf)
	if err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "hagall-rooms",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	flags := featureflag.New(conf.FeatureFlags)
	sessions := models.SessionStore{ServerID: conf.ServerID}

	executor, err := collision.NewExecutor(conf.Collision.Strategy, conf.Collision.Workers, collision.HostDevice{
		WorkgroupSize: conf.Collision.WorkgroupSize,
	})
	if err != nil {
		logs.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < conf.Sessions; i++ {
		c := worldConf
		c.Seed += int64(i)
		session := newSession(&sessions, c, executor, conf, flags)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sessions.Remove(session)

			err := session.StartDispatchFrames(ctx)
			switch {
			case err == nil:

			case errors.Type(err) == models.ErrTypeExecutionTimeElapsed:
				logs.WithTag("session_id", session.ID).
					WithTag("reason", err.Error()).
					Info("simulation finished")
				cancel()

			default:
				logs.Fatal(err)
			}
		}()
	}

	readyCheck := roomshttp.HandleReadyCheck(&sessions, conf.Sessions)
	versionInfo := roomshttp.HandleVersion(roomshttp.Version{
		Version:     version,
		Strategy:    executor.Name(),
		Granularity: conf.Collision.Granularity,
	})

	feed := roomswebsocket.FeedHandler{
		Sessions:       &sessions,
		PublicEndpoint: conf.PublicEndpoint,
	}

	var service http.ServeMux
	service.Handle("/health", roomshttp.HandleWithCORS(http.HandlerFunc(roomshttp.HandleHealthCheck)))
	service.Handle("/version", roomshttp.HandleWithCORS(versionInfo))
	service.Handle("/ready", roomshttp.HandleWithCORS(readyCheck))
	service.Handle("/debug/grids", roomshttp.HandleWithCORS(roomshttp.HandleGridDebug(&sessions)))
	service.Handle("/feed", websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			feed.Handle(ctx, conn)
		},
	})
	service.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:  conf.PublicEndpoint,
		UserAgent: fmt.Sprintf("hagall-rooms %s", version),
	}))
	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", roomshttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.Handle("/ready", readyCheck)

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("strategy", executor.Name()).
		WithTag("granularity", conf.Collision.Granularity).
		WithTag("sessions", conf.Sessions).
		Info("starting rooms server")

	roomshttp.ListenAndServe(ctx, &sessions,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			roomshttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)

	wg.Wait()
}

func newSession(sessions *models.SessionStore, c world.Config, executor collision.Executor, conf config, flags featureflag.FeatureFlag) *models.Session {
	w := world.Build(c)

	engine := simulation.NewEngine(collision.NewEngine(conf.Collision.Granularity, executor), conf.Collision.Workers)
	flags.IfSet(featureflag.FlagDisableTickMetrics, engine.DisableMetrics)

	session := models.NewSession(sessions.NewID(), w.Root, engine, conf.FrameDuration)
	session.World = "rooms"
	session.MaxExecutionDuration = conf.ExecutionDuration

	flags.IfNotSet(featureflag.FlagDisableWander, func() {
		wanderer := world.NewWanderer(w, c.Seed, c.Speed, uint64(conf.World.TurnEvery))
		session.HandleInput(wanderer.Input)
	})
	flags.IfNotSet(featureflag.FlagDisableSceneStateBroadcast, func() {
		session.HandleFrame(session.BroadcastState)
	})

	sessions.Add(session)
	logs.WithTag("session_id", sessions.GlobalSessionID(session.ID)).
		WithTag("rooms", len(w.Rooms)).
		WithTag("walkers", len(w.Walkers)).
		Info("world built")
	return session
}

func validateConfig(conf config) (world.Config, error) {
	var c world.Config

	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return c, errors.New("invalid public endpoint").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	if conf.Sessions <= 0 {
		return c, errors.New("at least one session is required").
			WithType(ErrTypeInvalidConfig).
			WithTag("sessions", conf.Sessions)
	}

	if conf.FrameDuration <= 0 {
		return c, errors.New("frame duration must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("frame_duration", conf.FrameDuration)
	}

	if conf.Collision.Granularity <= 0 {
		return c, errors.New("collision granularity must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("granularity", conf.Collision.Granularity)
	}

	if _, err := collision.ParseStrategy(conf.Collision.Strategy); err != nil {
		return c, errors.New("invalid collision strategy").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	roomBoxes, err := geom.ParseVector3i(conf.World.RoomBoxes)
	if err != nil {
		return c, errors.New("invalid room boxes").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	roomBoxDim, err := geom.ParseVector3f(conf.World.RoomBoxDim)
	if err != nil {
		return c, errors.New("invalid room box dimension").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	universeBoxDim, err := geom.ParseVector3f(conf.World.UniverseBoxDim)
	if err != nil {
		return c, errors.New("invalid universe box dimension").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	speed, err := strconv.ParseFloat(conf.World.Speed, 32)
	if err != nil {
		return c, errors.New("invalid walker speed").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	c = world.DefaultConfig()
	c.Rooms = conf.World.Rooms
	c.RoomBoxes = roomBoxes
	c.RoomBoxDim = roomBoxDim
	c.UniverseBoxDim = universeBoxDim
	c.WalkersPerRoom = conf.World.Walkers
	c.Speed = (float32)(speed)
	c.Seed = int64(conf.World.Seed)
	return c, nil
}
