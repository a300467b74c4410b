package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/marmal95/quadtree/featureflag"
	qthttp "github.com/marmal95/quadtree/http"
	"github.com/marmal95/quadtree/loadtest"
	"github.com/marmal95/quadtree/quadtree"
	"github.com/marmal95/quadtree/smoketest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The harness version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "quadtree_harness_info",
		Help:        "Quadtree harness information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	AdminAddr         string        `cli:""        env:"QUADTREE_ADMIN_ADDR"          help:"Admin listening address."`
	LogLevel          string        `cli:""        env:"QUADTREE_LOG_LEVEL"           help:"Log level (debug|info|warning|error)."`
	LogIndent         bool          `cli:""        env:"QUADTREE_LOG_INDENT"          help:"Indent logs."`
	WorldWidth        float64       `cli:",hidden" env:"QUADTREE_WORLD_WIDTH"         help:"The width of the soak world."`
	WorldHeight       float64       `cli:",hidden" env:"QUADTREE_WORLD_HEIGHT"        help:"The height of the soak world."`
	MaxDepth          uint          `cli:""        env:"QUADTREE_MAX_DEPTH"           help:"The maximum tree depth."`
	MaxObjectsPerNode int           `cli:""        env:"QUADTREE_MAX_OBJECTS"         help:"The number of objects a node holds before it splits."`
	AgentCount        int           `cli:""        env:"QUADTREE_AGENT_COUNT"         help:"The number of soak agents."`
	FrameCount        int           `cli:",hidden" env:"QUADTREE_FRAME_COUNT"         help:"The number of soak frames to run."`
	FrameDuration     time.Duration `cli:",hidden" env:"QUADTREE_FRAME_DURATION"      help:"The duration of a soak frame."`
	Seed              int           `cli:",hidden" env:"QUADTREE_SEED"                help:"The seed for the soak world script."`
	FeatureFlags      []string      `cli:",hidden" env:"QUADTREE_FEATURE_FLAGS"       help:"Comma separated feature flags"`
	Version           bool          `cli:""        env:"-"                            help:"Show version."`
	Help              bool          `cli:""        env:"-"                            help:"Show help."`
}

func main() {
	conf := config{
		AdminAddr:         ":18190",
		LogLevel:          logs.InfoLevel.String(),
		WorldWidth:        1000,
		WorldHeight:       1000,
		MaxDepth:          5,
		MaxObjectsPerNode: 8,
		AgentCount:        500,
		FrameCount:        10000,
		FrameDuration:     time.Millisecond * 15,
		Seed:              42,
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Runs the quadtree soak harness.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	bounds := quadtree.NewBounds(
		quadtree.Vec2{X: 0, Y: 0},
		quadtree.Vec2{X: (float32)(conf.WorldWidth), Y: (float32)(conf.WorldHeight)},
	)

	var ready atomic.Bool
	readinessCheck := ready.Load

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.Handle("/health", qthttp.HandleWithCORS(http.HandlerFunc(qthttp.HandleHealthCheck)))
	admin.Handle("/version", qthttp.HandleWithCORS(http.HandlerFunc(qthttp.HandleVersion(version))))
	admin.Handle("/ready", qthttp.HandleWithCORS(qthttp.HandleReadyCheck(readinessCheck)))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))

	go func() {
		defer cancel()

		res, err := smoketest.Run(ctx, smoketest.Options{
			Bounds:            bounds,
			MaxDepth:          (uint32)(conf.MaxDepth),
			MaxObjectsPerNode: conf.MaxObjectsPerNode,
		})
		if err != nil {
			logs.Fatal(errors.New("running the smoke test failed").Wrap(err))
		}
		if !res.Passed {
			logs.Fatal(errors.New("smoke test checks failed").
				WithTag("checks", len(res.Checks)))
		}
		logs.WithTag("checks", len(res.Checks)).
			WithTag("duration", res.Duration).
			Info("smoke test passed")
		ready.Store(true)

		world, err := loadtest.NewWorld(loadtest.Options{
			Bounds:            bounds,
			AgentCount:        conf.AgentCount,
			MaxDepth:          (uint32)(conf.MaxDepth),
			MaxObjectsPerNode: conf.MaxObjectsPerNode,
			Seed:              (int64)(conf.Seed),
			FeatureFlags:      featureflag.New(conf.FeatureFlags),
		})
		if err != nil {
			logs.Fatal(errors.New("creating the soak world failed").Wrap(err))
		}

		if err := world.Run(ctx, conf.FrameCount, conf.FrameDuration); err != nil && err != context.Canceled {
			logs.Warn(errors.New("soak run stopped").Wrap(err))
			return
		}
		logs.WithTag("frames", conf.FrameCount).Info("soak run done")
	}()

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("admin_addr", conf.AdminAddr).
		WithTag("agent_count", conf.AgentCount).
		Info("starting quadtree harness")

	qthttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.AdminAddr, Handler: metrics.HTTPHandler(&admin,
			qthttp.MetricsPathFormatter)},
	)
}
