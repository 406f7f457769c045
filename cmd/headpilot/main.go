// Headpilot - hands-free head-pose and expression control engine.
// Estimators stream landmark frames in; executors receive intents out.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-headpilot/internal/config"
	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/engine"
	"github.com/teslashibe/go-headpilot/pkg/mqttbridge"
	"github.com/teslashibe/go-headpilot/pkg/pilot"
	"github.com/teslashibe/go-headpilot/pkg/store"
	"github.com/teslashibe/go-headpilot/pkg/web"
)

type options struct {
	addr       string
	staticDir  string
	dataDir    string
	preset     string
	configFile string
	logLevel   string
	logFile    bool
	mqtt       mqttbridge.Config
	mqttOn     bool
	noPersist  bool
	skipCalib  bool
	statusRate time.Duration
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fatal("load .env", err)
	}
	opts := parseFlags()

	paths := config.DataPaths(opts.dataDir)
	logFile := log.FileOptions{}
	if opts.logFile {
		logFile.Path = paths.Log
	}
	log.InitFile(opts.logLevel, logFile)

	cfg, err := engineConfig(opts)
	if err != nil {
		fatal("configuration", err)
	}

	var engOpts []engine.Option
	if !opts.noPersist {
		engOpts = append(engOpts, engine.WithStores(engine.Stores{
			Baseline: store.NewJSONStore(paths.Baseline),
			Profile:  store.NewJSONStore(paths.Profile),
			Settings: store.NewJSONStore(paths.Settings),
		}))
	}
	eng, err := engine.New(cfg, engOpts...)
	if err != nil {
		fatal("engine", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Error("flush persistence", "error", err)
		}
	}()
	if opts.skipCalib {
		eng.SkipCalibration()
	}

	runner := pilot.New(eng, pilot.Config{QueueSize: 4, StatusInterval: opts.statusRate})
	server := web.NewServer(web.Config{Addr: opts.addr, StaticDir: opts.staticDir}, runner)
	runner.AddSink(server)
	runner.AddStatusSink(server)

	if opts.mqttOn {
		bridge := mqttbridge.New(opts.mqtt)
		if err := bridge.Start(runner); err != nil {
			fatal("mqtt", err)
		}
		defer bridge.Close()
		runner.AddSink(bridge)
		runner.AddStatusSink(bridge)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go runner.Run(ctx)

	log.Info("headpilot starting",
		"addr", opts.addr,
		"preset", opts.preset,
		"data_dir", opts.dataDir,
		"persist", !opts.noPersist,
		"mqtt", opts.mqttOn)

	if err := server.Start(ctx); err != nil {
		log.Error("server stopped", "error", err)
		cancel()
		return
	}
	log.Info("headpilot stopped")
}

// engineConfig resolves the preset and applies the optional YAML file over it.
func engineConfig(opts options) (engine.Config, error) {
	cfg, err := engine.Preset(opts.preset)
	if err != nil {
		return cfg, err
	}
	if opts.configFile != "" {
		if cfg, err = engine.LoadConfigFile(opts.configFile, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// parseFlags parses command line flags. Environment variables supply the defaults.
func parseFlags() options {
	opts := options{mqtt: mqttbridge.DefaultConfig()}

	flag.StringVar(&opts.addr, "addr", config.String(config.EnvAddr, config.DefaultAddr), "HTTP/WebSocket listen address")
	flag.StringVar(&opts.staticDir, "static", "", "Directory of dashboard assets to serve")
	flag.StringVar(&opts.dataDir, "data", config.String(config.EnvDataDir, config.DefaultDataDir), "Directory for baseline, profile and settings")
	flag.StringVar(&opts.preset, "preset", config.String(config.EnvPreset, "default"), "Engine preset: default, relaxed, responsive")
	flag.StringVar(&opts.configFile, "config", config.String(config.EnvConfig, ""), "YAML file applied over the preset")
	flag.StringVar(&opts.logLevel, "log-level", config.String(config.EnvLogLevel, config.DefaultLogLevel), "Log level: debug, info, warn, error")
	flag.BoolVar(&opts.logFile, "log-file", config.Bool(config.EnvLogFile, false), "Also write a rotated log file in the data directory")
	flag.BoolVar(&opts.noPersist, "no-persist", false, "Keep baseline, profile and settings in memory only")
	flag.BoolVar(&opts.skipCalib, "skip-calibration", false, "Start with a zero baseline")
	flag.DurationVar(&opts.statusRate, "status-interval", 200*time.Millisecond, "Status push interval")

	broker := flag.String("mqtt", config.String(config.EnvMQTTBroker, ""), "MQTT broker URL, e.g. tcp://localhost:1883 (empty disables)")
	flag.StringVar(&opts.mqtt.Prefix, "mqtt-prefix", opts.mqtt.Prefix, "MQTT topic prefix")
	flag.StringVar(&opts.mqtt.ClientID, "mqtt-client-id", opts.mqtt.ClientID, "MQTT client ID")
	debug := flag.Bool("debug", false, "Shorthand for -log-level debug")

	flag.Parse()

	if *debug {
		opts.logLevel = "debug"
	}
	if *broker != "" {
		opts.mqttOn = true
		opts.mqtt.Broker = *broker
		opts.mqtt.Username = os.Getenv(config.EnvMQTTUser)
		opts.mqtt.Password = os.Getenv(config.EnvMQTTPass)
	}
	return opts
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "❌ %s: %v\n", what, err)
	os.Exit(1)
}
