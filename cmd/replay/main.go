// Replay streams a recorded landmark session to a running headpilot as if
// it came from a live estimator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/go-headpilot/internal/config"
	"github.com/teslashibe/go-headpilot/internal/httpc"
	"github.com/teslashibe/go-headpilot/internal/log"
	"github.com/teslashibe/go-headpilot/pkg/estimator"
)

func main() {
	_ = config.LoadEnv()

	host := "localhost" + config.String(config.EnvAddr, config.DefaultAddr)
	url := flag.String("url", "ws://"+host+"/ws/estimator", "Ingest endpoint")
	api := flag.String("api", "http://"+host, "REST API base for -control")
	control := flag.String("control", "", "Comma-separated commands sent before replay, e.g. skip_calibration,enable")
	file := flag.String("file", "", "JSONL recording to replay (required)")
	speed := flag.Float64("speed", 1, "Playback speed multiplier")
	loop := flag.Bool("loop", false, "Repeat the recording until interrupted")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log.Init(*level)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: replay -file session.jsonl [-url ws://host:8090/ws/estimator] [-speed 2] [-loop]")
		os.Exit(2)
	}

	f, err := os.Open(*file)
	if err != nil {
		fatal(err)
	}
	recs, err := estimator.ReadRecording(f)
	f.Close()
	if err != nil {
		fatal(err)
	}
	if len(recs) == 0 {
		fatal(fmt.Errorf("%s: no frames", *file))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *control != "" {
		rest := httpc.New(*api)
		for _, cmd := range strings.Split(*control, ",") {
			if err := rest.Control(ctx, strings.TrimSpace(cmd)); err != nil {
				fatal(fmt.Errorf("control %s: %w", cmd, err))
			}
			log.Info("control sent", "command", cmd)
		}
	}

	client := estimator.NewClient(*url)
	if err := client.Connect(ctx); err != nil {
		fatal(err)
	}
	defer client.Close()

	span := time.Duration(recs[len(recs)-1].OffsetMS) * time.Millisecond
	log.Info("replaying", "file", *file, "frames", len(recs), "span", span, "speed", *speed)

	for pass := 1; ; pass++ {
		n, err := estimator.Replay(ctx, client, recs, *speed)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error("replay failed", "pass", pass, "sent", n, "error", err)
			break
		}
		client.Ping()
		log.Info("pass complete", "pass", pass, "sent", client.Sent(),
			"rejected", client.Rejected(), "latency", client.Latency())
		if !*loop {
			break
		}
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	os.Exit(1)
}
