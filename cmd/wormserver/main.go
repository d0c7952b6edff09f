// Command wormserver runs the authoritative worm-game server.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-envparse"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/net/netutil"

	"github.com/wormnet/wormwire/pkg/wormserver"
)

var opt struct {
	Width        uint32
	Height       uint32
	Port         uint16
	RoundsPerSec uint32
	TurningSpeed float64
	Seed         uint32
	EnvFile      string
	LogLevel     string
	LogPretty    bool
	DebugAddr    string
	Help         bool
}

func init() {
	pflag.Uint32VarP(&opt.Width, "width", "W", wormserver.DefaultBoardWidth, "Board width")
	pflag.Uint32VarP(&opt.Height, "height", "H", wormserver.DefaultBoardHeight, "Board height")
	pflag.Uint16VarP(&opt.Port, "port", "p", wormserver.DefaultPort, "UDP port to listen on")
	pflag.Uint32VarP(&opt.RoundsPerSec, "rounds-per-sec", "s", wormserver.DefaultRoundsPerSec, "Simulation tick rate")
	pflag.Float64VarP(&opt.TurningSpeed, "turning-speed", "t", wormserver.DefaultTurningSpeed, "Degrees turned per tick per unit of turn_direction")
	pflag.Uint32VarP(&opt.Seed, "seed", "r", 0, "PRNG seed (defaults to wall-clock seconds since epoch)")
	pflag.StringVar(&opt.EnvFile, "envfile", "", "Read KEY=VALUE defaults for unset flags from this file")
	pflag.StringVar(&opt.LogLevel, "log-level", "info", "Minimum log level (trace, debug, info, warn, error)")
	pflag.BoolVar(&opt.LogPretty, "log-pretty", isTTY(os.Stderr), "Use console-pretty (non-JSON) logs")
	pflag.StringVar(&opt.DebugAddr, "debug-addr", "", "If set, serve /debug/metrics and /debug/eventlog on this address")
	pflag.BoolVarP(&opt.Help, "help", "h", false, "Show this help text")
}

func main() {
	pflag.CommandLine.Init(os.Args[0], pflag.ContinueOnError)
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\nusage: %s [options]\n\noptions:\n%s", err, os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(1)
	}
	applyEnvFileDefaults()

	if opt.Help {
		fmt.Printf("usage: %s [options]\n\noptions:\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(0)
	}
	if pflag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [options]\n\noptions:\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(1)
	}

	if opt.Width < 1 || opt.Height < 1 || opt.RoundsPerSec < 1 || opt.TurningSpeed < 0 {
		fmt.Fprintln(os.Stderr, "error: invalid board/rate arguments")
		os.Exit(1)
	}

	if !pflag.CommandLine.Changed("seed") {
		opt.Seed = uint32(time.Now().Unix())
	}

	logger := newLogger(opt.LogLevel, opt.LogPretty)

	cfg := wormserver.Config{
		BoardW:       opt.Width,
		BoardH:       opt.Height,
		Port:         opt.Port,
		RoundsPerSec: opt.RoundsPerSec,
		TurningSpeed: opt.TurningSpeed,
		Seed:         opt.Seed,
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(cfg.Port)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: listen udp: %v\n", err)
		os.Exit(1)
	}

	srv := wormserver.NewServer(conn, cfg, logger)

	if opt.DebugAddr != "" {
		startDebugServer(srv, opt.DebugAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Uint32("seed", cfg.Seed).Uint32("board_w", cfg.BoardW).Uint32("board_h", cfg.BoardH).Uint16("port", cfg.Port).Msg("starting wormserver")

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: run server: %v\n", err)
		os.Exit(1)
	}
}

// startDebugServer exposes /debug/metrics and /debug/eventlog (a gzip
// dump of the current game's log) behind a connection-limited listener.
func startDebugServer(srv *wormserver.Server, addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/metrics", func(w http.ResponseWriter, r *http.Request) {
		srv.WritePrometheus(w)
	})
	mux.HandleFunc("/debug/eventlog", func(w http.ResponseWriter, r *http.Request) {
		srv.WriteEventLogGzip(w)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to start debug server")
		return
	}
	ln = netutil.LimitListener(ln, 8)

	go func() {
		logger.Warn().Str("addr", addr).Msg("running insecure debug server")
		if err := http.Serve(ln, mux); err != nil {
			logger.Warn().Err(err).Msg("debug server exited")
		}
	}()
}

// envFlagNames maps the KEY=VALUE names recognized in -envfile to the pflag
// flag they default.
var envFlagNames = map[string]string{
	"WIDTH":          "width",
	"HEIGHT":         "height",
	"PORT":           "port",
	"ROUNDS_PER_SEC": "rounds-per-sec",
	"TURNING_SPEED":  "turning-speed",
	"SEED":           "seed",
	"LOG_LEVEL":      "log-level",
	"LOG_PRETTY":     "log-pretty",
	"DEBUG_ADDR":     "debug-addr",
}

// applyEnvFileDefaults reads KEY=VALUE pairs from -envfile and applies each
// as a flag default, but only for flags the command line left unset;
// explicit flags always win.
func applyEnvFileDefaults() {
	if opt.EnvFile == "" {
		return
	}
	f, err := os.Open(opt.EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: read envfile: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	m, err := envparse.Parse(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: parse envfile: %v\n", err)
		os.Exit(1)
	}
	for envKey, flagName := range envFlagNames {
		v, ok := m[envKey]
		if !ok || pflag.CommandLine.Changed(flagName) {
			continue
		}
		if err := pflag.CommandLine.Set(flagName, v); err != nil {
			fmt.Fprintf(os.Stderr, "error: apply %s from envfile: %v\n", envKey, err)
			os.Exit(1)
		}
	}
}

func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
