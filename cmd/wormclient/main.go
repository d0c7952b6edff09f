// Command wormclient connects to a wormserver game server and bridges its
// event stream to a local interactive front-end process.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-envparse"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/wormnet/wormwire/pkg/wireproto"
	"github.com/wormnet/wormwire/pkg/wormclient"
)

const (
	defaultGamePort = 12345
	defaultUIHost   = "localhost"
	defaultUIPort   = 12346
)

var opt struct {
	EnvFile   string
	LogLevel  string
	LogPretty bool
	Help      bool
}

func init() {
	pflag.StringVar(&opt.EnvFile, "envfile", "", "Read KEY=VALUE defaults for unset flags from this file")
	pflag.StringVar(&opt.LogLevel, "log-level", "info", "Minimum log level (trace, debug, info, warn, error)")
	pflag.BoolVar(&opt.LogPretty, "log-pretty", isTTY(os.Stderr), "Use console-pretty (non-JSON) logs")
	pflag.BoolVarP(&opt.Help, "help", "h", false, "Show this help text")
}

func main() {
	pflag.CommandLine.Init(os.Args[0], pflag.ContinueOnError)
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\nusage: %s [options] player_name game_server_host[:port] [ui_server_host[:port]]\n\noptions:\n%s", err, os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(1)
	}
	applyEnvFileDefaults()

	if opt.Help {
		fmt.Printf("usage: %s [options] player_name game_server_host[:port] [ui_server_host[:port]]\n\noptions:\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(0)
	}
	args := pflag.Args()
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintf(os.Stderr, "usage: %s [options] player_name game_server_host[:port] [ui_server_host[:port]]\n\noptions:\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(1)
	}

	playerName := args[0]
	if playerName == `""` {
		playerName = ""
	}
	if err := wireproto.ValidatePlayerName([]byte(playerName), true); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid player_name: %v\n", err)
		os.Exit(1)
	}

	gameAddr, err := hostPort(args[1], defaultGamePort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid game server address: %v\n", err)
		os.Exit(1)
	}

	uiArg := fmt.Sprintf("%s:%d", defaultUIHost, defaultUIPort)
	if len(args) == 3 {
		uiArg = args[2]
	}
	uiAddr, err := hostPort(uiArg, defaultUIPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid ui server address: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(opt.LogLevel, opt.LogPretty)

	serverConn, err := net.Dial("udp", gameAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: dial game server: %v\n", err)
		os.Exit(1)
	}

	feConn, err := net.Dial("tcp", uiAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: dial ui server: %v\n", err)
		os.Exit(1)
	}
	if tc, ok := feConn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	sessionID := uint64(time.Now().UnixNano())

	c := wormclient.NewClient(serverConn, feConn, sessionID, playerName, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("player", playerName).Str("server", gameAddr).Str("ui", uiAddr).Msg("starting wormclient")

	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// envFlagNames maps the KEY=VALUE names recognized in -envfile to the pflag
// flag they default.
var envFlagNames = map[string]string{
	"LOG_LEVEL":  "log-level",
	"LOG_PRETTY": "log-pretty",
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

// hostPort splits host[:port] (where host may be an IPv6 literal in
// brackets) and fills in defaultPort when no port is given.
func hostPort(s string, defaultPort int) (string, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		// no port; s may still be a bracketed IPv6 literal
		host = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		port = strconv.Itoa(defaultPort)
	}
	if host == "" {
		return "", fmt.Errorf("empty host in %q", s)
	}
	return net.JoinHostPort(host, port), nil
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
