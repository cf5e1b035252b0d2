package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/llehouerou/vorbisdemux/internal/config"
	"github.com/llehouerou/vorbisdemux/internal/errmsg"
	"github.com/llehouerou/vorbisdemux/internal/logging"
)

const (
	envConfig   = "VORBISDEMUX_CONFIG"
	envLogLevel = "VORBISDEMUX_LOG_LEVEL"
)

type app struct {
	cfg *config.Config
	log zerolog.Logger
	out io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"inspect": {"inspect [-verify] [-no-cache] FILE...", runInspect},
		"packets": {"packets [-limit N] FILE", runPackets},
		"decode":  {"decode FILE OUT.wav", runDecode},
		"feed":    {"feed [-chunk N] [-rate BYTES/S] FILE", runFeed},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errmsg.Wrap(errmsg.OpConfigLoad, ".env", err)
	}

	fset := flag.NewFlagSet("vorbisdemux", flag.ContinueOnError)
	fset.SetOutput(stderr)
	configPath := fset.String("config", os.Getenv(envConfig), "config file (default: standard locations)")
	fset.Usage = func() { printUsage(stderr) }
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() == 0 {
		printUsage(stderr)
		return errors.New("no command given")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logCfg := cfg.GetLogConfig()
	if level := os.Getenv(envLogLevel); level != "" {
		logCfg.Level = level
	}

	a := &app{
		cfg: cfg,
		log: logging.New(logCfg, stderr),
		out: stdout,
	}

	name := fset.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		if s := suggest(name); s != "" {
			return fmt.Errorf("unknown command %q, did you mean %q?", name, s)
		}
		return fmt.Errorf("unknown command %q", name)
	}
	return cmd.run(ctx, a, fset.Args()[1:])
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, errmsg.Wrap(errmsg.OpConfigLoad, "", err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, errmsg.Wrap(errmsg.OpConfigLoad, path, err)
	}
	return cfg, nil
}

// suggest returns the command closest to name, if any is close enough to
// be a typo.
func suggest(name string) string {
	best, bestDist := "", 3
	for _, c := range commandNames() {
		if d := edlib.LevenshteinDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printUsage(w io.Writer) {
	var b strings.Builder
	b.WriteString("usage: vorbisdemux [-config FILE] COMMAND [ARGS]\n\ncommands:\n")
	for _, name := range commandNames() {
		fmt.Fprintf(&b, "  %s\n", commands[name].usage)
	}
	fmt.Fprint(w, b.String())
}

// newFlagSet returns a flag set for a subcommand that reports its usage line.
func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.SetOutput(out)
	fset.Usage = func() {
		fmt.Fprintf(out, "usage: vorbisdemux %s\n", commands[name].usage)
		fset.PrintDefaults()
	}
	return fset
}
