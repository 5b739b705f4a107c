package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/tsclock/tsclock/cmd/tsclock/console"
	"github.com/tsclock/tsclock/cmd/tsclock/displaytest"
	"github.com/tsclock/tsclock/cmd/tsclock/run"
	"github.com/tsclock/tsclock/cmd/tsclock/subcmd"
	"github.com/tsclock/tsclock/log2"
	"github.com/tsclock/tsclock/state"
)

var log = log2.NewStderr(log2.LDebug)

var BuildVersion string = "unknown" // set by ldflags -X

var modules = []subcmd.Mod{
	run.Mod,
	console.Mod,
	displaytest.Mod,
}

func main() {
	// secrets such as MQTT password may come from environment files
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	flagset := flag.NewFlagSet("tsclock", flag.ExitOnError)
	flagConfig := flagset.String("config", "tsclock.hcl", "")
	flagset.Usage = func() {
		fmt.Fprintf(flagset.Output(), "Usage: tsclock [-config tsclock.hcl] [command]\nCommands:\n")
		for _, m := range modules {
			fmt.Fprintf(flagset.Output(), "  %-14s %s\n", m.Name, m.Usage)
		}
		flagset.PrintDefaults()
	}
	_ = flagset.Parse(os.Args[1:])

	command := flagset.Arg(0)
	if command == "" {
		command = run.Mod.Name
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		flagset.Usage()
		log.Fatal(err)
	}

	systemd := subcmd.SdNotify("start")
	if systemd {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}
	log.Infof("tsclock version=%s command=%s", BuildVersion, mod.Name)

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	log.SetLevel(config.LogLevel())
	if config.Log.File != "" {
		var closer io.Closer
		log, closer = openLogFile(config, systemd)
		defer closer.Close()
	}

	g := state.NewGlobal(log)
	ctx := state.ContextWithGlobal(context.Background(), g)
	if err := mod.Main(ctx, config); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}

// openLogFile keeps stderr copy when interactive.
func openLogFile(config *state.Config, systemd bool) (*log2.Log, io.Closer) {
	fc := log2.FileConfig{
		Path:       config.Log.File,
		MaxSizeMB:  config.Log.MaxSizeMB,
		MaxBackups: config.Log.MaxBackups,
		Compress:   config.Log.Compress,
	}
	if systemd {
		l, closer := log2.NewFile(fc, config.LogLevel())
		l.SetFlags(log2.LStdFlags)
		return l, closer
	}
	w := log2.RotateWriter(fc)
	l := log2.Tee(config.LogLevel(), os.Stderr, w)
	l.SetFlags(log2.LInteractiveFlags)
	return l, w
}
