// mboxctl talks to the VideoCore firmware through the property mailbox.
//
// Usage:
//
//	mboxctl [--config f] [--backend sim|mmio|vcio] [--trace f] [--log-level l] <command> [args]
//
// Commands:
//
//	info                          board, firmware and memory split
//	memory                        ARM and VideoCore memory split
//	clock get|max|min|state <c>   read a clock
//	clock set <c> <hz>            set a clock rate
//	clock on|off <c>              start or stop a clock
//	power get <device>            read a power domain
//	power on|off <device>         switch a power domain, waiting for it
//	temp                          SoC temperature and limit
//	fb [flags]                    set up the framebuffer and draw into it
//	trace <file>                  print a CBOR exchange trace
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"vcmailbox/internal/backend"
	"vcmailbox/internal/config"
	"vcmailbox/internal/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		backendArg string
		tracePath  string
		logLevel   string
	)
	flags := pflag.NewFlagSet("mboxctl", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: mboxctl [flags] <command> [args]\n\nFlags:\n")
		flags.PrintDefaults()
	}
	flags.StringVar(&configPath, "config", "", "config file (default $"+config.EnvConfig+")")
	flags.StringVar(&backendArg, "backend", "", "override the backend: sim, mmio or vcio")
	flags.StringVar(&tracePath, "trace", "", "append a CBOR trace of every exchange to this file")
	flags.StringVar(&logLevel, "log-level", "", "trace, debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return fmt.Errorf("%w: no command", errUsage)
	}

	// trace only reads a file; no mailbox needed.
	if rest[0] == "trace" {
		return cmdTrace(stdout, rest[1:])
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if backendArg != "" {
		cfg.Backend = backendArg
	}
	if tracePath != "" {
		cfg.Trace = tracePath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(stderr, cfg.LogLevel)
	b, err := backend.Open(cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
	}
	return cmd(b, stdout, rest[1:])
}
