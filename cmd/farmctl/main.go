// cmd/farmctl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// Version is set via linker flags.
var Version = "dev"

// Flags shared by every command.
var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "farm configuration file",
		Value:   "farm.yaml",
		EnvVars: []string{"TOKENFARM_CONFIG"},
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "caller address or role name (owner, operator, dev); defaults to the owner",
	}
	rawFlag = &cli.BoolFlag{
		Name:  "raw",
		Usage: "read and print amounts in base units instead of whole tokens",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "log to the console as well as the log file",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "farmctl",
		Usage:   "operate a reflective-tax reward token and its yield farm",
		Version: Version,
		Flags:   []cli.Flag{configFlag, fromFlag, rawFlag, jsonFlag, verboseFlag},
		Commands: []*cli.Command{
			commandInit,
			commandStatus,
			commandAccount,
			commandSnapshots,
			commandMetrics,
			commandAdvance,
			commandToken,
			commandFarm,
			commandDex,
			commandAdmin,
			commandUnlock,
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
