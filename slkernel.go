// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"goki.dev/slkernel/slc"
)

// command is one subcommand of slkernel.
type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, cfg *Config, args []string) int
}

type commandHelp struct {
	usage   string
	summary string
}

// globalFlags are shared by every command and override the
// configuration file.
type globalFlags struct {
	config    string
	out       string
	exclude   []string
	debug     bool
	companion bool
	words     int
	model     string
}

func (g *globalFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&g.config, "config", ConfigFile, "configuration file, ignored when missing")
	flags.StringVar(&g.out, "out", "", "output directory for shader code and descriptors (default \"shaders\")")
	flags.StringSliceVar(&g.exclude, "exclude", nil, "names of kernels to skip")
	flags.BoolVar(&g.debug, "debug", false, "log per-stage cache reasons and fingerprints")
	flags.BoolVar(&g.companion, "companion", false, "write a <kernel>_sl.go companion file next to each kernel")
	flags.IntVar(&g.words, "max-constant-words", 0, "constant buffer limit in 32-bit words (default 64)")
	flags.StringVar(&g.model, "shader-model", "", "shader model of the emitted profile, as in 6.0")
}

// config loads the configuration file and applies the flags that were set.
func (g *globalFlags) load(flags *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadConfig(g.config, &cfg); err != nil {
		return nil, err
	}
	if flags.Changed("out") {
		cfg.Out = g.out
	}
	if flags.Changed("exclude") {
		cfg.Exclude = g.exclude
	}
	if flags.Changed("debug") {
		cfg.Debug = g.debug
	}
	if flags.Changed("companion") {
		cfg.Companion = g.companion
	}
	if flags.Changed("max-constant-words") {
		cfg.MaxConstantWords = g.words
	}
	if flags.Changed("shader-model") {
		cfg.ShaderModel = g.model
	}
	return &cfg, cfg.Validate()
}

func setLogger(cfg *Config) {
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newRoot(ctx context.Context, exit func(int)) *cobra.Command {
	var gf globalFlags
	root := &cobra.Command{
		Use:   "slkernel [flags] [command] [packages]",
		Short: "slkernel translates Go kernel types to HLSL compute shaders",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
	}
	gf.register(root.PersistentFlags())

	bind := func(cmd command, c *cobra.Command) {
		cmd.flags(c.Flags())
		c.RunE = func(c *cobra.Command, args []string) error {
			cfg, err := gf.load(c.Flags())
			if err != nil {
				return err
			}
			setLogger(cfg)
			exit(cmd.run(ctx, cfg, args))
			return nil
		}
	}

	commands := []command{&cmdTranslate{}, &cmdCheck{}, &cmdWatch{}}
	for _, cmd := range commands {
		h := cmd.help()
		c := &cobra.Command{Use: h.usage, Short: h.summary}
		bind(cmd, c)
		root.AddCommand(c)
	}
	// translate is the default command
	bind(&cmdTranslate{}, root)
	return root
}

func main() {
	root := newRoot(context.Background(), os.Exit)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
