// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"goki.dev/slkernel/slc"
)

type cmdWatch struct {
	delay time.Duration
}

func (*cmdWatch) help() *commandHelp {
	return &commandHelp{
		usage:   "watch [packages]",
		summary: "translate kernels again whenever their sources change",
	}
}

func (cmd *cmdWatch) flags(flags *pflag.FlagSet) {
	flags.DurationVar(&cmd.delay, "delay", 200*time.Millisecond, "time to wait for more changes before translating")
}

func (cmd *cmdWatch) run(ctx context.Context, cfg *Config, args []string) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer w.Close()

	s := newSession(cfg, args)
	once := func() {
		prog, err := s.load()
		if err != nil {
			fmt.Fprintln(s.stderr, err)
			return
		}
		for _, pkg := range prog.Packages {
			if pkg.Dir == "" {
				continue
			}
			if err := w.Add(pkg.Dir); err != nil {
				slc.Logger().Warn("watch", "dir", pkg.Dir, "error", err)
			}
		}
		if _, err := s.process(prog, true); err != nil {
			fmt.Fprintln(s.stderr, err)
		}
	}
	once()
	watchLoop(ctx, w.Events, w.Errors, cmd.delay, once)
	return 0
}

// isSource reports whether an event concerns a kernel source file.
// Companion files are written by the translation itself.
func isSource(ev fsnotify.Event) bool {
	n := ev.Name
	if !strings.HasSuffix(n, ".go") || strings.HasSuffix(n, "_sl.go") || strings.HasSuffix(n, "_test.go") {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// watchLoop calls run once changes to sources have settled for delay,
// until ctx is done or events is closed.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, delay time.Duration, run func()) {
	t := time.NewTimer(delay)
	t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !isSource(ev) {
				continue
			}
			slc.Logger().Debug("changed", "file", ev.Name, "op", ev.Op.String())
			t.Reset(delay)
		case err, ok := <-errs:
			if !ok {
				return
			}
			slc.Logger().Warn("watch", "error", err)
		case <-t.C:
			run()
		}
	}
}
