// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"
)

type cmdTranslate struct{}

func (*cmdTranslate) help() *commandHelp {
	return &commandHelp{
		usage:   "translate [packages]",
		summary: "translate kernels and write shaders, descriptors and companion files",
	}
}

func (*cmdTranslate) flags(*pflag.FlagSet) {}

func (*cmdTranslate) run(ctx context.Context, cfg *Config, args []string) int {
	return runOnce(cfg, args, true)
}

type cmdCheck struct{}

func (*cmdCheck) help() *commandHelp {
	return &commandHelp{
		usage:   "check [packages]",
		summary: "report the diagnostics of kernels without writing anything",
	}
}

func (*cmdCheck) flags(*pflag.FlagSet) {}

func (*cmdCheck) run(ctx context.Context, cfg *Config, args []string) int {
	return runOnce(cfg, args, false)
}

// runOnce loads and processes the packages once. It returns 1 when a
// kernel has hard diagnostics and 2 on other failures.
func runOnce(cfg *Config, args []string, write bool) int {
	s := newSession(cfg, args)
	prog, err := s.load()
	if err != nil {
		fmt.Fprintln(s.stderr, err)
		return 2
	}
	o, err := s.process(prog, write)
	if err != nil {
		fmt.Fprintln(s.stderr, err)
		return 2
	}
	if o.Errors > 0 {
		return 1
	}
	return 0
}
