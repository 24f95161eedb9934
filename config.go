// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/naga/hlsl"
	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/slc"
)

// ConfigFile is the default configuration file name.
const ConfigFile = "slkernel.toml"

// Config is the slkernel configuration, read from slkernel.toml.
// Command line flags override it.
type Config struct {
	// Out is the output directory for shader code and descriptors,
	// relative to where slkernel is invoked.
	Out string `toml:"out"`

	// Exclude names kernels to skip, by type name or qualified ID.
	Exclude []string `toml:"exclude"`

	MaxConstantWords int    `toml:"max_constant_words"`
	ShaderModel      string `toml:"shader_model"`

	// Companion writes a <kernel>_sl.go file into each kernel package.
	Companion bool `toml:"companion"`

	Debug bool `toml:"debug"`
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() Config {
	return Config{
		Out:              "shaders",
		MaxConstantWords: alignsl.DefaultMaxConstantWords,
		ShaderModel:      "6.0",
	}
}

// LoadConfig reads the file at path into cfg. A missing file leaves
// cfg unchanged; unknown keys are an error.
func LoadConfig(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if und := md.Undecoded(); len(und) > 0 {
		keys := make([]string, len(und))
		for i, k := range und {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks the values of cfg.
func (cfg *Config) Validate() error {
	if cfg.MaxConstantWords <= 0 {
		return fmt.Errorf("max_constant_words must be positive, got %d", cfg.MaxConstantWords)
	}
	if _, err := ParseShaderModel(cfg.ShaderModel); err != nil {
		return err
	}
	return nil
}

// ParseShaderModel parses a shader model version such as "6.0".
func ParseShaderModel(s string) (hlsl.ShaderModel, error) {
	v := strings.TrimPrefix(strings.TrimSpace(s), "SM ")
	for sm := hlsl.ShaderModel5_0; sm <= hlsl.ShaderModel6_7; sm++ {
		if fmt.Sprintf("%d.%d", sm.Major(), sm.Minor()) == v {
			return sm, nil
		}
	}
	return 0, fmt.Errorf("unknown shader model %q", s)
}

// Excluded reports whether the kernel with type name and qualified id
// is excluded.
func (cfg *Config) Excluded(name, id string) bool {
	for _, x := range cfg.Exclude {
		if x == name || x == id {
			return true
		}
	}
	return false
}

// Options returns the compiler options of cfg.
func (cfg *Config) Options() slc.Options {
	opts := slc.DefaultOptions()
	opts.MaxConstantWords = cfg.MaxConstantWords
	if sm, err := ParseShaderModel(cfg.ShaderModel); err == nil {
		opts.ShaderModel = sm
	}
	return opts
}
