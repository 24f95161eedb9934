// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
slkernel translates Go kernel types into HLSL compute shaders.

A kernel is a struct type with an Execute method, written against the
sl package. Its fields become the constant buffer and the bound
resources of the shader, and its Execute method, with every function,
method, type and package variable it reaches, becomes the entry point.
Directive comments on the type control the translation:

	//sl:kernel              declare a compute kernel explicitly
	//sl:pixel               translate a pixel kernel, whose Execute returns a color
	//sl:numthreads X Y Z    set the thread group size
	//sl:groupshared         on a package array variable: share it within a group

Usage:

	slkernel [flags] [command] [packages]

The commands are:

	translate
		Translate every kernel of the packages and write, for each one,
		<out>/<Kernel>.hlsl and the <out>/<Kernel>.json descriptor.
		This is the default command.
	check
		Report the diagnostics of every kernel without writing anything.
	watch
		Translate, then translate again whenever a source file of the
		packages changes. Stages whose input did not change are reused.
		--delay sets how long changes must settle first (default 200ms).

Packages default to the current directory. The exit status is 1 when a
kernel has errors and 2 when the packages cannot be loaded.

The flags are:

	--config file
		Read the configuration from file (default slkernel.toml).
	--out dir
		Write shaders and descriptors into dir (default shaders).
	--exclude names
		Skip the kernels named, by type name or package path qualified name.
	--companion
		Also write a <kernel>_sl.go file into each kernel package, with the
		shader source and a PackConstants method for the constant buffer.
	--max-constant-words n
		Constant buffer limit in 32-bit words (default 64).
	--shader-model version
		Shader model of the emitted profile (default 6.0).
	--debug
		Log the cache reason and fingerprint of every stage.

The configuration file is TOML, with the keys out, exclude, companion,
max_constant_words, shader_model and debug. Flags override it.
*/
package main
