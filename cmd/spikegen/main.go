// Copyright 2026 spikegen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command spikegen compiles a spiking neural network description into
// device kernel source plus a host runner.
//
// Usage:
//
//	spikegen -model network.json -output generated
//	spikegen -model network.json -output generated -dialect cuda
//
// The generator reads the JSON network description, plans merged groups so
// structurally identical populations share kernel bodies, and writes
// definitions.h, definitionsInternal.h, runner.cc and the kernel sources
// into the output directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spikegen/spikegen/codegen"
	"github.com/spikegen/spikegen/codegen/simt"
)

var (
	modelFile = flag.String("model", "", "Input JSON network description (required)")
	outputDir = flag.String("output", ".", "Output directory (default: current directory)")
	dialect   = flag.String("dialect", "cuda", "Device dialect ("+strings.Join(AvailableDialects(), ",")+")")
	bitmaskOpt = flag.Bool("bitmask-opt", false, "Enable the warp-packed bitmask presynaptic strategy")
	verbose   = flag.Bool("v", false, "Print per-kernel launch widths")
)

func main() {
	flag.Parse()

	if *modelFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -model flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rt, err := GetDialect(*dialect)
	if err != nil {
		return err
	}

	net, err := LoadNetwork(*modelFile)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded model '%s': %d neuron groups, %d synapse groups\n",
		net.Name, len(net.NeuronGroups), len(net.SynapseGroups))

	backend := simt.New(rt, simt.Preferences{EnableBitmaskOptimisations: *bitmaskOpt})

	merged, err := codegen.NewMergedModel(net, backend.MergedOptions())
	if err != nil {
		return fmt.Errorf("merge model: %w", err)
	}

	runner, kernels, err := backend.GenerateAll(merged)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		return err
	}
	files := map[string]string{
		"definitions.h":         runner.Definitions,
		"definitionsInternal.h": runner.DefinitionsInternal,
		"runner.cc":             runner.Runner,
	}
	for _, k := range kernels {
		files[k.Name] = k.Source
		if *verbose {
			for name, total := range k.TotalThreads {
				fmt.Printf("  %s: %d threads\n", name, total)
			}
		}
	}
	for name, source := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		fmt.Printf("Generated: %s\n", path)
	}
	return nil
}
