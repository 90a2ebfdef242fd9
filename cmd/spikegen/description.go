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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spikegen/spikegen/model"
)

// networkDescription is the JSON form of a model: models and snippets keyed
// by name, populations referencing them.
type networkDescription struct {
	Name          string          `json:"name"`
	DT            float64         `json:"dt"`
	Precision     model.Precision `json:"precision"`
	TimePrecision model.Precision `json:"timePrecision"`
	BatchSize     int             `json:"batchSize"`
	Seed          int             `json:"seed"`

	NeuronModels         map[string]*model.NeuronModel         `json:"neuronModels"`
	WeightUpdateModels   map[string]*model.WeightUpdateModel   `json:"weightUpdateModels"`
	PostsynapticModels   map[string]*model.PostsynapticModel   `json:"postsynapticModels"`
	CurrentSourceModels  map[string]*model.CurrentSourceModel  `json:"currentSourceModels"`
	CustomUpdateModels   map[string]*model.CustomUpdateModel   `json:"customUpdateModels"`
	VarInitSnippets      map[string]*model.VarInitSnippet      `json:"varInitSnippets"`
	ConnectivitySnippets map[string]*model.ConnectivitySnippet `json:"connectivitySnippets"`

	NeuronGroups   []neuronGroupDescription   `json:"neuronGroups"`
	SynapseGroups  []synapseGroupDescription  `json:"synapseGroups"`
	CurrentSources []currentSourceDescription `json:"currentSources"`
	CustomUpdates  []customUpdateDescription  `json:"customUpdates"`
}

// varInitDescription resolves to a model.VarInit.
type varInitDescription struct {
	Snippet  string            `json:"snippet"`
	Params   model.ParamValues `json:"params"`
	Constant float64           `json:"constant"`
}

type neuronGroupDescription struct {
	Name       string `json:"name"`
	NumNeurons int    `json:"numNeurons"`

	Model         string                        `json:"model"`
	Params        model.ParamValues             `json:"params"`
	DerivedParams model.ParamValues             `json:"derivedParams"`
	VarInit       map[string]varInitDescription `json:"varInit"`

	SpikeRecordingEnabled      bool `json:"spikeRecordingEnabled"`
	SpikeEventRecordingEnabled bool `json:"spikeEventRecordingEnabled"`
}

type synapseGroupDescription struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Target string `json:"target"`

	MatrixType model.SynapseMatrixType `json:"matrixType"`
	SpanType   model.SpanType          `json:"spanType"`

	DelaySteps                 int   `json:"delaySteps"`
	BackPropDelaySteps         int   `json:"backPropDelaySteps"`
	MaxConnections             int   `json:"maxConnections"`
	MaxSourceConnections       int   `json:"maxSourceConnections"`
	MaxDendriticDelayTimesteps int   `json:"maxDendriticDelayTimesteps"`
	NumThreadsPerSpike         int   `json:"numThreadsPerSpike"`
	KernelSize                 []int `json:"kernelSize"`

	WUModel         string                        `json:"wuModel"`
	WUParams        model.ParamValues             `json:"wuParams"`
	WUDerivedParams model.ParamValues             `json:"wuDerivedParams"`
	WUVarInit       map[string]varInitDescription `json:"wuVarInit"`

	PSModel  string            `json:"psModel"`
	PSParams model.ParamValues `json:"psParams"`
	PSTarget string            `json:"psTarget"`

	Connectivity       string            `json:"connectivity"`
	ConnectivityParams model.ParamValues `json:"connectivityParams"`
}

type currentSourceDescription struct {
	Name    string                        `json:"name"`
	Target  string                        `json:"target"`
	Model   string                        `json:"model"`
	Params  model.ParamValues             `json:"params"`
	VarInit map[string]varInitDescription `json:"varInit"`
}

type customUpdateDescription struct {
	Name            string            `json:"name"`
	UpdateGroupName string            `json:"updateGroup"`
	Model           string            `json:"model"`
	Params          model.ParamValues `json:"params"`

	// Neuron-sized references: name -> {group, var}
	VarRefs map[string]struct {
		Group string `json:"group"`
		Var   string `json:"var"`
	} `json:"varRefs"`

	// Synapse-sized references: name -> {synapseGroup, var, transpose...}
	WUVarRefs map[string]struct {
		SynapseGroup   string `json:"synapseGroup"`
		Var            string `json:"var"`
		TransposeGroup string `json:"transposeGroup"`
		TransposeVar   string `json:"transposeVar"`
	} `json:"wuVarRefs"`
}

// LoadNetwork reads a JSON network description and links it into a
// finalized model.Network.
func LoadNetwork(path string) (*model.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model description: %w", err)
	}
	var desc networkDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse model description: %w", err)
	}
	return desc.build()
}

func (d *networkDescription) varInit(vis map[string]varInitDescription, context string) (map[string]model.VarInit, error) {
	if len(vis) == 0 {
		return nil, nil
	}
	out := make(map[string]model.VarInit, len(vis))
	for name, vi := range vis {
		init := model.VarInit{Params: vi.Params, Constant: vi.Constant}
		if vi.Snippet != "" {
			snippet, ok := d.VarInitSnippets[vi.Snippet]
			if !ok {
				return nil, fmt.Errorf("%s: unknown var init snippet %q", context, vi.Snippet)
			}
			init.Snippet = snippet
		}
		out[name] = init
	}
	return out, nil
}

func (d *networkDescription) build() (*model.Network, error) {
	net := &model.Network{
		Name:          d.Name,
		DT:            d.DT,
		Precision:     d.Precision,
		TimePrecision: d.TimePrecision,
		BatchSize:     d.BatchSize,
		Seed:          d.Seed,
	}

	groups := map[string]*model.NeuronGroup{}
	for _, gd := range d.NeuronGroups {
		nm, ok := d.NeuronModels[gd.Model]
		if !ok {
			return nil, fmt.Errorf("neuron group %q: unknown neuron model %q", gd.Name, gd.Model)
		}
		vi, err := d.varInit(gd.VarInit, "neuron group "+gd.Name)
		if err != nil {
			return nil, err
		}
		ng := &model.NeuronGroup{
			Name:                       gd.Name,
			NumNeurons:                 gd.NumNeurons,
			Model:                      nm,
			Params:                     gd.Params,
			DerivedParams:              gd.DerivedParams,
			VarInit:                    vi,
			SpikeRecordingEnabled:      gd.SpikeRecordingEnabled,
			SpikeEventRecordingEnabled: gd.SpikeEventRecordingEnabled,
			SpikeLocation:              model.LocHostDevice(),
			VarLocation:                model.LocHostDevice(),
			SpikeTimeLocation:          model.LocHostDevice(),
		}
		net.NeuronGroups = append(net.NeuronGroups, ng)
		groups[ng.Name] = ng
	}

	synapses := map[string]*model.SynapseGroup{}
	for _, sd := range d.SynapseGroups {
		wum, ok := d.WeightUpdateModels[sd.WUModel]
		if !ok {
			return nil, fmt.Errorf("synapse group %q: unknown weight update model %q", sd.Name, sd.WUModel)
		}
		src, ok := groups[sd.Source]
		if !ok {
			return nil, fmt.Errorf("synapse group %q: unknown source group %q", sd.Name, sd.Source)
		}
		trg, ok := groups[sd.Target]
		if !ok {
			return nil, fmt.Errorf("synapse group %q: unknown target group %q", sd.Name, sd.Target)
		}
		vi, err := d.varInit(sd.WUVarInit, "synapse group "+sd.Name)
		if err != nil {
			return nil, err
		}
		sg := &model.SynapseGroup{
			Name:                       sd.Name,
			Src:                        src,
			Trg:                        trg,
			MatrixType:                 sd.MatrixType,
			SpanType:                   sd.SpanType,
			DelaySteps:                 sd.DelaySteps,
			BackPropDelaySteps:         sd.BackPropDelaySteps,
			MaxConnections:             sd.MaxConnections,
			MaxSourceConnections:       sd.MaxSourceConnections,
			MaxDendriticDelayTimesteps: sd.MaxDendriticDelayTimesteps,
			NumThreadsPerSpike:         sd.NumThreadsPerSpike,
			KernelSize:                 sd.KernelSize,
			WUModel:                    wum,
			WUParams:                   sd.WUParams,
			WUDerivedParams:            sd.WUDerivedParams,
			WUVarInit:                  vi,
			PSParams:                   sd.PSParams,
			PSTarget:                   sd.PSTarget,
			InSynLocation:              model.LocHostDevice(),
			WUVarLocation:              model.LocHostDevice(),
			SparseConnLocation:         model.LocHostDevice(),
			DendriticDelayLocation:     model.LocDeviceOnly(),
		}
		if sd.PSModel != "" {
			psm, ok := d.PostsynapticModels[sd.PSModel]
			if !ok {
				return nil, fmt.Errorf("synapse group %q: unknown postsynaptic model %q", sd.Name, sd.PSModel)
			}
			sg.PSModel = psm
		}
		if sd.Connectivity != "" {
			snippet, ok := d.ConnectivitySnippets[sd.Connectivity]
			if !ok {
				return nil, fmt.Errorf("synapse group %q: unknown connectivity snippet %q", sd.Name, sd.Connectivity)
			}
			sg.ConnectivityInit = model.ConnectivityInit{Snippet: snippet, Params: sd.ConnectivityParams}
		}
		net.SynapseGroups = append(net.SynapseGroups, sg)
		synapses[sg.Name] = sg
	}

	for _, cd := range d.CurrentSources {
		cm, ok := d.CurrentSourceModels[cd.Model]
		if !ok {
			return nil, fmt.Errorf("current source %q: unknown model %q", cd.Name, cd.Model)
		}
		target, ok := groups[cd.Target]
		if !ok {
			return nil, fmt.Errorf("current source %q: unknown target group %q", cd.Name, cd.Target)
		}
		vi, err := d.varInit(cd.VarInit, "current source "+cd.Name)
		if err != nil {
			return nil, err
		}
		net.CurrentSources = append(net.CurrentSources, &model.CurrentSource{
			Name:        cd.Name,
			Target:      target,
			Model:       cm,
			Params:      cd.Params,
			VarInit:     vi,
			VarLocation: model.LocHostDevice(),
		})
	}

	for _, cd := range d.CustomUpdates {
		cm, ok := d.CustomUpdateModels[cd.Model]
		if !ok {
			return nil, fmt.Errorf("custom update %q: unknown model %q", cd.Name, cd.Model)
		}
		switch {
		case len(cd.WUVarRefs) > 0:
			cu := &model.CustomUpdateWU{
				Name:            cd.Name,
				UpdateGroupName: cd.UpdateGroupName,
				Model:           cm,
				Params:          cd.Params,
				VarRefs:         map[string]model.WUVarRef{},
			}
			for name, ref := range cd.WUVarRefs {
				sg, ok := synapses[ref.SynapseGroup]
				if !ok {
					return nil, fmt.Errorf("custom update %q: unknown synapse group %q", cd.Name, ref.SynapseGroup)
				}
				wuRef := model.WUVarRef{Group: sg, Var: ref.Var}
				if ref.TransposeGroup != "" {
					tg, ok := synapses[ref.TransposeGroup]
					if !ok {
						return nil, fmt.Errorf("custom update %q: unknown transpose group %q", cd.Name, ref.TransposeGroup)
					}
					wuRef.TransposeGroup = tg
					wuRef.TransposeVar = ref.TransposeVar
				}
				cu.VarRefs[name] = wuRef
				if cu.SynapseGroup == nil {
					cu.SynapseGroup = sg
				}
			}
			net.CustomUpdateWUs = append(net.CustomUpdateWUs, cu)
		default:
			cu := &model.CustomUpdate{
				Name:            cd.Name,
				UpdateGroupName: cd.UpdateGroupName,
				Model:           cm,
				Params:          cd.Params,
				VarRefs:         map[string]model.VarRef{},
			}
			for name, ref := range cd.VarRefs {
				ng, ok := groups[ref.Group]
				if !ok {
					return nil, fmt.Errorf("custom update %q: unknown neuron group %q", cd.Name, ref.Group)
				}
				cu.VarRefs[name] = model.VarRef{Group: ng, Var: ref.Var}
			}
			net.CustomUpdates = append(net.CustomUpdates, cu)
		}
	}

	if err := net.Finalize(); err != nil {
		return nil, err
	}
	return net, nil
}
