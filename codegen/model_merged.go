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

package codegen

import (
	"github.com/spikegen/spikegen/model"
)

// MergedModel is the group-merging planner's output: one set of merged
// groups per generation purpose. Populations with identical structural
// fingerprints share a kernel body; per-member values are resolved through
// each group's field table.
type MergedModel struct {
	Network *model.Network
	Options Options

	NeuronUpdateGroups           []*NeuronUpdateGroupMerged
	NeuronInitGroups             []*NeuronInitGroupMerged
	NeuronSpikeQueueUpdateGroups []*NeuronSpikeQueueUpdateGroupMerged

	SynapseDendriticDelayUpdateGroups []*SynapseDendriticDelayUpdateGroupMerged
	PresynapticUpdateGroups           []*PresynapticUpdateGroupMerged
	PostsynapticUpdateGroups          []*PostsynapticUpdateGroupMerged
	SynapseDynamicsGroups             []*SynapseDynamicsGroupMerged

	SynapseDenseInitGroups        []*SynapseDenseInitGroupMerged
	SynapseConnectivityInitGroups []*SynapseConnectivityInitGroupMerged
	SynapseSparseInitGroups       []*SynapseSparseInitGroupMerged

	CustomUpdateGroups              []*CustomUpdateGroupMerged
	CustomUpdateWUGroups            []*CustomUpdateWUGroupMerged
	CustomUpdateHostReductionGroups []*CustomUpdateHostReductionGroupMerged
}

// NewMergedModel partitions the network's populations into merged groups.
// The network must be finalized.
func NewMergedModel(net *model.Network, opts Options) (*MergedModel, error) {
	if err := net.Finalize(); err != nil {
		return nil, err
	}
	m := &MergedModel{Network: net, Options: opts}

	// Neuron purposes
	for i, members := range partitionByDigest(net.NeuronGroups, digestNeuronUpdate) {
		m.NeuronUpdateGroups = append(m.NeuronUpdateGroups, newNeuronUpdateGroupMerged(i, members, net, opts))
	}
	for i, members := range partitionByDigest(net.NeuronGroups, digestNeuronInit) {
		m.NeuronInitGroups = append(m.NeuronInitGroups, newNeuronInitGroupMerged(i, members, net, opts))
	}
	for i, members := range partitionByDigest(net.NeuronGroups, digestNeuronSpikeQueueUpdate) {
		m.NeuronSpikeQueueUpdateGroups = append(m.NeuronSpikeQueueUpdateGroups,
			newNeuronSpikeQueueUpdateGroupMerged(i, members, net, opts))
	}

	// Synapse purposes
	var denDelay, presyn, postsyn, dynamics []*model.SynapseGroup
	var denseInit, connInit, sparseInit []*model.SynapseGroup
	for _, sg := range net.SynapseGroups {
		if sg.DendriticDelayRequired() {
			denDelay = append(denDelay, sg)
		}
		if sg.TrueSpikeRequired() || sg.SpikeEventRequired() {
			presyn = append(presyn, sg)
		}
		if sg.WUModel.LearnPostCode != "" {
			postsyn = append(postsyn, sg)
		}
		if sg.WUModel.SynapseDynamicsCode != "" {
			dynamics = append(dynamics, sg)
		}
		if sg.MatrixType.Has(model.DenseConnectivity) && sg.WUVarInitRequired() {
			denseInit = append(denseInit, sg)
		}
		if (sg.MatrixType.Has(model.SparseConnectivity) || sg.MatrixType.Has(model.BitmaskConnectivity)) &&
			sg.ConnectivityInit.Snippet != nil {
			connInit = append(connInit, sg)
		}
		if sg.MatrixType.Has(model.SparseConnectivity) &&
			(sg.WUVarInitRequired() || sg.WUModel.LearnPostCode != "" || sg.WUModel.SynapseDynamicsCode != "") {
			sparseInit = append(sparseInit, sg)
		}
	}

	for i, members := range partitionByDigest(denDelay, digestSynapseDendriticDelayUpdate) {
		m.SynapseDendriticDelayUpdateGroups = append(m.SynapseDendriticDelayUpdateGroups,
			newSynapseDendriticDelayUpdateGroupMerged(i, members, opts))
	}
	for i, members := range partitionByDigest(presyn, digestPresynapticUpdate) {
		m.PresynapticUpdateGroups = append(m.PresynapticUpdateGroups,
			newPresynapticUpdateGroupMerged(i, members, net, opts))
	}
	for i, members := range partitionByDigest(postsyn, digestPostsynapticUpdate) {
		m.PostsynapticUpdateGroups = append(m.PostsynapticUpdateGroups,
			newPostsynapticUpdateGroupMerged(i, members, net, opts))
	}
	for i, members := range partitionByDigest(dynamics, digestSynapseDynamics) {
		m.SynapseDynamicsGroups = append(m.SynapseDynamicsGroups,
			newSynapseDynamicsGroupMerged(i, members, net, opts))
	}
	for i, members := range partitionByDigest(denseInit, digestSynapseDenseInit) {
		m.SynapseDenseInitGroups = append(m.SynapseDenseInitGroups,
			newSynapseDenseInitGroupMerged(i, members, net, opts))
	}
	for i, members := range partitionByDigest(connInit, digestSynapseConnectivityInit) {
		m.SynapseConnectivityInitGroups = append(m.SynapseConnectivityInitGroups,
			newSynapseConnectivityInitGroupMerged(i, members, net, opts))
	}
	for i, members := range partitionByDigest(sparseInit, digestSynapseSparseInit) {
		m.SynapseSparseInitGroups = append(m.SynapseSparseInitGroups,
			newSynapseSparseInitGroupMerged(i, members, net, opts))
	}

	// Custom update purposes
	for i, members := range partitionByDigest(net.CustomUpdates, digestCustomUpdate) {
		m.CustomUpdateGroups = append(m.CustomUpdateGroups, newCustomUpdateGroupMerged(i, members, net, opts))
	}
	for i, members := range partitionByDigest(net.CustomUpdateWUs, digestCustomUpdateWU) {
		m.CustomUpdateWUGroups = append(m.CustomUpdateWUGroups, newCustomUpdateWUGroupMerged(i, members, net, opts))
	}
	var hostReduce []*model.CustomUpdate
	for _, cu := range net.CustomUpdates {
		if hasReductionVars(cu) {
			hostReduce = append(hostReduce, cu)
		}
	}
	for i, members := range partitionByDigest(hostReduce, digestCustomUpdateHostReduction) {
		m.CustomUpdateHostReductionGroups = append(m.CustomUpdateHostReductionGroups,
			newCustomUpdateHostReductionGroupMerged(i, members, opts))
	}
	return m, nil
}
