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

package model

import (
	"github.com/goki/ki/bitflag"
	"github.com/goki/ki/kit"
)

// Precision selects the floating point type bound to "scalar" in generated
// code and user snippets.
type Precision int

//go:generate stringer -type=Precision

const (
	Float Precision = iota
	Double

	PrecisionN
)

var KiT_Precision = kit.Enums.AddEnum(PrecisionN, kit.NotBitFlag, nil)

func (ev Precision) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Precision) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// SpanType selects how presynaptic update work is parallelised for a synapse
// group: one thread per presynaptic spike or one thread per postsynaptic
// target.
type SpanType int

//go:generate stringer -type=SpanType

const (
	PostsynapticSpan SpanType = iota
	PresynapticSpan

	SpanTypeN
)

var KiT_SpanType = kit.Enums.AddEnum(SpanTypeN, kit.NotBitFlag, nil)

func (ev SpanType) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *SpanType) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// VarAccess describes how a kernel may access a model variable.
type VarAccess int

//go:generate stringer -type=VarAccess

const (
	ReadWrite VarAccess = iota
	ReadOnly
	ReduceSum
	ReduceMax

	VarAccessN
)

var KiT_VarAccess = kit.Enums.AddEnum(VarAccessN, kit.NotBitFlag, nil)

func (ev VarAccess) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *VarAccess) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// IsReduce reports whether the access mode is a reduction.
func (ev VarAccess) IsReduce() bool { return ev == ReduceSum || ev == ReduceMax }

// IsReadOnly reports whether kernels may only read the variable.
func (ev VarAccess) IsReadOnly() bool { return ev == ReadOnly }

// VarLocation says where a variable lives. This is a bitflag and must be
// accessed using bitflag.Set32 / Has32 etc routines, 32 bit versions.
type VarLocation int32

const (
	// HostBit allocates a host mirror of the array
	HostBit VarLocation = iota
	// DeviceBit allocates device storage
	DeviceBit
	// ZeroCopyBit maps the host allocation into the device address space
	ZeroCopyBit
)

// LocHostDevice returns the default location: host mirror plus device storage.
func LocHostDevice() VarLocation {
	var loc VarLocation
	bitflag.Set32((*int32)(&loc), int(HostBit), int(DeviceBit))
	return loc
}

// LocDeviceOnly returns the device-only location value.
func LocDeviceOnly() VarLocation {
	var loc VarLocation
	bitflag.Set32((*int32)(&loc), int(DeviceBit))
	return loc
}

// OnHost reports whether the location includes a host mirror.
func (l VarLocation) OnHost() bool { return bitflag.Has32(int32(l), int(HostBit)) }

// OnDevice reports whether the location includes device storage.
func (l VarLocation) OnDevice() bool { return bitflag.Has32(int32(l), int(DeviceBit)) }

// ZeroCopy reports whether the location is zero-copy mapped.
func (l VarLocation) ZeroCopy() bool { return bitflag.Has32(int32(l), int(ZeroCopyBit)) }
