/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

// Package flow turns forwarding decisions into OpenFlow instructions and
// sends them to a switch.
package flow

import (
	"fmt"
	"net"

	"github.com/yyang13/leafspine/openflow"
)

// Priority is the tier of a flow rule. A reactive rule always beats a static
// one, which always beats the table-miss rule; no other tier exists.
type Priority uint16

const (
	PriorityTableMiss Priority = 0
	PriorityStatic    Priority = 10
	PriorityReactive  Priority = 20
)

func (r Priority) String() string {
	switch r {
	case PriorityTableMiss:
		return "table-miss"
	case PriorityStatic:
		return "static"
	case PriorityReactive:
		return "reactive"
	default:
		return fmt.Sprintf("Priority(%d)", uint16(r))
	}
}

func (r Priority) valid() bool {
	return r == PriorityTableMiss || r == PriorityStatic || r == PriorityReactive
}

// Match selects frames by ingress port and destination MAC address. A zero
// InPort and a nil DstMAC match anything.
type Match struct {
	InPort uint32
	DstMAC net.HardwareAddr
}

func (r Match) String() string {
	return r.openflow().String()
}

func (r Match) openflow() openflow.Match {
	return openflow.Match{InPort: r.InPort, DstMAC: r.DstMAC}
}

type ActionKind int

const (
	ActionOutput ActionKind = iota
	ActionFlood
	ActionToController
)

type Action struct {
	Kind ActionKind
	// Port is only used by ActionOutput.
	Port uint32
}

func Output(port uint32) Action {
	return Action{Kind: ActionOutput, Port: port}
}

var (
	Flood        = Action{Kind: ActionFlood}
	ToController = Action{Kind: ActionToController}
)

func (r Action) String() string {
	return r.openflow().String()
}

// IsFlood reports whether the action sends out every port except the ingress.
func (r Action) IsFlood() bool {
	return r.Kind == ActionFlood
}

func (r Action) openflow() openflow.Output {
	switch r.Kind {
	case ActionFlood:
		return openflow.Output{Port: openflow.OFPP_FLOOD}
	case ActionToController:
		// Send the whole frame; nothing is buffered on the switch.
		return openflow.Output{Port: openflow.OFPP_CONTROLLER, MaxLen: openflow.OFPCML_NO_BUFFER}
	default:
		return openflow.Output{Port: r.Port}
	}
}

// ActionFromOpenflow is the reverse of the encoding the installer uses.
func ActionFromOpenflow(v openflow.Output) Action {
	switch v.Port {
	case openflow.OFPP_FLOOD:
		return Flood
	case openflow.OFPP_CONTROLLER:
		return ToController
	default:
		return Output(v.Port)
	}
}
