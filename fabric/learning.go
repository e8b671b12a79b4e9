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

package fabric

import (
	"fmt"

	"github.com/yyang13/leafspine/flow"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/pkg/errors"
)

// Programmer writes rules and frames to switches. *flow.Installer implements it.
type Programmer interface {
	Install(sw flow.Switch, p flow.Priority, m flow.Match, a flow.Action) error
	Emit(sw flow.Switch, inPort uint32, a flow.Action, bufferID uint32, payload []byte) error
	Forget(dpid uint64)
}

// Frame is a data-plane frame handed to the controller by a switch.
type Frame struct {
	InPort   uint32
	BufferID uint32
	Data     []byte
}

// LearningEngine is the reactive MAC-learning forwarder. It keeps no state of
// its own: every call works on the learning table of the switch the frame
// came from, and calls for one switch must not run concurrently.
type LearningEngine struct {
	programmer Programmer
}

func NewLearningEngine(p Programmer) *LearningEngine {
	return &LearningEngine{programmer: p}
}

// OnFrame learns the source of f, installs a reactive rule when the
// destination is known and sends f toward its destination, flooding it
// otherwise. Malformed frames and link discovery frames are dropped.
func (r *LearningEngine) OnFrame(sw flow.Switch, table *LearningTable, f Frame) error {
	framesReceived.Inc()

	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(f.Data, gopacket.NilDecodeFeedback); err != nil {
		framesDropped.WithLabelValues("malformed").Inc()
		logger.Warningf("dropping a malformed frame: DPID=%v, inPort=%v, length=%v: %v", sw.DPID(), f.InPort, len(f.Data), err)
		return nil
	}
	if eth.EthernetType == layers.EthernetTypeLinkLayerDiscovery {
		framesDropped.WithLabelValues("discovery").Inc()
		return nil
	}
	if f.InPort == 0 {
		framesDropped.WithLabelValues("ingress").Inc()
		logger.Warningf("dropping a frame without an ingress port: DPID=%v, src=%v, dst=%v", sw.DPID(), eth.SrcMAC, eth.DstMAC)
		return nil
	}

	table.Learn(eth.SrcMAC, f.InPort)
	sourcesLearned.Inc()

	egress := flow.Flood
	if port, ok := table.Lookup(eth.DstMAC); ok {
		egress = flow.Output(port)
	}
	logger.Debugf("frame: DPID=%v, inPort=%v, src=%v, dst=%v, egress=%v", sw.DPID(), f.InPort, eth.SrcMAC, eth.DstMAC, egress)

	if egress.IsFlood() {
		framesFlooded.Inc()
	} else {
		m := flow.Match{InPort: f.InPort, DstMAC: eth.DstMAC}
		// The frame is still forwarded below; the next frame of this flow
		// comes back here and retries the rule.
		if err := r.programmer.Install(sw, flow.PriorityReactive, m, egress); err != nil {
			logger.Errorf("failed to install a reactive rule: %v", err)
		}
	}

	if err := r.programmer.Emit(sw, f.InPort, egress, f.BufferID, f.Data); err != nil {
		return errors.Wrap(err, fmt.Sprintf("forwarding a frame from %v to %v", eth.SrcMAC, eth.DstMAC))
	}

	return nil
}
