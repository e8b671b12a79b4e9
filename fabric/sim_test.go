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
	"bytes"
	"encoding"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/yyang13/leafspine/flow"
	"github.com/yyang13/leafspine/openflow"
	"github.com/yyang13/leafspine/topology"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/require"
)

type simRule struct {
	priority flow.Priority
	match    flow.Match
	action   flow.Action
}

// simSwitch applies the FLOW_MODs it receives to its own flow table and
// records every message, like a real switch would.
type simSwitch struct {
	dpid       uint64
	fail       bool
	rules      []simRule
	installs   []simRule
	packetOuts []*openflow.PacketOut
}

func (r *simSwitch) DPID() uint64 {
	return r.dpid
}

func (r *simSwitch) SendMessage(msg encoding.BinaryMarshaler) error {
	if r.fail {
		return errors.New("broken channel")
	}

	v, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	parsed, err := openflow.ParseMessage(v)
	if err != nil {
		return err
	}

	switch m := parsed.(type) {
	case *openflow.FlowMod:
		if m.Command == openflow.OFPFC_DELETE {
			r.rules = nil
			return nil
		}
		rule := simRule{
			priority: flow.Priority(m.Priority),
			match:    flow.Match{InPort: m.Match.InPort, DstMAC: m.Match.DstMAC},
			action:   flow.ActionFromOpenflow(m.Instruction.Actions[0]),
		}
		r.installs = append(r.installs, rule)
		r.add(rule)
	case *openflow.PacketOut:
		r.packetOuts = append(r.packetOuts, m)
	}

	return nil
}

func sameMatch(a, b flow.Match) bool {
	return a.InPort == b.InPort && bytes.Equal(a.DstMAC, b.DstMAC)
}

func (r *simSwitch) add(rule simRule) {
	for i, v := range r.rules {
		if v.priority == rule.priority && sameMatch(v.match, rule.match) {
			r.rules[i] = rule
			return
		}
	}
	r.rules = append(r.rules, rule)
}

// lookup returns the highest-priority rule matching a frame.
func (r *simSwitch) lookup(inPort uint32, dst net.HardwareAddr) (simRule, bool) {
	var best simRule
	found := false
	for _, v := range r.rules {
		if v.match.InPort != 0 && v.match.InPort != inPort {
			continue
		}
		if v.match.DstMAC != nil && !bytes.Equal(v.match.DstMAC, dst) {
			continue
		}
		if !found || v.priority > best.priority {
			best = v
			found = true
		}
	}

	return best, found
}

func (r *simSwitch) installsOf(p flow.Priority) []simRule {
	result := make([]simRule, 0)
	for _, v := range r.installs {
		if v.priority == p {
			result = append(result, v)
		}
	}

	return result
}

// simFabric is a controller and the switches it programs.
type simFabric struct {
	t        *testing.T
	topo     *topology.Descriptor
	app      *App
	switches map[uint64]*simSwitch
}

func newSimFabric(t *testing.T, conf Config) *simFabric {
	topo, err := topology.Load("../configs/leafspine.yaml")
	require.NoError(t, err)

	return &simFabric{
		t:        t,
		topo:     topo,
		app:      NewApp(topo, flow.NewInstaller(5*time.Second), conf),
		switches: make(map[uint64]*simSwitch),
	}
}

func (r *simFabric) connect(dpid uint64) *simSwitch {
	r.t.Helper()

	sw := &simSwitch{dpid: dpid}
	require.NoError(r.t, r.app.SwitchConnected(sw))
	r.switches[dpid] = sw

	return sw
}

func (r *simFabric) connectAll() {
	for _, v := range r.topo.Switches {
		r.connect(v.ID)
	}
}

// forward passes a frame through sw. A frame hitting the table-miss rule is
// handed to the controller and the action of the resulting PACKET_OUT is
// returned; punted reports whether that happened.
func (r *simFabric) forward(sw *simSwitch, inPort uint32, data []byte) (action flow.Action, punted bool) {
	r.t.Helper()

	var eth layers.Ethernet
	require.NoError(r.t, eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback))

	rule, ok := sw.lookup(inPort, eth.DstMAC)
	require.True(r.t, ok, "no rule matches the frame")
	if rule.action != flow.ToController {
		return rule.action, false
	}

	n := len(sw.packetOuts)
	require.NoError(r.t, r.app.FrameReceived(sw, Frame{InPort: inPort, BufferID: openflow.OFP_NO_BUFFER, Data: data}))
	if len(sw.packetOuts) == n {
		return flow.Action{}, true
	}

	return flow.ActionFromOpenflow(sw.packetOuts[len(sw.packetOuts)-1].Actions[0]), true
}

func mac(s string) net.HardwareAddr {
	v, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}

	return v
}

func ethernetFrame(t *testing.T, src, dst net.HardwareAddr, etherType layers.EthernetType) []byte {
	t.Helper()

	buf := gopacket.NewSerializeBuffer()
	eth := &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: etherType}
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, gopacket.Payload([]byte("leafspine")))
	require.NoError(t, err)

	return buf.Bytes()
}

var (
	macH1 = mac("00:00:00:00:00:01")
	macH2 = mac("00:00:00:00:00:02")
	macH3 = mac("00:00:00:00:00:03")
	macH4 = mac("00:00:00:00:00:04")
	macH5 = mac("00:00:00:00:00:05")
	macH6 = mac("00:00:00:00:00:06")
	macH9 = mac("00:00:00:00:00:09")
)
