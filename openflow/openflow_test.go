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

package openflow

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatchPadding(t *testing.T) {
	m := Match{InPort: 4, DstMAC: net.HardwareAddr{0, 0, 0, 0, 0, 2}}
	v, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal a match: %v", err)
	}
	// 4 (ofp_match header) + 8 (IN_PORT) + 10 (ETH_DST) = 22, padded to 24.
	if len(v) != 24 {
		t.Fatalf("unexpected match length: expected=24, got=%v", len(v))
	}
	if length := binary.BigEndian.Uint16(v[2:4]); length != 22 {
		t.Fatalf("unexpected ofp_match.length: expected=22, got=%v", length)
	}

	empty, err := Match{}.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal an empty match: %v", err)
	}
	if !bytes.Equal(empty, []byte{0, 1, 0, 4, 0, 0, 0, 0}) {
		t.Fatalf("unexpected wildcard match: %x", empty)
	}
}

func TestMatchInvalidMAC(t *testing.T) {
	m := Match{DstMAC: net.HardwareAddr{1, 2, 3}}
	if _, err := m.MarshalBinary(); err != ErrInvalidMACAddress {
		t.Fatalf("expected ErrInvalidMACAddress, got %v", err)
	}
}

func TestFlowModDecode(t *testing.T) {
	mod := NewFlowMod(7)
	mod.Priority = 20
	mod.Match = Match{InPort: 4, DstMAC: net.HardwareAddr{0, 0, 0, 0, 0, 5}}
	mod.Instruction = &ApplyActions{Actions: []Output{{Port: 2}}}

	v, err := mod.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal FLOW_MOD: %v", err)
	}
	if int(binary.BigEndian.Uint16(v[2:4])) != len(v) {
		t.Fatalf("header length %v does not cover the message (%v bytes)", binary.BigEndian.Uint16(v[2:4]), len(v))
	}

	msg, err := ParseMessage(v)
	if err != nil {
		t.Fatalf("failed to parse FLOW_MOD: %v", err)
	}
	got, ok := msg.(*FlowMod)
	if !ok {
		t.Fatalf("unexpected message type: %T", msg)
	}
	if got.TransactionID() != 7 || got.Priority != 20 || got.Command != OFPFC_ADD {
		t.Fatalf("unexpected FLOW_MOD header fields: xid=%v, priority=%v, command=%v", got.TransactionID(), got.Priority, got.Command)
	}
	if diff := cmp.Diff(mod.Match, got.Match); diff != "" {
		t.Fatalf("match mismatch (-want +got):\n%v", diff)
	}
	if diff := cmp.Diff(mod.Instruction, got.Instruction); diff != "" {
		t.Fatalf("instruction mismatch (-want +got):\n%v", diff)
	}
}

func TestFlowDeleteAll(t *testing.T) {
	v, err := NewFlowDeleteAll(1).MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal FLOW_MOD: %v", err)
	}
	msg, err := ParseMessage(v)
	if err != nil {
		t.Fatalf("failed to parse FLOW_MOD: %v", err)
	}
	got := msg.(*FlowMod)
	if got.Command != OFPFC_DELETE || got.TableID != OFPTT_ALL || got.Instruction != nil {
		t.Fatalf("unexpected delete-all flow mod: %+v", got)
	}
}

func TestPacketIn(t *testing.T) {
	frame := []byte{0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 1, 0x08, 0x00}
	in := &PacketIn{
		BufferID: OFP_NO_BUFFER,
		Reason:   OFPR_NO_MATCH,
		Match:    Match{InPort: 5},
		Data:     frame,
	}
	v, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal PACKET_IN: %v", err)
	}

	msg, err := ParseMessage(v)
	if err != nil {
		t.Fatalf("failed to parse PACKET_IN: %v", err)
	}
	got := msg.(*PacketIn)
	if got.InPort() != 5 {
		t.Fatalf("unexpected in_port: expected=5, got=%v", got.InPort())
	}
	if got.IsBuffered() {
		t.Fatal("unbuffered PACKET_IN is reported as buffered")
	}
	if !bytes.Equal(got.Data, frame) {
		t.Fatalf("unexpected frame: %x", got.Data)
	}
}

func TestPacketOutBuffered(t *testing.T) {
	out := NewPacketOut(3)
	out.BufferID = 42
	out.InPort = 4
	out.Actions = []Output{{Port: OFPP_FLOOD}}
	// The switch already holds the frame, so it must not be attached.
	out.Data = []byte{1, 2, 3}

	v, err := out.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal PACKET_OUT: %v", err)
	}
	msg, err := ParseMessage(v)
	if err != nil {
		t.Fatalf("failed to parse PACKET_OUT: %v", err)
	}
	got := msg.(*PacketOut)
	if got.BufferID != 42 || got.InPort != 4 || len(got.Data) != 0 {
		t.Fatalf("unexpected PACKET_OUT: %+v", got)
	}
	if diff := cmp.Diff([]Output{{Port: OFPP_FLOOD}}, got.Actions); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%v", diff)
	}
}

func TestPacketOutWithoutAction(t *testing.T) {
	if _, err := NewPacketOut(1).MarshalBinary(); err != ErrMissingAction {
		t.Fatalf("expected ErrMissingAction, got %v", err)
	}
}

func TestFeaturesReply(t *testing.T) {
	reply := &FeaturesReply{DPID: 4, NumBuffers: 256, NumTables: 254}
	v, err := reply.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal FEATURES_REPLY: %v", err)
	}
	msg, err := ParseMessage(v)
	if err != nil {
		t.Fatalf("failed to parse FEATURES_REPLY: %v", err)
	}
	got := msg.(*FeaturesReply)
	if got.DPID != 4 || got.NumBuffers != 256 || got.NumTables != 254 {
		t.Fatalf("unexpected FEATURES_REPLY: %+v", got)
	}
}

func TestParseMessageErrors(t *testing.T) {
	if _, err := ParseMessage([]byte{0x04, 0}); err != ErrInvalidPacketLength {
		t.Fatalf("expected ErrInvalidPacketLength, got %v", err)
	}
	if _, err := ParseMessage([]byte{0x01, 0, 0, 8, 0, 0, 0, 0}); err != ErrUnsupportedVersion {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if _, err := ParseMessage([]byte{0x04, 0x63, 0, 8, 0, 0, 0, 0}); err != ErrUnsupportedMessage {
		t.Fatalf("expected ErrUnsupportedMessage, got %v", err)
	}
}
