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

package transceiver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/yyang13/leafspine/openflow"

	"go.uber.org/goleak"
)

type recorder struct {
	hello    chan *openflow.Hello
	packetIn chan *openflow.PacketIn
}

func newRecorder() *recorder {
	return &recorder{
		hello:    make(chan *openflow.Hello, 1),
		packetIn: make(chan *openflow.PacketIn, 8),
	}
}

func (r *recorder) OnHello(w Writer, v *openflow.Hello) error {
	r.hello <- v
	return nil
}

func (r *recorder) OnError(w Writer, v *openflow.Error) error {
	return nil
}

func (r *recorder) OnFeaturesReply(w Writer, v *openflow.FeaturesReply) error {
	return nil
}

func (r *recorder) OnBarrierReply(w Writer, v *openflow.BarrierReply) error {
	return nil
}

func (r *recorder) OnPacketIn(w Writer, v *openflow.PacketIn) error {
	r.packetIn <- v
	return nil
}

func write(t *testing.T, conn net.Conn, msg interface{ MarshalBinary() ([]byte, error) }) {
	t.Helper()

	v, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(v); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func read(t *testing.T, s *Stream) openflow.Incoming {
	t.Helper()

	s.SetReadTimeout(2 * time.Second)
	header, err := s.Peek(8)
	if err != nil {
		t.Fatalf("failed to read a header: %v", err)
	}
	packet, err := s.ReadN(int(header[2])<<8 | int(header[3]))
	if err != nil {
		t.Fatalf("failed to read a message: %v", err)
	}
	msg, err := openflow.ParseMessage(packet)
	if err != nil {
		t.Fatalf("failed to parse a message: %v", err)
	}

	return msg
}

func TestTransceiverDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl, sw := net.Pipe()
	defer sw.Close()
	swStream := NewStream(sw, 0xFFFF)

	h := newRecorder()
	tr := NewTransceiver(NewStream(ctrl, 0xFFFF), h)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tr.Run(ctx)
	}()

	write(t, sw, openflow.NewHello(1))
	select {
	case <-h.hello:
	case <-time.After(2 * time.Second):
		t.Fatal("HELLO was not dispatched")
	}

	// Echo requests are answered by the transceiver itself.
	write(t, sw, openflow.NewEchoRequest(9, []byte("ping")))
	reply, ok := read(t, swStream).(*openflow.EchoReply)
	if !ok {
		t.Fatal("expected ECHO_REPLY")
	}
	if reply.TransactionID() != 9 || string(reply.Payload()) != "ping" {
		t.Fatalf("unexpected ECHO_REPLY: xid=%v, data=%q", reply.TransactionID(), reply.Payload())
	}

	for port := uint32(1); port <= 3; port++ {
		write(t, sw, &openflow.PacketIn{BufferID: openflow.OFP_NO_BUFFER, Match: openflow.Match{InPort: port}})
	}
	// PACKET_INs keep their arrival order.
	for port := uint32(1); port <= 3; port++ {
		select {
		case v := <-h.packetIn:
			if v.InPort() != port {
				t.Fatalf("unexpected PACKET_IN order: expected port %v, got %v", port, v.InPort())
			}
		case <-time.After(2 * time.Second):
			t.Fatal("PACKET_IN was not dispatched")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected Run error: %v", err)
	}
	tr.Close()
}

func TestTransceiverRejectsMissingHello(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl, sw := net.Pipe()
	defer sw.Close()

	tr := NewTransceiver(NewStream(ctrl, 0xFFFF), newRecorder())
	done := make(chan error, 1)
	go func() {
		done <- tr.Run(context.Background())
	}()

	write(t, sw, &openflow.PacketIn{BufferID: openflow.OFP_NO_BUFFER, Match: openflow.Match{InPort: 1}})
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a negotiation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not fail without HELLO")
	}
	tr.Close()
}
