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

package network

import (
	"context"
	"encoding"
	"net"

	"github.com/yyang13/leafspine/openflow"
	"github.com/yyang13/leafspine/openflow/transceiver"

	"github.com/pkg/errors"
)

var (
	errNotNegotiated = errors.New("invalid command on non-negotiated session")
)

type session struct {
	negotiated bool
	// True after we get the first barrier reply that means all the previously
	// installed flows on the device have been removed.
	checkpoint bool
	// True after the device has been registered and reported up.
	up          bool
	device      *Device
	transceiver *transceiver.Transceiver
	registry    registry
	listener    EventListener
}

type sessionConfig struct {
	conn     net.Conn
	registry registry
	listener EventListener
}

func checkParam(c sessionConfig) {
	if c.conn == nil {
		panic("Conn is nil")
	}
	if c.registry == nil {
		panic("Registry is nil")
	}
	if c.listener == nil {
		panic("Listener is nil")
	}
}

func newSession(c sessionConfig) *session {
	checkParam(c)

	stream := transceiver.NewStream(c.conn, 0xFFFF)
	v := new(session)
	v.registry = c.registry
	v.listener = c.listener
	v.device = newDevice(v)
	v.transceiver = transceiver.NewTransceiver(stream, v)

	return v
}

func (r *session) xid() uint32 {
	return r.transceiver.NextTransactionID()
}

func (r *session) OnHello(w transceiver.Writer, v *openflow.Hello) error {
	logger.Debugf("HELLO (ver=%v) is received", v.Version())

	// Ignore duplicated HELLO messages
	if r.negotiated {
		return nil
	}
	r.negotiated = true

	if err := w.Write(openflow.NewHello(r.xid())); err != nil {
		return errors.Wrap(err, "failed to send HELLO")
	}
	// Start from an empty flow table so that nothing left by a previous
	// controller shadows the rules we are about to install.
	if err := w.Write(openflow.NewFlowDeleteAll(r.xid())); err != nil {
		return errors.Wrap(err, "failed to send FLOW_MOD (delete all)")
	}
	if err := w.Write(openflow.NewBarrierRequest(r.xid())); err != nil {
		return errors.Wrap(err, "failed to send BARRIER_REQUEST")
	}

	return nil
}

func (r *session) OnBarrierReply(w transceiver.Writer, v *openflow.BarrierReply) error {
	if !r.negotiated {
		return errNotNegotiated
	}
	if r.checkpoint {
		logger.Debugf("ignore the barrier reply: DPID=%v", r.device.ID())
		return nil
	}

	if err := w.Write(openflow.NewFeaturesRequest(r.xid())); err != nil {
		return errors.Wrap(err, "failed to send FEATURES_REQUEST")
	}
	r.checkpoint = true

	return nil
}

// isOverlapError reports whether v rejects a FLOW_MOD sent with
// OFPFF_CHECK_OVERLAP because it overlaps an installed rule.
func isOverlapError(v *openflow.Error) bool {
	return v.Class == openflow.OFPET_FLOW_MOD_FAILED && v.Code == openflow.OFPFMFC_OVERLAP
}

func (r *session) OnError(w transceiver.Writer, v *openflow.Error) error {
	if isOverlapError(v) {
		logger.Debug("FLOW_MOD is overlapped")
		return nil
	}

	logger.Errorf("ERROR (DPID=%v, class=%v, code=%v, data=%x)", r.device.ID(), v.Class, v.Code, v.Data)
	if !r.negotiated {
		return errNotNegotiated
	}

	return nil
}

func (r *session) OnFeaturesReply(w transceiver.Writer, v *openflow.FeaturesReply) error {
	logger.Debugf("FEATURES_REPLY (DPID=%v, NumBufs=%v, NumTables=%v)", v.DPID, v.NumBuffers, v.NumTables)

	if !r.negotiated {
		return errNotNegotiated
	}
	if r.device.isReady() {
		logger.Debug("ignoring an additional FEATURES_REPLY")
		return nil
	}

	r.device.setFeatures(Features{
		DPID:       v.DPID,
		NumBuffers: v.NumBuffers,
		NumTables:  v.NumTables,
	})
	if err := r.registry.addDevice(r.device); err != nil {
		return errors.Wrap(err, r.device.ID())
	}
	r.up = true
	logger.Infof("device is ready: DPID=%v", r.device.ID())

	// A failure here leaves the switch with whatever was installed before
	// the error; the session itself keeps running.
	if err := r.listener.OnDeviceUp(r.device); err != nil {
		logger.Errorf("OnDeviceUp (DPID=%v): %v", r.device.ID(), err)
	}

	return nil
}

func (r *session) OnPacketIn(w transceiver.Writer, v *openflow.PacketIn) error {
	if !r.negotiated {
		return errNotNegotiated
	}
	logger.Debugf("PACKET_IN is received (device=%v, inport=%v, reason=%v, tableID=%v, cookie=%v)",
		r.device.ID(), v.InPort(), v.Reason, v.TableID, v.Cookie)

	// Do nothing if the ingress device is not yet ready.
	if !r.device.isReady() {
		logger.Debugf("ignoring PACKET_IN: device is not ready: inPort=%v", v.InPort())
		return nil
	}

	if err := r.listener.OnPacketIn(r.device, v); err != nil {
		logger.Errorf("OnPacketIn (DPID=%v): %v", r.device.ID(), err)
	}

	return nil
}

func (r *session) Run(ctx context.Context) {
	if err := r.transceiver.Run(ctx); err != nil {
		logger.Errorf("openflow transceiver is unexpectedly closed: %v", err)
	}
	logger.Infof("disconnected device (DPID=%v)", r.device.ID())

	r.transceiver.Close()
	r.device.Close()
	if r.up {
		if err := r.listener.OnDeviceDown(r.device); err != nil {
			logger.Errorf("OnDeviceDown: %v", err)
		}
		r.registry.removeDevice(r.device)
	}
}

func (r *session) Write(msg encoding.BinaryMarshaler) error {
	return r.transceiver.Write(msg)
}
