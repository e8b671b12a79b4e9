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
	"encoding/binary"
)

type PacketIn struct {
	Message
	BufferID uint32
	Length   uint16
	Reason   uint8
	TableID  uint8
	Cookie   uint64
	Match    Match
	Data     []byte
}

// InPort returns the ingress port carried in the PACKET_IN match.
func (r *PacketIn) InPort() uint32 {
	return r.Match.InPort
}

// IsBuffered reports whether the switch kept the frame in its own buffer.
func (r *PacketIn) IsBuffered() bool {
	return r.BufferID != OFP_NO_BUFFER
}

func (r *PacketIn) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}

	payload := r.Payload()
	if len(payload) < 24 {
		return ErrInvalidPacketLength
	}
	r.BufferID = binary.BigEndian.Uint32(payload[0:4])
	r.Length = binary.BigEndian.Uint16(payload[4:6])
	r.Reason = payload[6]
	r.TableID = payload[7]
	r.Cookie = binary.BigEndian.Uint64(payload[8:16])

	if err := r.Match.UnmarshalBinary(payload[16:]); err != nil {
		return err
	}
	length, err := matchLength(payload[16:])
	if err != nil {
		return err
	}

	dataOffset := 16 + length + 2 // +2 is padding
	if len(payload) >= dataOffset {
		r.Data = payload[dataOffset:]
	}

	return nil
}

func (r *PacketIn) MarshalBinary() ([]byte, error) {
	v := make([]byte, 16)
	binary.BigEndian.PutUint32(v[0:4], r.BufferID)
	binary.BigEndian.PutUint16(v[4:6], uint16(len(r.Data)))
	v[6] = r.Reason
	v[7] = r.TableID
	binary.BigEndian.PutUint64(v[8:16], r.Cookie)

	match, err := r.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	v = append(v, match...)
	v = append(v, 0, 0)
	v = append(v, r.Data...)

	r.version = OF13_VERSION
	r.msgType = OFPT_PACKET_IN
	r.SetPayload(v)
	return r.Message.MarshalBinary()
}

type PacketOut struct {
	Message
	BufferID uint32
	InPort   uint32
	Actions  []Output
	// Data must be empty when BufferID refers to a switch buffer.
	Data []byte
}

func NewPacketOut(xid uint32) *PacketOut {
	return &PacketOut{
		Message:  NewMessage(OF13_VERSION, OFPT_PACKET_OUT, xid),
		BufferID: OFP_NO_BUFFER,
		InPort:   OFPP_CONTROLLER,
	}
}

func (r *PacketOut) MarshalBinary() ([]byte, error) {
	if len(r.Actions) == 0 {
		return nil, ErrMissingAction
	}
	actions, err := marshalActions(r.Actions)
	if err != nil {
		return nil, err
	}

	v := make([]byte, 16)
	binary.BigEndian.PutUint32(v[0:4], r.BufferID)
	binary.BigEndian.PutUint32(v[4:8], r.InPort)
	binary.BigEndian.PutUint16(v[8:10], uint16(len(actions)))
	// v[10:16] is padding
	v = append(v, actions...)
	if r.BufferID == OFP_NO_BUFFER && len(r.Data) > 0 {
		v = append(v, r.Data...)
	}

	r.SetPayload(v)
	return r.Message.MarshalBinary()
}

func (r *PacketOut) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}

	payload := r.Payload()
	if len(payload) < 16 {
		return ErrInvalidPacketLength
	}
	r.BufferID = binary.BigEndian.Uint32(payload[0:4])
	r.InPort = binary.BigEndian.Uint32(payload[4:8])
	length := int(binary.BigEndian.Uint16(payload[8:10]))
	if len(payload) < 16+length {
		return ErrInvalidPacketLength
	}
	actions, err := unmarshalActions(payload[16 : 16+length])
	if err != nil {
		return err
	}
	r.Actions = actions
	if len(payload) > 16+length {
		r.Data = payload[16+length:]
	}

	return nil
}
