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

// ParseMessage decodes one complete OpenFlow 1.3 message. packet must hold
// exactly the bytes announced by its header length.
func ParseMessage(packet []byte) (Incoming, error) {
	if len(packet) < 8 {
		return nil, ErrInvalidPacketLength
	}
	if packet[0] != OF13_VERSION {
		return nil, ErrUnsupportedVersion
	}

	var msg Incoming
	switch packet[1] {
	case OFPT_HELLO:
		msg = new(Hello)
	case OFPT_ERROR:
		msg = new(Error)
	case OFPT_ECHO_REQUEST:
		msg = new(EchoRequest)
	case OFPT_ECHO_REPLY:
		msg = new(EchoReply)
	case OFPT_FEATURES_REQUEST:
		msg = new(FeaturesRequest)
	case OFPT_FEATURES_REPLY:
		msg = new(FeaturesReply)
	case OFPT_PACKET_IN:
		msg = new(PacketIn)
	case OFPT_PACKET_OUT:
		msg = new(PacketOut)
	case OFPT_FLOW_MOD:
		msg = new(FlowMod)
	case OFPT_BARRIER_REQUEST:
		msg = new(BarrierRequest)
	case OFPT_BARRIER_REPLY:
		msg = new(BarrierReply)
	default:
		return nil, ErrUnsupportedMessage
	}

	if err := msg.UnmarshalBinary(packet); err != nil {
		return nil, err
	}

	return msg, nil
}
