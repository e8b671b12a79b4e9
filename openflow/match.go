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
	"fmt"
	"net"
)

// Match is an OXM flow match. Only the fields the fabric matches on are
// supported; a zero InPort and a nil DstMAC are wildcards.
type Match struct {
	InPort uint32
	DstMAC net.HardwareAddr
}

func (r Match) String() string {
	inPort := "*"
	if r.InPort != 0 {
		inPort = fmt.Sprintf("%v", r.InPort)
	}
	dst := "*"
	if r.DstMAC != nil {
		dst = r.DstMAC.String()
	}

	return fmt.Sprintf("in_port=%v,eth_dst=%v", inPort, dst)
}

func oxmHeader(field uint8, length uint8) []byte {
	v := make([]byte, 4)
	binary.BigEndian.PutUint16(v[0:2], OFPXMC_OPENFLOW_BASIC)
	v[2] = field << 1 // hasmask is always zero
	v[3] = length

	return v
}

func (r Match) MarshalBinary() ([]byte, error) {
	oxm := make([]byte, 0)
	if r.InPort != 0 {
		v := oxmHeader(OFPXMT_OFB_IN_PORT, 4)
		v = binary.BigEndian.AppendUint32(v, r.InPort)
		oxm = append(oxm, v...)
	}
	if r.DstMAC != nil {
		if len(r.DstMAC) != 6 {
			return nil, ErrInvalidMACAddress
		}
		v := oxmHeader(OFPXMT_OFB_ETH_DST, 6)
		v = append(v, r.DstMAC...)
		oxm = append(oxm, v...)
	}

	v := make([]byte, 4)
	binary.BigEndian.PutUint16(v[0:2], OFPMT_OXM)
	// Length excludes the padding
	binary.BigEndian.PutUint16(v[2:4], uint16(4+len(oxm)))
	v = append(v, oxm...)
	// Add padding to align as a multiple of 8
	if rem := len(v) % 8; rem > 0 {
		v = append(v, bytes.Repeat([]byte{0}, 8-rem)...)
	}

	return v, nil
}

// UnmarshalBinary decodes an ofp_match. Fields other than IN_PORT and
// ETH_DST are skipped.
func (r *Match) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return ErrInvalidPacketLength
	}
	if t := binary.BigEndian.Uint16(data[0:2]); t != OFPMT_OXM {
		return fmt.Errorf("unsupported match type: %v", t)
	}
	length := int(binary.BigEndian.Uint16(data[2:4]))
	if length < 4 || len(data) < length {
		return ErrInvalidPacketLength
	}

	*r = Match{}
	buf := data[4:length]
	for len(buf) >= 4 {
		class := binary.BigEndian.Uint16(buf[0:2])
		field := buf[2] >> 1
		n := int(buf[3])
		if len(buf) < 4+n {
			return ErrInvalidPacketLength
		}
		value := buf[4 : 4+n]

		if class == OFPXMC_OPENFLOW_BASIC {
			switch field {
			case OFPXMT_OFB_IN_PORT:
				if n != 4 {
					return ErrInvalidPacketLength
				}
				r.InPort = binary.BigEndian.Uint32(value)
			case OFPXMT_OFB_ETH_DST:
				if n < 6 {
					return ErrInvalidPacketLength
				}
				mac := make(net.HardwareAddr, 6)
				copy(mac, value[:6])
				r.DstMAC = mac
			}
		}
		buf = buf[4+n:]
	}

	return nil
}

// matchLength returns the on-wire length of the match at data, padding included.
func matchLength(data []byte) (int, error) {
	if len(data) < 4 {
		return 0, ErrInvalidPacketLength
	}
	length := int(binary.BigEndian.Uint16(data[2:4]))
	if rem := length % 8; rem > 0 {
		length += 8 - rem
	}
	if len(data) < length {
		return 0, ErrInvalidPacketLength
	}

	return length, nil
}
