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
	"fmt"
)

// Output is the OFPAT_OUTPUT action.
type Output struct {
	Port uint32
	// MaxLen is only meaningful when Port is OFPP_CONTROLLER.
	MaxLen uint16
}

func (r Output) String() string {
	switch r.Port {
	case OFPP_FLOOD:
		return "output:FLOOD"
	case OFPP_CONTROLLER:
		return "output:CONTROLLER"
	case OFPP_IN_PORT:
		return "output:IN_PORT"
	default:
		return fmt.Sprintf("output:%v", r.Port)
	}
}

func (r Output) MarshalBinary() ([]byte, error) {
	v := make([]byte, 16)
	binary.BigEndian.PutUint16(v[0:2], OFPAT_OUTPUT)
	binary.BigEndian.PutUint16(v[2:4], 16)
	binary.BigEndian.PutUint32(v[4:8], r.Port)
	binary.BigEndian.PutUint16(v[8:10], r.MaxLen)
	// v[10:16] is padding

	return v, nil
}

func marshalActions(actions []Output) ([]byte, error) {
	v := make([]byte, 0, 16*len(actions))
	for _, a := range actions {
		b, err := a.MarshalBinary()
		if err != nil {
			return nil, err
		}
		v = append(v, b...)
	}

	return v, nil
}

// unmarshalActions decodes an action list. Actions other than OUTPUT are skipped.
func unmarshalActions(data []byte) ([]Output, error) {
	result := make([]Output, 0)
	buf := data
	for len(buf) >= 4 {
		t := binary.BigEndian.Uint16(buf[0:2])
		length := int(binary.BigEndian.Uint16(buf[2:4]))
		if length < 4 || len(buf) < length {
			return nil, ErrInvalidPacketLength
		}

		if t == OFPAT_OUTPUT {
			if length < 16 {
				return nil, ErrInvalidPacketLength
			}
			result = append(result, Output{
				Port:   binary.BigEndian.Uint32(buf[4:8]),
				MaxLen: binary.BigEndian.Uint16(buf[8:10]),
			})
		}
		buf = buf[length:]
	}

	return result, nil
}

// ApplyActions is the OFPIT_APPLY_ACTIONS instruction.
type ApplyActions struct {
	Actions []Output
}

func (r ApplyActions) MarshalBinary() ([]byte, error) {
	if len(r.Actions) == 0 {
		return nil, ErrMissingAction
	}

	actions, err := marshalActions(r.Actions)
	if err != nil {
		return nil, err
	}

	v := make([]byte, 8)
	v = append(v, actions...)
	binary.BigEndian.PutUint16(v[0:2], OFPIT_APPLY_ACTIONS)
	binary.BigEndian.PutUint16(v[2:4], uint16(len(v)))
	// v[4:8] is padding

	return v, nil
}

// unmarshalInstructions returns the actions of the first APPLY_ACTIONS
// instruction in data, if any.
func unmarshalInstructions(data []byte) (*ApplyActions, error) {
	buf := data
	for len(buf) >= 4 {
		t := binary.BigEndian.Uint16(buf[0:2])
		length := int(binary.BigEndian.Uint16(buf[2:4]))
		if length < 8 || len(buf) < length {
			return nil, ErrInvalidPacketLength
		}

		if t == OFPIT_APPLY_ACTIONS {
			actions, err := unmarshalActions(buf[8:length])
			if err != nil {
				return nil, err
			}
			return &ApplyActions{Actions: actions}, nil
		}
		buf = buf[length:]
	}

	return nil, nil
}
