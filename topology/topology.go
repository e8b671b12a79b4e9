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

// Package topology describes the fixed leaf-spine fabric the controller
// manages: its switches, their roles and inter-switch ports, and where every
// host is attached.
package topology

import (
	"bytes"
	"fmt"
	"net"
)

type Role string

const (
	RoleSpine Role = "spine"
	RoleLeaf  Role = "leaf"
)

// Uplink is a leaf port facing a spine.
type Uplink struct {
	Spine uint64
	Port  uint32
}

// Downlink is a spine port facing a leaf.
type Downlink struct {
	Leaf uint64
	Port uint32
}

type Switch struct {
	ID   uint64
	Name string
	Role Role
	// Uplinks is ordered; the first entry is the designated next hop toward
	// hosts on other leaves. Only set for leaves.
	Uplinks []Uplink
	// Only set for spines.
	Downlinks []Downlink
}

func (r Switch) String() string {
	if r.Name == "" {
		return fmt.Sprintf("%v(%v)", r.Role, r.ID)
	}

	return fmt.Sprintf("%v(%v, %v)", r.Role, r.Name, r.ID)
}

// Uplink returns the designated uplink of a leaf.
func (r Switch) Uplink() (Uplink, bool) {
	if len(r.Uplinks) == 0 {
		return Uplink{}, false
	}

	return r.Uplinks[0], true
}

// DownlinkTo returns the port of a spine that faces leaf.
func (r Switch) DownlinkTo(leaf uint64) (uint32, bool) {
	for _, v := range r.Downlinks {
		if v.Leaf == leaf {
			return v.Port, true
		}
	}

	return 0, false
}

type Host struct {
	Name string
	MAC  net.HardwareAddr
	IP   net.IP
	// Leaf is the ID of the attaching leaf switch.
	Leaf uint64
	// Port is the access port on the leaf.
	Port uint32
}

func (r Host) String() string {
	return fmt.Sprintf("%v(%v, %v)", r.Name, r.MAC, r.IP)
}

// Descriptor is the whole fabric. It is immutable once built; consumers share
// one instance.
type Descriptor struct {
	Switches []Switch
	Hosts    []Host
}

// Switch returns the switch whose ID is id.
func (r *Descriptor) Switch(id uint64) (Switch, bool) {
	for _, v := range r.Switches {
		if v.ID == id {
			return v, true
		}
	}

	return Switch{}, false
}

// HostsOn returns the hosts attached to leaf, in declaration order.
func (r *Descriptor) HostsOn(leaf uint64) []Host {
	result := make([]Host, 0)
	for _, v := range r.Hosts {
		if v.Leaf == leaf {
			result = append(result, v)
		}
	}

	return result
}

// Host returns the host whose MAC address is mac.
func (r *Descriptor) Host(mac net.HardwareAddr) (Host, bool) {
	for _, v := range r.Hosts {
		if bytes.Equal(v.MAC, mac) {
			return v, true
		}
	}

	return Host{}, false
}

// Ports returns every port of the switch that is known from the descriptor.
func (r *Descriptor) Ports(id uint64) []uint32 {
	sw, ok := r.Switch(id)
	if !ok {
		return nil
	}

	result := make([]uint32, 0)
	switch sw.Role {
	case RoleLeaf:
		for _, v := range sw.Uplinks {
			result = append(result, v.Port)
		}
		for _, v := range r.HostsOn(id) {
			result = append(result, v.Port)
		}
	case RoleSpine:
		for _, v := range sw.Downlinks {
			result = append(result, v.Port)
		}
	}

	return result
}

// Validate checks the structural consistency of the descriptor. A host on an
// undeclared leaf is not an error: no switch will have a route to it.
func (r *Descriptor) Validate() error {
	switches := make(map[uint64]Switch)
	for _, v := range r.Switches {
		if _, ok := switches[v.ID]; ok {
			return fmt.Errorf("duplicated switch ID: %v", v.ID)
		}
		switch v.Role {
		case RoleLeaf:
			if len(v.Downlinks) > 0 {
				return fmt.Errorf("leaf %v has downlinks", v)
			}
		case RoleSpine:
			if len(v.Uplinks) > 0 {
				return fmt.Errorf("spine %v has uplinks", v)
			}
		default:
			return fmt.Errorf("invalid role of switch %v: %q", v.ID, v.Role)
		}
		switches[v.ID] = v
	}

	macs := make(map[string]struct{})
	for _, v := range r.Hosts {
		if len(v.MAC) != 6 {
			return fmt.Errorf("invalid MAC address of host %v", v.Name)
		}
		if _, ok := macs[v.MAC.String()]; ok {
			return fmt.Errorf("duplicated host MAC address: %v", v.MAC)
		}
		macs[v.MAC.String()] = struct{}{}
		if v.Port == 0 {
			return fmt.Errorf("invalid access port of host %v", v.Name)
		}
		if sw, ok := switches[v.Leaf]; ok && sw.Role != RoleLeaf {
			return fmt.Errorf("host %v is attached to %v", v.Name, sw)
		}
	}

	for _, v := range r.Switches {
		if err := validateLinks(v, switches); err != nil {
			return err
		}
		if err := r.validatePorts(v); err != nil {
			return err
		}
	}

	return nil
}

func validateLinks(sw Switch, switches map[uint64]Switch) error {
	for _, v := range sw.Uplinks {
		peer, ok := switches[v.Spine]
		if !ok || peer.Role != RoleSpine {
			return fmt.Errorf("uplink port %v of %v does not lead to a spine: %v", v.Port, sw, v.Spine)
		}
	}
	for _, v := range sw.Downlinks {
		peer, ok := switches[v.Leaf]
		if !ok || peer.Role != RoleLeaf {
			return fmt.Errorf("downlink port %v of %v does not lead to a leaf: %v", v.Port, sw, v.Leaf)
		}
	}

	return nil
}

// validatePorts rejects a port used twice on one switch, either by two links
// or two hosts or a link and a host.
func (r *Descriptor) validatePorts(sw Switch) error {
	used := make(map[uint32]struct{})
	for _, v := range r.Ports(sw.ID) {
		if v == 0 {
			return fmt.Errorf("invalid port number on %v", sw)
		}
		if _, ok := used[v]; ok {
			return fmt.Errorf("port %v of %v is used more than once", v, sw)
		}
		used[v] = struct{}{}
	}

	return nil
}
