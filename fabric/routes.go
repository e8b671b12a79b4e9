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
	"net"

	"github.com/yyang13/leafspine/topology"
)

type Tier int

const (
	// Host attached to this leaf.
	TierLocal Tier = iota
	// Host on another leaf, reached through the designated uplink.
	TierRemote
	// Spine toward the leaf owning the host.
	TierSpine
)

func (r Tier) String() string {
	switch r {
	case TierLocal:
		return "local"
	case TierRemote:
		return "remote"
	case TierSpine:
		return "spine"
	default:
		return fmt.Sprintf("Tier(%d)", int(r))
	}
}

// Route sends frames for Dst out of Port.
type Route struct {
	Dst  net.HardwareAddr
	Port uint32
	Tier Tier
}

func (r Route) String() string {
	return fmt.Sprintf("%v -> %v (%v)", r.Dst, r.Port, r.Tier)
}

// BuildRoutes derives the static routing table of switch id from the
// descriptor alone. Destinations the descriptor cannot place are left out;
// frames for them reach the controller and are flooded.
func BuildRoutes(desc *topology.Descriptor, id uint64) []Route {
	sw, ok := desc.Switch(id)
	if !ok {
		return nil
	}

	switch sw.Role {
	case topology.RoleLeaf:
		return leafRoutes(desc, sw)
	case topology.RoleSpine:
		return spineRoutes(desc, sw)
	default:
		return nil
	}
}

func leafRoutes(desc *topology.Descriptor, leaf topology.Switch) []Route {
	result := make([]Route, 0, len(desc.Hosts))
	for _, h := range desc.HostsOn(leaf.ID) {
		result = append(result, Route{Dst: h.MAC, Port: h.Port, Tier: TierLocal})
	}

	// One fixed next hop for everything else; the fabric does no load splitting.
	uplink, ok := leaf.Uplink()
	if !ok {
		logger.Warningf("leaf %v has no uplink: hosts on other leaves have no static route", leaf)
		return result
	}
	for _, h := range desc.Hosts {
		if h.Leaf == leaf.ID {
			continue
		}
		result = append(result, Route{Dst: h.MAC, Port: uplink.Port, Tier: TierRemote})
	}

	return result
}

func spineRoutes(desc *topology.Descriptor, spine topology.Switch) []Route {
	result := make([]Route, 0, len(desc.Hosts))
	for _, h := range desc.Hosts {
		port, ok := spine.DownlinkTo(h.Leaf)
		if !ok {
			logger.Debugf("spine %v has no downlink toward leaf %v: no static route to %v", spine, h.Leaf, h)
			continue
		}
		result = append(result, Route{Dst: h.MAC, Port: port, Tier: TierSpine})
	}

	return result
}
