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

package topology

import (
	"fmt"
	"net"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

type document struct {
	Switches []switchDoc `yaml:"switches"`
	Hosts    []hostDoc   `yaml:"hosts"`
}

type switchDoc struct {
	ID        uint64        `yaml:"id"`
	Name      string        `yaml:"name"`
	Role      string        `yaml:"role"`
	Uplinks   []uplinkDoc   `yaml:"uplinks"`
	Downlinks []downlinkDoc `yaml:"downlinks"`
}

type uplinkDoc struct {
	Spine uint64 `yaml:"spine"`
	Port  uint32 `yaml:"port"`
}

type downlinkDoc struct {
	Leaf uint64 `yaml:"leaf"`
	Port uint32 `yaml:"port"`
}

type hostDoc struct {
	Name string `yaml:"name"`
	MAC  string `yaml:"mac"`
	IP   string `yaml:"ip"`
	Leaf uint64 `yaml:"leaf"`
	Port uint32 `yaml:"port"`
}

// Load reads and validates a topology file.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	desc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	return desc, nil
}

// Parse decodes and validates a YAML topology document.
func Parse(data []byte) (*Descriptor, error) {
	var doc document
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.Wrap(err, "decoding topology")
	}

	desc := &Descriptor{
		Switches: make([]Switch, 0, len(doc.Switches)),
		Hosts:    make([]Host, 0, len(doc.Hosts)),
	}
	for _, v := range doc.Switches {
		sw := Switch{
			ID:   v.ID,
			Name: v.Name,
			Role: Role(v.Role),
		}
		for _, u := range v.Uplinks {
			sw.Uplinks = append(sw.Uplinks, Uplink{Spine: u.Spine, Port: u.Port})
		}
		for _, d := range v.Downlinks {
			sw.Downlinks = append(sw.Downlinks, Downlink{Leaf: d.Leaf, Port: d.Port})
		}
		desc.Switches = append(desc.Switches, sw)
	}
	for _, v := range doc.Hosts {
		mac, err := net.ParseMAC(v.MAC)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("host %v", v.Name))
		}
		ip, err := parseIP(v.IP)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("host %v", v.Name))
		}
		desc.Hosts = append(desc.Hosts, Host{
			Name: v.Name,
			MAC:  mac,
			IP:   ip,
			Leaf: v.Leaf,
			Port: v.Port,
		})
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}

	return desc, nil
}

// parseIP accepts a bare address or an address with a prefix length.
func parseIP(s string) (net.IP, error) {
	if s == "" {
		return nil, nil
	}
	if ip := net.ParseIP(s); ip != nil {
		return ip, nil
	}
	ip, _, err := net.ParseCIDR(s)
	if err != nil {
		return nil, fmt.Errorf("invalid IP address: %v", s)
	}

	return ip, nil
}
