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
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadSampleFabric(t *testing.T) {
	desc, err := Load("../configs/leafspine.yaml")
	if err != nil {
		t.Fatalf("failed to load the sample topology: %v", err)
	}
	if len(desc.Switches) != 5 || len(desc.Hosts) != 6 {
		t.Fatalf("unexpected fabric size: switches=%v, hosts=%v", len(desc.Switches), len(desc.Hosts))
	}

	leaf, ok := desc.Switch(4)
	if !ok || leaf.Role != RoleLeaf || leaf.Name != "l1" {
		t.Fatalf("unexpected switch 4: %+v", leaf)
	}
	uplink, ok := leaf.Uplink()
	if !ok || uplink != (Uplink{Spine: 1, Port: 1}) {
		t.Fatalf("unexpected designated uplink: %+v", uplink)
	}
	if diff := cmp.Diff([]uint32{1, 2, 3, 4, 5, 6}, desc.Ports(4)); diff != "" {
		t.Fatalf("leaf ports mismatch (-want +got):\n%v", diff)
	}

	spine, _ := desc.Switch(2)
	if port, ok := spine.DownlinkTo(5); !ok || port != 2 {
		t.Fatalf("unexpected downlink of spine 2 toward leaf 5: %v, %v", port, ok)
	}

	h1, ok := desc.Host(net.HardwareAddr{0, 0, 0, 0, 0, 1})
	if !ok {
		t.Fatal("h1 is missing")
	}
	if h1.Name != "h1" || h1.Leaf != 4 || h1.Port != 4 || !h1.IP.Equal(net.ParseIP("10.0.0.1")) {
		t.Fatalf("unexpected h1: %+v", h1)
	}

	names := make([]string, 0)
	for _, v := range desc.HostsOn(5) {
		names = append(names, v.Name)
	}
	if diff := cmp.Diff([]string{"h4", "h5", "h6"}, names); diff != "" {
		t.Fatalf("hosts on leaf 5 mismatch (-want +got):\n%v", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"duplicated switch": `
switches:
  - {id: 1, role: spine}
  - {id: 1, role: leaf}
`,
		"unknown role": `
switches:
  - {id: 1, role: core}
`,
		"host on a spine": `
switches:
  - {id: 1, role: spine}
hosts:
  - {name: h1, mac: "00:00:00:00:00:01", leaf: 1, port: 1}
`,
		"bad MAC": `
hosts:
  - {name: h1, mac: "zz:00:00:00:00:01", leaf: 1, port: 1}
`,
		"duplicated MAC": `
hosts:
  - {name: h1, mac: "00:00:00:00:00:01", leaf: 1, port: 1}
  - {name: h2, mac: "00:00:00:00:00:01", leaf: 1, port: 2}
`,
		"uplink to an unknown switch": `
switches:
  - {id: 4, role: leaf, uplinks: [{spine: 9, port: 1}]}
`,
		"uplink to a leaf": `
switches:
  - {id: 4, role: leaf, uplinks: [{spine: 5, port: 1}]}
  - {id: 5, role: leaf}
`,
		"downlink to a spine": `
switches:
  - {id: 1, role: spine, downlinks: [{leaf: 2, port: 1}]}
  - {id: 2, role: spine}
`,
		"host on an uplink port": `
switches:
  - {id: 1, role: spine}
  - {id: 4, role: leaf, uplinks: [{spine: 1, port: 1}]}
hosts:
  - {name: h1, mac: "00:00:00:00:00:01", leaf: 4, port: 1}
`,
		"two hosts on one port": `
switches:
  - {id: 4, role: leaf}
hosts:
  - {name: h1, mac: "00:00:00:00:00:01", leaf: 4, port: 4}
  - {name: h2, mac: "00:00:00:00:00:02", leaf: 4, port: 4}
`,
		"two downlinks on one port": `
switches:
  - {id: 1, role: spine, downlinks: [{leaf: 4, port: 1}, {leaf: 5, port: 1}]}
  - {id: 4, role: leaf}
  - {id: 5, role: leaf}
`,
		"unknown field": `
switches:
  - {id: 1, role: leaf, color: red}
`,
	}

	for name, doc := range tests {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%v: expected an error", name)
		}
	}
}

func TestHostOnUndeclaredLeaf(t *testing.T) {
	doc := `
switches:
  - {id: 1, role: spine, downlinks: [{leaf: 4, port: 1}]}
  - {id: 4, role: leaf, uplinks: [{spine: 1, port: 1}]}
hosts:
  - {name: h9, mac: "00:00:00:00:00:09", leaf: 9, port: 4}
`
	desc, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("a host on an undeclared leaf must be accepted: %v", err)
	}
	if len(desc.HostsOn(9)) != 1 {
		t.Fatal("h9 is missing")
	}
}
