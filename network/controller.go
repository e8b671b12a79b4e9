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

// Package network manages the OpenFlow sessions of the connected switches and
// reports their life cycle and PACKET_INs to an EventListener.
package network

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/yyang13/leafspine/openflow"

	"github.com/pkg/errors"
	"github.com/superkkt/go-logging"
)

var (
	logger = logging.MustGetLogger("network")
)

var (
	errDuplicatedDevice = errors.New("duplicated device DPID (aux. connection is not supported yet)")
)

// EventListener receives the events of every switch session. Calls for one
// switch are never concurrent with each other; calls for different switches
// may be.
type EventListener interface {
	OnDeviceUp(*Device) error
	OnDeviceDown(*Device) error
	OnPacketIn(*Device, *openflow.PacketIn) error
}

type registry interface {
	addDevice(*Device) error
	removeDevice(*Device)
}

type Controller struct {
	mutex    sync.RWMutex
	devices  map[uint64]*Device
	listener EventListener
}

func NewController(l EventListener) *Controller {
	if l == nil {
		panic("Listener is nil")
	}

	return &Controller{
		devices:  make(map[uint64]*Device),
		listener: l,
	}
}

// AddConnection starts a new switch session on c. The session ends when ctx
// is canceled or the connection is closed.
func (r *Controller) AddConnection(ctx context.Context, c net.Conn) {
	conf := sessionConfig{
		conn:     c,
		registry: r,
		listener: r.listener,
	}
	session := newSession(conf)
	go session.Run(ctx)
}

func (r *Controller) addDevice(d *Device) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	dpid := d.DPID()
	if _, ok := r.devices[dpid]; ok {
		return errDuplicatedDevice
	}
	r.devices[dpid] = d

	return nil
}

func (r *Controller) removeDevice(d *Device) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	dpid := d.DPID()
	// Only remove the entry if it still points to this device.
	if v, ok := r.devices[dpid]; ok && v == d {
		delete(r.devices, dpid)
	}
}

// Device may return nil if there is no connected device whose DPID is dpid.
func (r *Controller) Device(dpid uint64) *Device {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.devices[dpid]
}

// Devices returns the connected devices sorted by DPID.
func (r *Controller) Devices() []*Device {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	v := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		v = append(v, d)
	}
	sort.Slice(v, func(i, j int) bool { return v[i].DPID() < v[j].DPID() })

	return v
}

func (r *Controller) String() string {
	v := ""
	for _, d := range r.Devices() {
		v += fmt.Sprintf("%v\n", d)
	}

	return v
}
