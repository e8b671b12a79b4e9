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

// Package fabric programs a leaf-spine switching fabric: static routes derived
// from the topology descriptor on every switch, and reactive MAC learning for
// the traffic the static routes do not cover.
package fabric

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yyang13/leafspine/flow"
	"github.com/yyang13/leafspine/network"
	"github.com/yyang13/leafspine/openflow"
	"github.com/yyang13/leafspine/topology"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/superkkt/go-logging"
)

var (
	logger = logging.MustGetLogger("fabric")
)

type State int

const (
	StateDisconnected State = iota
	// Base rules are being installed.
	StateConnecting
	// Base rules are installed and frames are processed.
	StateActive
)

func (r State) String() string {
	switch r {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateActive:
		return "Active"
	default:
		return fmt.Sprintf("State(%d)", int(r))
	}
}

type Config struct {
	// Zero means learned entries never expire.
	LearningTTL time.Duration
	// Zero means the learning table of a switch is unbounded.
	LearningCapacity uint64
}

type switchContext struct {
	mutex sync.Mutex
	dpid  uint64
	state State
	table *LearningTable
}

// App is the session handler of the fabric. It implements
// network.EventListener.
type App struct {
	topo       *topology.Descriptor
	programmer Programmer
	engine     *LearningEngine
	conf       Config

	mutex    sync.Mutex
	switches map[uint64]*switchContext
}

func NewApp(topo *topology.Descriptor, p Programmer, conf Config) *App {
	if topo == nil {
		panic("nil topology descriptor")
	}
	if p == nil {
		panic("nil programmer")
	}

	return &App{
		topo:       topo,
		programmer: p,
		engine:     NewLearningEngine(p),
		conf:       conf,
		switches:   make(map[uint64]*switchContext),
	}
}

func (r *App) context(dpid uint64) *switchContext {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ctx, ok := r.switches[dpid]
	if !ok {
		ctx = &switchContext{dpid: dpid}
		r.switches[dpid] = ctx
	}

	return ctx
}

func (r *App) lookup(dpid uint64) *switchContext {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.switches[dpid]
}

// State returns the state of the switch dpid.
func (r *App) State(dpid uint64) State {
	ctx := r.lookup(dpid)
	if ctx == nil {
		return StateDisconnected
	}

	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()

	return ctx.state
}

// SwitchConnected installs the base rules of sw: the table-miss rule first,
// then the static routes of the switch in builder order.
func (r *App) SwitchConnected(sw flow.Switch) error {
	ctx := r.context(sw.DPID())
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()

	// A repeated connect without a disconnect starts over.
	if ctx.state == StateActive {
		activeSwitches.Dec()
	}
	ctx.state = StateConnecting
	ctx.table = NewLearningTable(r.conf.LearningTTL, r.conf.LearningCapacity)

	if err := r.programmer.Install(sw, flow.PriorityTableMiss, flow.Match{}, flow.ToController); err != nil {
		return errors.Wrap(err, "installing the table-miss rule")
	}

	desc, ok := r.topo.Switch(sw.DPID())
	if !ok {
		logger.Warningf("DPID %v is not in the topology descriptor: only reactive forwarding is available", sw.DPID())
	} else {
		logger.Infof("installing the static routes of %v", desc)
	}

	routes := BuildRoutes(r.topo, sw.DPID())
	logger.Debugf("static routes of DPID %v: %v", sw.DPID(), spew.Sdump(routes))
	for _, v := range routes {
		m := flow.Match{DstMAC: v.Dst}
		// A failed route only costs a detour through the controller.
		if err := r.programmer.Install(sw, flow.PriorityStatic, m, flow.Output(v.Port)); err != nil {
			logger.Errorf("failed to install the static route %v on DPID %v: %v", v, sw.DPID(), err)
		}
	}

	ctx.state = StateActive
	activeSwitches.Inc()
	logger.Infof("DPID %v is active with %v static routes", sw.DPID(), len(routes))

	return nil
}

// SwitchDisconnected discards everything learned on the switch dpid.
func (r *App) SwitchDisconnected(dpid uint64) {
	ctx := r.lookup(dpid)
	if ctx == nil {
		return
	}

	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()

	if ctx.state == StateActive {
		activeSwitches.Dec()
	}
	ctx.state = StateDisconnected
	if ctx.table != nil {
		ctx.table.Reset()
		ctx.table = nil
	}
	r.programmer.Forget(dpid)
	logger.Infof("DPID %v is disconnected", dpid)
}

// FrameReceived hands f to the learning engine if sw is active.
func (r *App) FrameReceived(sw flow.Switch, f Frame) error {
	ctx := r.lookup(sw.DPID())
	if ctx == nil {
		framesDropped.WithLabelValues("inactive").Inc()
		logger.Warningf("dropping a frame from unknown DPID %v", sw.DPID())
		return nil
	}

	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()

	if ctx.state != StateActive {
		framesDropped.WithLabelValues("inactive").Inc()
		logger.Warningf("dropping a frame from DPID %v: switch is %v", sw.DPID(), ctx.state)
		return nil
	}

	return r.engine.OnFrame(sw, ctx.table, f)
}

func (r *App) OnDeviceUp(d *network.Device) error {
	f := d.Features()
	logger.Infof("switch is up: DPID=%v, NumBuffers=%v, NumTables=%v", f.DPID, f.NumBuffers, f.NumTables)

	return r.SwitchConnected(d)
}

func (r *App) OnDeviceDown(d *network.Device) error {
	r.SwitchDisconnected(d.DPID())
	return nil
}

func (r *App) OnPacketIn(d *network.Device, v *openflow.PacketIn) error {
	return r.FrameReceived(d, Frame{
		InPort:   v.InPort(),
		BufferID: v.BufferID,
		Data:     v.Data,
	})
}

// Sweep removes the expired entries of every learning table.
func (r *App) Sweep() {
	r.mutex.Lock()
	switches := make([]*switchContext, 0, len(r.switches))
	for _, v := range r.switches {
		switches = append(switches, v)
	}
	r.mutex.Unlock()

	for _, v := range switches {
		v.mutex.Lock()
		if v.table != nil {
			v.table.Sweep()
		}
		v.mutex.Unlock()
	}
}

// Run sweeps the learning tables every interval until ctx is canceled.
func (r *App) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *App) String() string {
	r.mutex.Lock()
	dpids := make([]uint64, 0, len(r.switches))
	for k := range r.switches {
		dpids = append(dpids, k)
	}
	r.mutex.Unlock()
	sort.Slice(dpids, func(i, j int) bool { return dpids[i] < dpids[j] })

	var buf bytes.Buffer
	for _, v := range dpids {
		ctx := r.lookup(v)
		ctx.mutex.Lock()
		learned := 0
		if ctx.table != nil {
			learned = ctx.table.Len()
		}
		buf.WriteString(fmt.Sprintf("DPID=%v, state=%v, learned=%v\n", v, ctx.state, learned))
		ctx.mutex.Unlock()
	}

	return buf.String()
}
