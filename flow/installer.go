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

package flow

import (
	"encoding"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yyang13/leafspine/openflow"

	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/pkg/errors"
	"github.com/superkkt/go-logging"
)

var (
	logger = logging.MustGetLogger("flow")
)

const (
	// Number of recently sent rules remembered across all switches.
	recentRuleCacheSize = 8192
)

// Switch is the control channel of one switch.
type Switch interface {
	DPID() uint64
	SendMessage(msg encoding.BinaryMarshaler) error
}

type ruleKey struct {
	dpid     uint64
	priority Priority
	inPort   uint32
	dstMAC   string
}

type sentRule struct {
	action    Action
	timestamp time.Time
}

// Installer sends flow rules and frames to switches. Each call writes exactly
// one message and does not wait for the switch to acknowledge it.
//
// An Install identical to one that was successfully sent to the same switch
// within the suppression window is not sent again. After the window a repeated
// Install reaches the switch, so a rule lost on the channel is eventually
// re-sent by the next frame that needs it.
type Installer struct {
	xid    atomic.Uint32
	window time.Duration
	recent *arc.ARCCache[ruleKey, sentRule]
	now    func() time.Time
}

// NewInstaller returns an installer. A zero window disables suppression.
func NewInstaller(window time.Duration) *Installer {
	c, err := arc.NewARC[ruleKey, sentRule](recentRuleCacheSize)
	if err != nil {
		panic(fmt.Sprintf("ARC flow cache: %v", err))
	}

	return &Installer{
		window: window,
		recent: c,
		now:    time.Now,
	}
}

func newRuleKey(sw Switch, p Priority, m Match) ruleKey {
	return ruleKey{
		dpid:     sw.DPID(),
		priority: p,
		inPort:   m.InPort,
		dstMAC:   m.DstMAC.String(),
	}
}

func (r *Installer) isRecent(key ruleKey, action Action) bool {
	if r.window <= 0 {
		return false
	}

	v, ok := r.recent.Get(key)
	if !ok || v.action != action {
		return false
	}

	return r.now().Sub(v.timestamp) < r.window
}

// Install adds (or replaces) the rule with match m and priority p on sw.
func (r *Installer) Install(sw Switch, p Priority, m Match, a Action) error {
	if !p.valid() {
		return fmt.Errorf("invalid flow priority: %v", p)
	}

	key := newRuleKey(sw, p, m)
	if r.isRecent(key, a) {
		logger.Debugf("skip a recently installed flow rule: DPID=%v, priority=%v, match=%v, action=%v", sw.DPID(), p, m, a)
		return nil
	}

	mod := openflow.NewFlowMod(r.xid.Add(1))
	mod.Priority = uint16(p)
	mod.Match = m.openflow()
	mod.Instruction = &openflow.ApplyActions{Actions: []openflow.Output{a.openflow()}}
	if err := sw.SendMessage(mod); err != nil {
		r.recent.Remove(key)
		return errors.Wrap(err, fmt.Sprintf("installing a flow rule (DPID=%v, priority=%v, match=%v)", sw.DPID(), p, m))
	}
	if r.window > 0 {
		r.recent.Add(key, sentRule{action: a, timestamp: r.now()})
	}
	rulesInstalled.WithLabelValues(p.String()).Inc()
	logger.Debugf("installed a flow rule: DPID=%v, priority=%v, match=%v, action=%v", sw.DPID(), p, m, a)

	return nil
}

// Emit sends a frame out of sw as if it had arrived on inPort. payload is
// only attached when the frame is not held in the switch buffer bufferID.
func (r *Installer) Emit(sw Switch, inPort uint32, a Action, bufferID uint32, payload []byte) error {
	out := openflow.NewPacketOut(r.xid.Add(1))
	out.BufferID = bufferID
	out.InPort = inPort
	out.Actions = []openflow.Output{a.openflow()}
	if bufferID == openflow.OFP_NO_BUFFER {
		out.Data = payload
	}

	if err := sw.SendMessage(out); err != nil {
		return errors.Wrap(err, fmt.Sprintf("emitting a frame (DPID=%v, inPort=%v, action=%v)", sw.DPID(), inPort, a))
	}
	framesEmitted.WithLabelValues(actionLabel(a)).Inc()

	return nil
}

// Forget drops what the installer remembers about the rules sent to dpid.
func (r *Installer) Forget(dpid uint64) {
	for _, k := range r.recent.Keys() {
		if k.dpid == dpid {
			r.recent.Remove(k)
		}
	}
}
