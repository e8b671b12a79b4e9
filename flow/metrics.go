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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rulesInstalled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_flow_rules_installed_total",
			Help: "Total number of FLOW_MOD messages sent to switches.",
		},
		[]string{"tier"},
	)
	framesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_frames_emitted_total",
			Help: "Total number of PACKET_OUT messages sent to switches.",
		},
		[]string{"action"},
	)
)

func actionLabel(a Action) string {
	switch a.Kind {
	case ActionFlood:
		return "flood"
	case ActionToController:
		return "controller"
	default:
		return "output"
	}
}
