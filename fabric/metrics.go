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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fabric_frames_received_total",
			Help: "Total number of frames delivered to the learning engine.",
		},
	)
	framesFlooded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fabric_frames_flooded_total",
			Help: "Total number of frames flooded because their destination was unknown.",
		},
	)
	framesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_frames_dropped_total",
			Help: "Total number of frames dropped by the controller.",
		},
		[]string{"reason"},
	)
	sourcesLearned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fabric_sources_learned_total",
			Help: "Total number of source address observations recorded in learning tables.",
		},
	)
	activeSwitches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fabric_active_switches",
			Help: "Number of switches whose base rules are installed.",
		},
	)
)
