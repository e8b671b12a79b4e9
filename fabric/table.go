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
	"net"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// LearningTable maps the source MAC addresses seen on one switch to the port
// they were last seen on. A zero ttl never expires entries and a zero
// capacity never bounds the table.
type LearningTable struct {
	cache *ttlcache.Cache[string, uint32]
}

func NewLearningTable(ttl time.Duration, capacity uint64) *LearningTable {
	opts := []ttlcache.Option[string, uint32]{
		// Only a new observation of the source keeps an entry alive.
		ttlcache.WithDisableTouchOnHit[string, uint32](),
	}
	if ttl > 0 {
		opts = append(opts, ttlcache.WithTTL[string, uint32](ttl))
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, uint32](capacity))
	}

	return &LearningTable{
		cache: ttlcache.New[string, uint32](opts...),
	}
}

// Learn binds mac to port, replacing any previous binding.
func (r *LearningTable) Learn(mac net.HardwareAddr, port uint32) {
	r.cache.Set(mac.String(), port, ttlcache.DefaultTTL)
}

func (r *LearningTable) Lookup(mac net.HardwareAddr) (port uint32, ok bool) {
	item := r.cache.Get(mac.String())
	if item == nil {
		return 0, false
	}

	return item.Value(), true
}

func (r *LearningTable) Len() int {
	return r.cache.Len()
}

// Sweep removes the expired entries.
func (r *LearningTable) Sweep() {
	r.cache.DeleteExpired()
}

func (r *LearningTable) Reset() {
	r.cache.DeleteAll()
}
