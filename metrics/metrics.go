// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics publishes the vproc's live counters through
// Prometheus: a per-opcode operation counter, per-vtype object
// gauges, and the vnode cache's resident size.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/synarete/funex/super"
	"github.com/synarete/funex/vcache"
)

// Collector mirrors a mounted vproc's live state into Prometheus
// collectors on every Scrape, rather than pushing an update per
// operation; the super block and vnode cache already keep the
// authoritative counts, so this package only ever reads them.
type Collector struct {
	fs    *super.FSInfo
	cache *vcache.Cache

	opsTotal  *prometheus.CounterVec
	objsTotal *prometheus.GaugeVec
	cacheLen  prometheus.Gauge

	// lastOps remembers each opcode's previously-scraped count, since
	// Fsoper is a cumulative running total but prometheus.Counter only
	// exposes Add (never Set), so Scrape adds just the delta since the
	// prior call rather than re-summing from zero.
	lastOps map[string]int64
}

// New builds a Collector over fs and cache, registering its
// collectors with reg. Passing prometheus.NewRegistry() rather than
// the global DefaultRegisterer keeps repeated test construction from
// panicking on duplicate registration.
func New(fs *super.FSInfo, cache *vcache.Cache, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		fs:    fs,
		cache: cache,
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funex_ops_total",
			Help: "Number of dispatched operations, by opcode.",
		}, []string{"op"}),
		objsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "funex_objects",
			Help: "Number of live on-storage objects, by vtype.",
		}, []string{"vtype"}),
		cacheLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "funex_vcache_size",
			Help: "Number of vnodes currently resident in the vnode cache.",
		}),
		lastOps: make(map[string]int64),
	}
	for _, coll := range []prometheus.Collector{c.opsTotal, c.objsTotal, c.cacheLen} {
		if err := reg.Register(coll); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Scrape copies the super block's Fsoper map and Fsstat counters, and
// the vnode cache's resident length, into the registered collectors.
// Call it just before a Prometheus handler serves /metrics, or on a
// timer; it does no I/O and never blocks the vproc loop.
func (c *Collector) Scrape() {
	for op, n := range c.fs.Oper {
		delta := n - c.lastOps[op]
		if delta > 0 {
			c.opsTotal.WithLabelValues(op).Add(float64(delta))
			c.lastOps[op] = n
		}
	}
	st := c.fs.Stat
	c.objsTotal.WithLabelValues("dir").Set(float64(st.Dirs))
	c.objsTotal.WithLabelValues("reg").Set(float64(st.Regs))
	c.objsTotal.WithLabelValues("symlnk").Set(float64(st.Symlnks))
	c.objsTotal.WithLabelValues("reflnk").Set(float64(st.Reflnks))
	c.objsTotal.WithLabelValues("dirseg").Set(float64(st.Dirsegs))
	c.objsTotal.WithLabelValues("vbk").Set(float64(st.Vblks))
	c.cacheLen.Set(float64(c.cache.Len()))
}
