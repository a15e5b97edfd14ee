// Package gate ties the admission evaluator to the rest of the process: it
// resolves vhosts, caches verdicts, records decision statistics, and bans
// repeat offenders.
package gate

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sunbk201/mediagate/internal/config"
	"github.com/sunbk201/mediagate/internal/security"
	"github.com/sunbk201/mediagate/internal/statistics"
)

// Banner bans a source address at a lower layer. *netfilter.Firewall
// implements it.
type Banner interface {
	Ban(addr string) error
}

type vhostGate struct {
	name  string
	sec   *security.Security
	rules *security.RuleSet
}

type verdict struct {
	permitted bool
	reason    string
}

type Gate struct {
	cfg       *config.Config
	vhosts    map[string]*vhostGate
	cache     *expirable.LRU[string, verdict]
	decisions *statistics.DecisionRecordList
	firewall  Banner

	mu      sync.Mutex
	denials map[string]int
}

// New builds a Gate from config. decisions must be non-nil; firewall may be
// nil when banning is disabled.
func New(cfg *config.Config, decisions *statistics.DecisionRecordList, firewall Banner) *Gate {
	vhosts := make(map[string]*vhostGate, len(cfg.Vhosts))
	for _, v := range cfg.Vhosts {
		vhosts[v.Name] = &vhostGate{
			name:  v.Name,
			sec:   security.New(v.Security.Enabled),
			rules: v.Security.RuleSet(),
		}
	}

	var cache *expirable.LRU[string, verdict]
	if cfg.CacheTTL > 0 {
		size := cfg.CacheSize
		if size <= 0 {
			size = 1024
		}
		cache = expirable.NewLRU[string, verdict](size, nil, cfg.CacheTTL)
	}

	return &Gate{
		cfg:       cfg,
		vhosts:    vhosts,
		cache:     cache,
		decisions: decisions,
		firewall:  firewall,
		denials:   make(map[string]int),
	}
}

// Admit decides whether a connection attempt of the given subtype from addr
// may proceed against vhost. It returns nil when permitted and a
// *security.DeniedError otherwise. Vhosts without a configuration entry, and
// vhosts with security disabled, bypass evaluation entirely.
func (g *Gate) Admit(vhost string, conn security.ConnType, addr string) error {
	vg := g.lookup(vhost)
	if vg == nil || !vg.sec.Enabled() {
		return nil
	}

	op := conn.Operation()
	key := fmt.Sprintf("%s|%s|%s", vg.name, op, addr)

	// The cache only short-circuits rule evaluation. Statistics and the
	// denial counter see every attempt, cached or not, so repeat offenders
	// reach the ban threshold even while their verdict is cached.
	var err error
	cached := false
	if g.cache != nil {
		if v, ok := g.cache.Get(key); ok {
			cached = true
			if !v.permitted {
				err = &security.DeniedError{Reason: v.reason}
			}
		}
	}
	if !cached {
		err = vg.sec.Check(vg.rules, op, addr)
		if g.cache != nil {
			v := verdict{permitted: err == nil}
			if err != nil {
				v.reason = err.Error()
			}
			g.cache.Add(key, v)
		}
	}

	g.record(vg.name, op, addr, err)

	if err != nil {
		slog.Info("admission denied",
			slog.String("vhost", vg.name),
			slog.String("operation", op.String()),
			slog.String("addr", addr),
			slog.String("reason", err.Error()))
		g.trackDenial(addr)
		return err
	}

	slog.Debug("admission permitted",
		slog.String("vhost", vg.name),
		slog.String("operation", op.String()),
		slog.String("addr", addr))
	g.resetDenials(addr)
	return nil
}

// lookup resolves a vhost gate, falling back to __defaultVhost__.
func (g *Gate) lookup(vhost string) *vhostGate {
	if vg, ok := g.vhosts[vhost]; ok {
		return vg
	}
	return g.vhosts[config.DefaultVhost]
}

func (g *Gate) record(vhost string, op security.Operation, addr string, err error) {
	rec := &statistics.DecisionRecord{
		Vhost:     vhost,
		Operation: op.String(),
		Addr:      addr,
		Permitted: err == nil,
		LastSeen:  time.Now(),
	}
	if err != nil {
		rec.Reason = err.Error()
	}
	g.decisions.Record(rec)
}

// trackDenial counts consecutive denials per address and bans the address
// once the configured threshold is reached.
func (g *Gate) trackDenial(addr string) {
	if g.firewall == nil || !g.cfg.Ban.Enabled {
		return
	}

	g.mu.Lock()
	g.denials[addr]++
	count := g.denials[addr]
	if count >= g.cfg.Ban.Threshold {
		delete(g.denials, addr)
	}
	g.mu.Unlock()

	if count < g.cfg.Ban.Threshold {
		return
	}
	if err := g.firewall.Ban(addr); err != nil {
		slog.Error("failed to ban address", slog.String("addr", addr), slog.Any("error", err))
		return
	}
	slog.Warn("address banned",
		slog.String("addr", addr),
		slog.Int("denials", count),
		slog.Duration("timeout", g.cfg.Ban.Timeout))
}

func (g *Gate) resetDenials(addr string) {
	if g.firewall == nil || !g.cfg.Ban.Enabled {
		return
	}
	g.mu.Lock()
	delete(g.denials, addr)
	g.mu.Unlock()
}

// Decisions exposes the decision recorder for the API layer.
func (g *Gate) Decisions() *statistics.DecisionRecordList {
	return g.decisions
}
