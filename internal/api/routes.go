package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sunbk201/mediagate/internal/security"
)

func (s *APIServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"version": s.version,
	})
}

func (s *APIServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	// Never echo the secret back.
	cfg := *s.cfg
	cfg.APISecret = ""
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cfg)
}

func (s *APIServer) handleVhosts(w http.ResponseWriter, r *http.Request) {
	type vhostInfo struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
		Rules   int    `json:"rules"`
	}
	vhosts := make([]vhostInfo, 0, len(s.cfg.Vhosts))
	for _, v := range s.cfg.Vhosts {
		vhosts = append(vhosts, vhostInfo{
			Name:    v.Name,
			Enabled: v.Security.Enabled,
			Rules:   len(v.Security.Rules),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(vhosts)
}

func (s *APIServer) handleRules(w http.ResponseWriter, r *http.Request) {
	rules := make(map[string][]security.Directive, len(s.cfg.Vhosts))
	for _, v := range s.cfg.Vhosts {
		if rs := v.Security.RuleSet(); rs != nil {
			rules[v.Name] = rs.Directives
		} else {
			rules[v.Name] = nil
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rules)
}

func (s *APIServer) handleVhostRules(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "vhost")
	v := s.cfg.Vhost(name)
	if v == nil {
		http.Error(w, `{"error":"unknown vhost"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	var directives []security.Directive
	if rs := v.Security.RuleSet(); rs != nil {
		directives = rs.Directives
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"vhost":   v.Name,
		"enabled": v.Security.Enabled,
		"rules":   directives,
	})
}

// handleCheck evaluates one admission attempt:
// GET /check?vhost=live.example.com&operation=publish&address=203.0.113.7
func (s *APIServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	vhost := r.URL.Query().Get("vhost")
	operation := r.URL.Query().Get("operation")
	address := r.URL.Query().Get("address")

	if vhost == "" || operation == "" || address == "" {
		http.Error(w, `{"error":"vhost, operation and address are required"}`, http.StatusBadRequest)
		return
	}

	conn := security.ParseConnType(operation)
	err := s.gate.Admit(vhost, conn, address)

	resp := map[string]any{
		"vhost":     vhost,
		"operation": conn.Operation().String(),
		"address":   address,
		"permitted": err == nil,
	}
	if err != nil {
		resp["reason"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *APIServer) handleDecisions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.gate.Decisions().Snapshot())
}
