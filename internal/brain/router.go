package brain

import "strings"

// DefaultModule handles anything no rule claims.
const DefaultModule = "ai"

// RouteRule maps an intent name to a module. Exact rules match the whole
// name; other rules match by prefix.
type RouteRule struct {
	Pattern string
	Exact   bool
	Module  string
}

// DefaultRoutes returns the routing table in evaluation order.
func DefaultRoutes() []RouteRule {
	return []RouteRule{
		{Pattern: "system.", Module: "system"},
		{Pattern: "time.", Module: "time"},
		{Pattern: "math.", Module: "calculator"},
		{Pattern: "info.weather", Exact: true, Module: "weather"},
		{Pattern: "music.", Module: "music"},
		{Pattern: "notes.", Module: "notes"},
		{Pattern: "unknown", Exact: true, Module: "ai"},
	}
}

// Router resolves intent names to module names.
type Router struct {
	rules    []RouteRule
	fallback string
}

// NewRouter creates a router over rules. An empty fallback means "ai".
func NewRouter(rules []RouteRule, fallback string) *Router {
	if fallback == "" {
		fallback = DefaultModule
	}
	copied := make([]RouteRule, len(rules))
	copy(copied, rules)
	return &Router{rules: copied, fallback: fallback}
}

// Route returns the module for intent. Exact rules are tried before prefix
// rules; within each pass the first rule in table order wins.
func (r *Router) Route(intent string) string {
	for _, rule := range r.rules {
		if rule.Exact && intent == rule.Pattern {
			return rule.Module
		}
	}
	for _, rule := range r.rules {
		if !rule.Exact && strings.HasPrefix(intent, rule.Pattern) {
			return rule.Module
		}
	}
	return r.fallback
}

// Modules lists the distinct modules the table can route to, fallback last.
func (r *Router) Modules() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range r.rules {
		if !seen[rule.Module] {
			seen[rule.Module] = true
			out = append(out, rule.Module)
		}
	}
	if !seen[r.fallback] {
		out = append(out, r.fallback)
	}
	return out
}
