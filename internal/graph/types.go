// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

// Package graph builds entity relationship graphs, cross-entity
// correlations and intel exports from the request log and abuse flag
// stores. Key and user identifiers are masked before they reach a
// response.
package graph

import "time"

// NodeType classifies a graph node.
type NodeType string

const (
	NodeDomain NodeType = "DOMAIN"
	NodeIP     NodeType = "IP"
	NodeKey    NodeType = "KEY"
	NodeUser   NodeType = "USER"
	NodeFlag   NodeType = "FLAG"
)

// EdgeKind classifies a graph edge.
type EdgeKind string

const (
	EdgeQueriedBy EdgeKind = "QUERIED_BY"
	EdgeUsedFrom  EdgeKind = "USED_FROM"
	EdgeFlagged   EdgeKind = "FLAGGED"
	EdgeRelated   EdgeKind = "RELATED"
)

// Node is one vertex in a threat graph. Labels for keys and users are
// masked renderings, never the raw identifier.
type Node struct {
	ID        string         `json:"id"`
	Type      NodeType       `json:"type"`
	Label     string         `json:"label"`
	Severity  string         `json:"severity,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Edge is one relationship in a threat graph. Repeated observations of
// the same (from, to, kind) triple merge into a single edge whose weight
// counts the observations and whose timestamp is the most recent one.
type Edge struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Kind      EdgeKind  `json:"kind"`
	Weight    int       `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary carries the focus of a graph query and the entity counts.
type Summary struct {
	FocusType   string `json:"focus_type"`
	FocusID     string `json:"focus_id"`
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
	KeyCount    int    `json:"key_count"`
	IPCount     int    `json:"ip_count"`
	DomainCount int    `json:"domain_count"`
	UserCount   int    `json:"user_count"`
	FlagCount   int    `json:"flag_count"`
}

// Graph is a complete threat graph response.
type Graph struct {
	Nodes   []Node  `json:"nodes"`
	Edges   []Edge  `json:"edges"`
	Summary Summary `json:"summary"`
}

// FlagSummary is the abbreviated abuse flag shape used in correlation
// responses.
type FlagSummary struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// DomainCorrelation links a domain to the infrastructure that queried it
// and to other domains sharing that infrastructure.
type DomainCorrelation struct {
	Domain         string        `json:"domain"`
	RelatedDomains []string      `json:"related_domains"`
	RelatedIPs     []string      `json:"related_ips"`
	RelatedKeys    []string      `json:"related_keys"`
	Flags          []FlagSummary `json:"flags"`
}

// IPCorrelation links an address to the domains, keys and users seen
// from it and to other addresses sharing those.
type IPCorrelation struct {
	IP             string        `json:"ip"`
	RelatedDomains []string      `json:"related_domains"`
	RelatedIPs     []string      `json:"related_ips"`
	RelatedKeys    []string      `json:"related_keys"`
	RelatedUsers   []string      `json:"related_users"`
	Flags          []FlagSummary `json:"flags"`
}
