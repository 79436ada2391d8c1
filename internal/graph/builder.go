// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/metrics"
	"github.com/tomtom215/trustlens/internal/models"
	"github.com/tomtom215/trustlens/internal/storage"
)

// Limits caps how much data one graph query may pull from the stores.
type Limits struct {
	PivotLogs   int
	RelatedLogs int
	Flags       int
	ExportLogs  int
}

// DefaultLimits are sized so a hot entity still renders in one response.
func DefaultLimits() Limits {
	return Limits{PivotLogs: 3000, RelatedLogs: 5000, Flags: 500, ExportLogs: 10000}
}

// Service answers threat graph, correlation and export queries.
type Service struct {
	stores *storage.Stores
	limits Limits
	logger zerolog.Logger
}

// NewService wires a graph service over the given stores.
func NewService(stores *storage.Stores, limits Limits, logger zerolog.Logger) *Service {
	if limits.PivotLogs <= 0 {
		limits = DefaultLimits()
	}
	if limits.ExportLogs <= 0 {
		limits.ExportLogs = DefaultLimits().ExportLogs
	}
	return &Service{
		stores: stores,
		limits: limits,
		logger: logger.With().Str("component", "graph").Logger(),
	}
}

// ByDomain builds the threat graph around a domain: every log that
// queried it, plus every log sharing an address or key with those.
func (s *Service) ByDomain(ctx context.Context, domain string) (Graph, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	pivot, err := s.stores.Logs.ListByDomain(ctx, domain, s.limits.PivotLogs)
	if err != nil {
		return Graph{}, fmt.Errorf("graph pivot for domain %s: %w", domain, err)
	}
	related, err := s.relatedLogs(ctx, uniqueIPs(pivot), uniqueKeys(pivot), nil)
	if err != nil {
		return Graph{}, err
	}
	return s.build(ctx, append(pivot, related...), "DOMAIN", domain)
}

// ByIP builds the threat graph around a client address.
func (s *Service) ByIP(ctx context.Context, ip string) (Graph, error) {
	pivot, err := s.stores.Logs.ListByIP(ctx, ip, s.limits.PivotLogs)
	if err != nil {
		return Graph{}, fmt.Errorf("graph pivot for ip %s: %w", ip, err)
	}
	related, err := s.relatedLogs(ctx, nil, uniqueKeys(pivot), uniqueDomains(pivot))
	if err != nil {
		return Graph{}, err
	}
	return s.build(ctx, append(pivot, related...), "IP", ip)
}

// ByKey builds the threat graph around an API key.
func (s *Service) ByKey(ctx context.Context, keyID string) (Graph, error) {
	pivot, err := s.stores.Logs.ListByAPIKey(ctx, keyID, s.limits.PivotLogs)
	if err != nil {
		return Graph{}, fmt.Errorf("graph pivot for key: %w", err)
	}
	related, err := s.relatedLogs(ctx, uniqueIPs(pivot), nil, uniqueDomains(pivot))
	if err != nil {
		return Graph{}, err
	}
	return s.build(ctx, append(pivot, related...), "KEY", keyID)
}

// relatedLogs expands the pivot set one hop: logs sharing any of the
// given addresses, keys or domains. The combined result is capped at
// RelatedLogs.
func (s *Service) relatedLogs(ctx context.Context, ips, keys, domains []string) ([]models.RequestLog, error) {
	var related []models.RequestLog
	remaining := func() int { return s.limits.RelatedLogs - len(related) }

	for _, ip := range ips {
		if remaining() <= 0 {
			break
		}
		logs, err := s.stores.Logs.ListByIP(ctx, ip, remaining())
		if err != nil {
			return nil, fmt.Errorf("related logs by ip: %w", err)
		}
		related = append(related, logs...)
	}
	for _, key := range keys {
		if remaining() <= 0 {
			break
		}
		logs, err := s.stores.Logs.ListByAPIKey(ctx, key, remaining())
		if err != nil {
			return nil, fmt.Errorf("related logs by key: %w", err)
		}
		related = append(related, logs...)
	}
	for _, domain := range domains {
		if remaining() <= 0 {
			break
		}
		logs, err := s.stores.Logs.ListByDomain(ctx, domain, remaining())
		if err != nil {
			return nil, fmt.Errorf("related logs by domain: %w", err)
		}
		related = append(related, logs...)
	}
	return related, nil
}

// build assembles nodes and edges from a set of logs plus the abuse
// flags attached to any entity in the set.
func (s *Service) build(ctx context.Context, logs []models.RequestLog, focusType, focusID string) (Graph, error) {
	start := time.Now()

	domains := uniqueDomains(logs)
	ips := uniqueIPs(logs)
	keys := uniqueKeys(logs)
	users := uniqueUsers(logs)

	nodes := make(map[string]Node)
	edges := make(map[string]*Edge)

	for _, domain := range domains {
		addNode(nodes, Node{ID: nodeID(NodeDomain, domain), Type: NodeDomain, Label: domain})
	}
	for _, ip := range ips {
		addNode(nodes, Node{ID: nodeID(NodeIP, ip), Type: NodeIP, Label: ip})
	}
	for _, key := range keys {
		addNode(nodes, Node{
			ID:    nodeID(NodeKey, key),
			Type:  NodeKey,
			Label: MaskAPIKey(key),
			Meta:  map[string]any{"api_key_id": key},
		})
	}
	for _, user := range users {
		addNode(nodes, Node{
			ID:    nodeID(NodeUser, user),
			Type:  NodeUser,
			Label: MaskEmail(user),
			Meta:  map[string]any{"user_id": user},
		})
	}

	for _, log := range logs {
		if log.Domain != "" {
			addEdge(edges, Edge{From: nodeID(NodeIP, log.IPAddress), To: nodeID(NodeDomain, log.Domain), Kind: EdgeRelated, CreatedAt: log.CreatedAt})
		}
		if log.APIKeyID != "" {
			if log.Domain != "" {
				addEdge(edges, Edge{From: nodeID(NodeKey, log.APIKeyID), To: nodeID(NodeDomain, log.Domain), Kind: EdgeQueriedBy, CreatedAt: log.CreatedAt})
			}
			addEdge(edges, Edge{From: nodeID(NodeKey, log.APIKeyID), To: nodeID(NodeIP, log.IPAddress), Kind: EdgeUsedFrom, CreatedAt: log.CreatedAt})
		}
		switch {
		case log.UserID != "" && log.APIKeyID != "":
			addEdge(edges, Edge{From: nodeID(NodeUser, log.UserID), To: nodeID(NodeKey, log.APIKeyID), Kind: EdgeRelated, CreatedAt: log.CreatedAt})
		case log.UserID != "" && log.Domain != "":
			addEdge(edges, Edge{From: nodeID(NodeUser, log.UserID), To: nodeID(NodeDomain, log.Domain), Kind: EdgeRelated, CreatedAt: log.CreatedAt})
		}
	}

	flags, err := s.collectFlags(ctx, ips, keys, domains)
	if err != nil {
		return Graph{}, err
	}
	for _, flag := range flags {
		createdAt := flag.CreatedAt
		flagID := nodeID(NodeFlag, flag.ID.String())
		addNode(nodes, Node{
			ID:        flagID,
			Type:      NodeFlag,
			Label:     flag.Kind + ":" + flag.Severity,
			Severity:  flag.Severity,
			CreatedAt: &createdAt,
			Meta:      map[string]any{"flag_id": flag.ID.String(), "kind": flag.Kind, "severity": flag.Severity},
		})
		if flag.APIKeyID != "" {
			addEdge(edges, Edge{From: flagID, To: nodeID(NodeKey, flag.APIKeyID), Kind: EdgeFlagged, CreatedAt: flag.CreatedAt})
		}
		if flag.IPAddress != "" {
			addEdge(edges, Edge{From: flagID, To: nodeID(NodeIP, flag.IPAddress), Kind: EdgeFlagged, CreatedAt: flag.CreatedAt})
		}
		if flag.Domain != "" {
			addNode(nodes, Node{ID: nodeID(NodeDomain, flag.Domain), Type: NodeDomain, Label: flag.Domain})
			addEdge(edges, Edge{From: flagID, To: nodeID(NodeDomain, flag.Domain), Kind: EdgeFlagged, CreatedAt: flag.CreatedAt})
		}
	}

	graph := Graph{
		Nodes: sortedNodes(nodes),
		Edges: sortedEdges(edges),
		Summary: Summary{
			FocusType:   focusType,
			FocusID:     focusID,
			NodeCount:   len(nodes),
			EdgeCount:   len(edges),
			KeyCount:    len(keys),
			IPCount:     len(ips),
			DomainCount: len(domains),
			UserCount:   len(users),
			FlagCount:   len(flags),
		},
	}

	metrics.GraphBuildDuration.Observe(time.Since(start).Seconds())
	s.logger.Debug().
		Str("focus_type", focusType).
		Str("focus_id", focusID).
		Int("nodes", len(graph.Nodes)).
		Int("edges", len(graph.Edges)).
		Msg("threat graph built")
	return graph, nil
}

// collectFlags gathers the abuse flags attached to any of the given
// entities, deduplicated, newest first, capped at Limits.Flags.
func (s *Service) collectFlags(ctx context.Context, ips, keys, domains []string) ([]models.AbuseFlag, error) {
	seen := make(map[string]bool)
	var flags []models.AbuseFlag
	add := func(batch []models.AbuseFlag) {
		for _, flag := range batch {
			if !seen[flag.ID.String()] {
				seen[flag.ID.String()] = true
				flags = append(flags, flag)
			}
		}
	}

	for _, ip := range ips {
		batch, err := s.stores.Flags.ListByIP(ctx, ip, s.limits.Flags)
		if err != nil {
			return nil, fmt.Errorf("flags by ip: %w", err)
		}
		add(batch)
	}
	for _, key := range keys {
		batch, err := s.stores.Flags.ListByAPIKey(ctx, key, s.limits.Flags)
		if err != nil {
			return nil, fmt.Errorf("flags by key: %w", err)
		}
		add(batch)
	}
	for _, domain := range domains {
		batch, err := s.stores.Flags.ListByDomain(ctx, domain, s.limits.Flags)
		if err != nil {
			return nil, fmt.Errorf("flags by domain: %w", err)
		}
		add(batch)
	}

	sort.Slice(flags, func(i, j int) bool { return flags[i].CreatedAt.After(flags[j].CreatedAt) })
	if len(flags) > s.limits.Flags {
		flags = flags[:s.limits.Flags]
	}
	return flags, nil
}

func nodeID(t NodeType, value string) string {
	return string(t) + ":" + value
}

func addNode(nodes map[string]Node, node Node) {
	if _, ok := nodes[node.ID]; !ok {
		nodes[node.ID] = node
	}
}

func addEdge(edges map[string]*Edge, edge Edge) {
	key := edge.From + "|" + edge.To + "|" + string(edge.Kind)
	existing, ok := edges[key]
	if !ok {
		edge.Weight = 1
		edges[key] = &edge
		return
	}
	existing.Weight++
	if edge.CreatedAt.After(existing.CreatedAt) {
		existing.CreatedAt = edge.CreatedAt
	}
}

func sortedNodes(nodes map[string]Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedEdges(edges map[string]*Edge) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, edge := range edges {
		out = append(out, *edge)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func uniqueDomains(logs []models.RequestLog) []string {
	return unique(logs, func(l models.RequestLog) string { return l.Domain })
}

func uniqueIPs(logs []models.RequestLog) []string {
	return unique(logs, func(l models.RequestLog) string { return l.IPAddress })
}

func uniqueKeys(logs []models.RequestLog) []string {
	return unique(logs, func(l models.RequestLog) string { return l.APIKeyID })
}

func uniqueUsers(logs []models.RequestLog) []string {
	return unique(logs, func(l models.RequestLog) string { return l.UserID })
}

// unique extracts one field from each log, dropping empties and
// duplicates while preserving first-seen order.
func unique(logs []models.RequestLog, field func(models.RequestLog) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, log := range logs {
		value := field(log)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}
