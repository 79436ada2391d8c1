// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package graph

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/models"
	"github.com/tomtom215/trustlens/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Stores) {
	t.Helper()
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	stores := storage.NewStores(db)
	return NewService(stores, DefaultLimits(), zerolog.Nop()), stores
}

func addLog(t *testing.T, stores *storage.Stores, domain, ip, keyID, userID string, at time.Time) {
	t.Helper()
	_, err := stores.Logs.Create(context.Background(), models.RequestLog{
		Endpoint:   "/api/v1/domains/check",
		Method:     "POST",
		Domain:     domain,
		IPAddress:  ip,
		APIKeyID:   keyID,
		UserID:     userID,
		StatusCode: 200,
		CreatedAt:  at,
	})
	if err != nil {
		t.Fatalf("create log: %v", err)
	}
}

func findNode(g Graph, id string) (Node, bool) {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}

func findEdge(g Graph, from, to string, kind EdgeKind) (Edge, bool) {
	for _, edge := range g.Edges {
		if edge.From == from && edge.To == to && edge.Kind == kind {
			return edge, true
		}
	}
	return Edge{}, false
}

func TestByDomainBuildsExpectedShape(t *testing.T) {
	svc, stores := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	addLog(t, stores, "evil.example", "203.0.113.1", "tlk_1234567890abcdef", "alice@corp.example", base)
	addLog(t, stores, "evil.example", "203.0.113.1", "tlk_1234567890abcdef", "alice@corp.example", base.Add(time.Minute))
	// Same key, different domain: pulled in as a related log.
	addLog(t, stores, "sibling.example", "198.51.100.2", "tlk_1234567890abcdef", "", base.Add(2*time.Minute))

	g, err := svc.ByDomain(ctx, "evil.example")
	if err != nil {
		t.Fatalf("by domain: %v", err)
	}

	for _, id := range []string{
		"DOMAIN:evil.example",
		"DOMAIN:sibling.example",
		"IP:203.0.113.1",
		"KEY:tlk_1234567890abcdef",
		"USER:alice@corp.example",
	} {
		if _, ok := findNode(g, id); !ok {
			t.Errorf("node %s missing", id)
		}
	}

	if _, ok := findEdge(g, "KEY:tlk_1234567890abcdef", "DOMAIN:evil.example", EdgeQueriedBy); !ok {
		t.Error("QUERIED_BY edge missing")
	}
	if _, ok := findEdge(g, "KEY:tlk_1234567890abcdef", "IP:203.0.113.1", EdgeUsedFrom); !ok {
		t.Error("USED_FROM edge missing")
	}
	if _, ok := findEdge(g, "USER:alice@corp.example", "KEY:tlk_1234567890abcdef", EdgeRelated); !ok {
		t.Error("user-key RELATED edge missing")
	}

	if g.Summary.FocusType != "DOMAIN" || g.Summary.FocusID != "evil.example" {
		t.Errorf("summary focus = %s:%s", g.Summary.FocusType, g.Summary.FocusID)
	}
	if g.Summary.DomainCount != 2 || g.Summary.KeyCount != 1 {
		t.Errorf("summary counts = %+v", g.Summary)
	}
}

func TestRepeatedObservationsMergeIntoOneEdge(t *testing.T) {
	svc, stores := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	later := base.Add(time.Hour)

	addLog(t, stores, "evil.example", "203.0.113.1", "", "", base)
	addLog(t, stores, "evil.example", "203.0.113.1", "", "", later)

	g, err := svc.ByDomain(ctx, "evil.example")
	if err != nil {
		t.Fatalf("by domain: %v", err)
	}
	edge, ok := findEdge(g, "IP:203.0.113.1", "DOMAIN:evil.example", EdgeRelated)
	if !ok {
		t.Fatal("RELATED edge missing")
	}
	if edge.Weight != 2 {
		t.Errorf("weight = %d, want 2", edge.Weight)
	}
	if !edge.CreatedAt.Equal(later) {
		t.Errorf("created at = %v, want latest observation %v", edge.CreatedAt, later)
	}
}

func TestFlagsAttachToGraph(t *testing.T) {
	svc, stores := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	addLog(t, stores, "evil.example", "203.0.113.1", "", "", base)
	flag, err := stores.Flags.Create(ctx, models.AbuseFlag{
		Kind:      "ML_ANOMALY_SPIKE",
		Severity:  "HIGH",
		IPAddress: "203.0.113.1",
		Domain:    "evil.example",
		CreatedAt: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("create flag: %v", err)
	}

	g, err := svc.ByIP(ctx, "203.0.113.1")
	if err != nil {
		t.Fatalf("by ip: %v", err)
	}

	flagNodeID := "FLAG:" + flag.ID.String()
	node, ok := findNode(g, flagNodeID)
	if !ok {
		t.Fatal("flag node missing")
	}
	if node.Label != "ML_ANOMALY_SPIKE:HIGH" || node.Severity != "HIGH" {
		t.Errorf("flag node = %+v", node)
	}
	if _, ok := findEdge(g, flagNodeID, "IP:203.0.113.1", EdgeFlagged); !ok {
		t.Error("FLAGGED edge to ip missing")
	}
	if _, ok := findEdge(g, flagNodeID, "DOMAIN:evil.example", EdgeFlagged); !ok {
		t.Error("FLAGGED edge to domain missing")
	}
	if g.Summary.FlagCount != 1 {
		t.Errorf("flag count = %d, want 1", g.Summary.FlagCount)
	}
}

func TestGraphIsDeterministic(t *testing.T) {
	svc, stores := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i, domain := range []string{"a.example", "b.example", "c.example"} {
		addLog(t, stores, domain, "203.0.113.1", "tlk_1234567890abcdef", "", base.Add(time.Duration(i)*time.Second))
	}

	first, err := svc.ByIP(ctx, "203.0.113.1")
	if err != nil {
		t.Fatalf("by ip: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := svc.ByIP(ctx, "203.0.113.1")
		if err != nil {
			t.Fatalf("by ip: %v", err)
		}
		if len(again.Nodes) != len(first.Nodes) || len(again.Edges) != len(first.Edges) {
			t.Fatal("graph shape varies across identical queries")
		}
		for j := range first.Nodes {
			if again.Nodes[j].ID != first.Nodes[j].ID {
				t.Fatal("node ordering varies across identical queries")
			}
		}
		for j := range first.Edges {
			if again.Edges[j] != first.Edges[j] {
				t.Fatal("edge ordering varies across identical queries")
			}
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"tlk_1234567890abcdef", "tlk_12...cdef"},
		{"short", "****"},
		{"", "****"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"alice@corp.example", "a***e@corp.example"},
		{"Bo@corp.example", "b***@corp.example"},
		{"x@corp.example", "x***@corp.example"},
		{"not-an-email", "***"},
		{"@corp.example", "***"},
	}
	for _, tt := range tests {
		if got := MaskEmail(tt.email); got != tt.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
