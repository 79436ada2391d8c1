// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package graph

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trustlens/internal/models"
)

func TestExportDomainBundle(t *testing.T) {
	svc, stores := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	addLog(t, stores, "evil.example", "203.0.113.1", "key-1", "", base)
	addLog(t, stores, "evil.example", "203.0.113.1", "key-1", "", base.Add(time.Minute))
	for i, score := range []int{20, 60} {
		_, err := stores.History.Append(ctx, models.HistoryEntry{
			Domain:    "evil.example",
			Score:     score,
			RiskLevel: "MEDIUM",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("append history: %v", err)
		}
	}
	_, err := stores.Flags.Create(ctx, models.AbuseFlag{
		Kind:      "ML_ANOMALY_SPIKE",
		Severity:  "HIGH",
		IPAddress: "203.0.113.1",
		CreatedAt: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("create flag: %v", err)
	}

	export, err := svc.ExportDomain(ctx, "Evil.Example")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.Scope["domain"] != "evil.example" {
		t.Errorf("scope = %v, want normalized domain", export.Scope)
	}
	if len(export.Logs) != 2 {
		t.Errorf("logs = %d, want 2", len(export.Logs))
	}
	if len(export.History) != 2 || export.History[0].Score != 60 {
		t.Errorf("history = %v, want newest first", export.History)
	}
	if len(export.Flags) != 1 {
		t.Errorf("flags = %d, want 1", len(export.Flags))
	}
	if export.Correlation == nil {
		t.Error("correlation missing from domain export")
	}
}

func TestExportHonorsLogLimit(t *testing.T) {
	_, stores := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		addLog(t, stores, "evil.example", "203.0.113.1", "", "", base.Add(time.Duration(i)*time.Minute))
	}

	capped := NewService(stores, Limits{PivotLogs: 3000, RelatedLogs: 5000, Flags: 500, ExportLogs: 2}, zerolog.Nop())
	export, err := capped.ExportDomain(ctx, "evil.example")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(export.Logs) != 2 {
		t.Errorf("logs = %d, want 2 (export log limit)", len(export.Logs))
	}

	export, err = capped.ExportIP(ctx, "203.0.113.1")
	if err != nil {
		t.Fatalf("export ip: %v", err)
	}
	if len(export.Logs) != 2 {
		t.Errorf("ip logs = %d, want 2 (export log limit)", len(export.Logs))
	}
}

func TestSerializeJSON(t *testing.T) {
	export := Export{
		Scope: map[string]string{"domain": "evil.example"},
		Logs: []models.RequestLog{
			{Endpoint: "/api/v1/domains/check", Method: "POST", Domain: "evil.example", IPAddress: "203.0.113.1"},
		},
	}

	contentType, body, err := Serialize(export, "json")
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %s", contentType)
	}
	if !strings.Contains(string(body), "\n  ") {
		t.Error("json body not indented")
	}
	var decoded Export
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	if decoded.Scope["domain"] != "evil.example" || len(decoded.Logs) != 1 {
		t.Errorf("round trip = %+v", decoded)
	}
}

func TestSerializeCSVFlattensSections(t *testing.T) {
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	export := Export{
		Scope: map[string]string{"domain": "evil.example"},
		Logs: []models.RequestLog{
			{Endpoint: "/api/v1/domains/check", Method: "POST", Domain: "evil.example", IPAddress: "203.0.113.1", StatusCode: 200, CreatedAt: at},
		},
		History: []models.HistoryEntry{
			{Domain: "evil.example", Score: 60, RiskLevel: "MEDIUM", CreatedAt: at},
		},
	}

	contentType, body, err := Serialize(export, "csv")
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if contentType != "text/csv" {
		t.Errorf("content type = %s", contentType)
	}

	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows:\n%s", len(lines), body)
	}
	if !strings.HasPrefix(lines[0], "section,") {
		t.Errorf("header = %q, want section column first", lines[0])
	}
	joined := string(body)
	if !strings.Contains(joined, "history") || !strings.Contains(joined, "logs") {
		t.Error("section tags missing from csv rows")
	}
	if !strings.Contains(joined, "evil.example") {
		t.Error("row values missing from csv")
	}
}

func TestSerializeCSVEscapesSpecialCharacters(t *testing.T) {
	export := Export{
		Logs: []models.RequestLog{
			{Endpoint: "/check", Method: "POST", IPAddress: "203.0.113.1", UserAgent: `curl "quoted", v8`},
		},
	}

	_, body, err := Serialize(export, "csv")
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(string(body), `"curl ""quoted"", v8"`) {
		t.Errorf("quoting missing:\n%s", body)
	}
}

func TestSerializeCSVEmptyExport(t *testing.T) {
	_, body, err := Serialize(Export{Scope: map[string]string{"domain": "x"}}, "csv")
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if len(body) != 0 {
		t.Errorf("body = %q, want empty for export with no rows", body)
	}
}
