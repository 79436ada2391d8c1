// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package graph

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trustlens/internal/metrics"
	"github.com/tomtom215/trustlens/internal/models"
)

const (
	exportHistoryLimit = 5000
	exportFlagLimit    = 2000
)

// Export is one entity intel bundle: every log, history entry and abuse
// flag for the entity, plus the derived correlation.
type Export struct {
	Scope       map[string]string     `json:"scope"`
	Logs        []models.RequestLog   `json:"logs"`
	History     []models.HistoryEntry `json:"history,omitempty"`
	Flags       []models.AbuseFlag    `json:"flags"`
	Correlation any                   `json:"correlation,omitempty"`
}

// ExportDomain bundles everything known about a domain.
func (s *Service) ExportDomain(ctx context.Context, domain string) (Export, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	logs, err := s.stores.Logs.ListByDomain(ctx, domain, s.limits.ExportLogs)
	if err != nil {
		return Export{}, fmt.Errorf("export domain %s: %w", domain, err)
	}
	history, err := s.stores.History.ListByDomain(ctx, domain, time.Time{})
	if err != nil {
		return Export{}, fmt.Errorf("export domain %s: %w", domain, err)
	}
	// History scans ascending; exports serve newest first.
	reverseHistory(history)
	if len(history) > exportHistoryLimit {
		history = history[:exportHistoryLimit]
	}

	flags, err := s.collectFlags(ctx, uniqueIPs(logs), nil, []string{domain})
	if err != nil {
		return Export{}, err
	}
	if len(flags) > exportFlagLimit {
		flags = flags[:exportFlagLimit]
	}

	correlation, err := s.CorrelateDomain(ctx, domain)
	if err != nil {
		return Export{}, err
	}

	return Export{
		Scope:       map[string]string{"domain": domain},
		Logs:        logs,
		History:     history,
		Flags:       flags,
		Correlation: correlation,
	}, nil
}

// ExportIP bundles everything known about a client address.
func (s *Service) ExportIP(ctx context.Context, ip string) (Export, error) {
	logs, err := s.stores.Logs.ListByIP(ctx, ip, s.limits.ExportLogs)
	if err != nil {
		return Export{}, fmt.Errorf("export ip %s: %w", ip, err)
	}
	flags, err := s.stores.Flags.ListByIP(ctx, ip, exportFlagLimit)
	if err != nil {
		return Export{}, fmt.Errorf("export ip %s: %w", ip, err)
	}
	correlation, err := s.CorrelateIP(ctx, ip)
	if err != nil {
		return Export{}, err
	}
	return Export{
		Scope:       map[string]string{"ip": ip},
		Logs:        logs,
		Flags:       flags,
		Correlation: correlation,
	}, nil
}

// ExportKey bundles everything known about an API key.
func (s *Service) ExportKey(ctx context.Context, keyID string) (Export, error) {
	logs, err := s.stores.Logs.ListByAPIKey(ctx, keyID, s.limits.ExportLogs)
	if err != nil {
		return Export{}, fmt.Errorf("export key: %w", err)
	}
	flags, err := s.stores.Flags.ListByAPIKey(ctx, keyID, exportFlagLimit)
	if err != nil {
		return Export{}, fmt.Errorf("export key: %w", err)
	}
	return Export{
		Scope: map[string]string{"key_id": keyID},
		Logs:  logs,
		Flags: flags,
	}, nil
}

// Serialize renders an export as indented JSON or as CSV. The CSV form
// flattens each array-valued section into rows tagged with the section
// name; the header is the union of all row keys.
func Serialize(export Export, format string) (contentType string, body []byte, err error) {
	switch format {
	case "csv":
		body, err = toCSV(export)
		if err != nil {
			return "", nil, err
		}
		return "text/csv", body, nil
	default:
		body, err = json.MarshalIndent(export, "", "  ")
		if err != nil {
			return "", nil, fmt.Errorf("serialize export: %w", err)
		}
		metrics.ExportRows.WithLabelValues("json").Add(float64(len(export.Logs) + len(export.History) + len(export.Flags)))
		return "application/json", body, nil
	}
}

func toCSV(export Export) ([]byte, error) {
	raw, err := json.Marshal(export)
	if err != nil {
		return nil, fmt.Errorf("serialize export: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("serialize export: %w", err)
	}

	sections := make([]string, 0, len(payload))
	for section := range payload {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	var rows []map[string]any
	headerSet := map[string]bool{"section": true}
	for _, section := range sections {
		items, ok := payload[section].([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			fields, ok := item.(map[string]any)
			if !ok {
				continue
			}
			row := map[string]any{"section": section}
			for key, value := range fields {
				row[key] = value
				headerSet[key] = true
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := make([]string, 0, len(headerSet))
	for header := range headerSet {
		if header != "section" {
			headers = append(headers, header)
		}
	}
	sort.Strings(headers)
	headers = append([]string{"section"}, headers...)

	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("serialize export: %w", err)
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, header := range headers {
			record[i] = renderCSVValue(row[header])
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("serialize export: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("serialize export: %w", err)
	}

	metrics.ExportRows.WithLabelValues("csv").Add(float64(len(rows)))
	return []byte(buf.String()), nil
}

// renderCSVValue flattens a decoded JSON value to its cell text. Nested
// objects and arrays stay JSON-encoded.
func renderCSVValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

func reverseHistory(entries []models.HistoryEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
