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

	"github.com/tomtom215/trustlens/internal/models"
)

const maxCorrelatedEntities = 200

// CorrelateDomain derives which addresses and keys queried a domain and
// which other domains share that infrastructure.
func (s *Service) CorrelateDomain(ctx context.Context, domain string) (DomainCorrelation, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	pivot, err := s.stores.Logs.ListByDomain(ctx, domain, s.limits.RelatedLogs)
	if err != nil {
		return DomainCorrelation{}, fmt.Errorf("correlate domain %s: %w", domain, err)
	}
	recent, err := s.stores.Logs.ListRecent(ctx, s.limits.RelatedLogs)
	if err != nil {
		return DomainCorrelation{}, fmt.Errorf("correlate domain %s: %w", domain, err)
	}

	correlation := DeriveDomainCorrelation(domain, append(pivot, recent...))
	correlation.Flags, err = s.correlationFlags(ctx, correlation.RelatedIPs, correlation.RelatedKeys, []string{domain})
	if err != nil {
		return DomainCorrelation{}, err
	}
	return correlation, nil
}

// CorrelateIP derives the domains, keys and users seen from an address
// and the other addresses sharing those.
func (s *Service) CorrelateIP(ctx context.Context, ip string) (IPCorrelation, error) {
	pivot, err := s.stores.Logs.ListByIP(ctx, ip, s.limits.RelatedLogs)
	if err != nil {
		return IPCorrelation{}, fmt.Errorf("correlate ip %s: %w", ip, err)
	}
	recent, err := s.stores.Logs.ListRecent(ctx, s.limits.RelatedLogs)
	if err != nil {
		return IPCorrelation{}, fmt.Errorf("correlate ip %s: %w", ip, err)
	}

	correlation := DeriveIPCorrelation(ip, append(pivot, recent...))
	correlation.Flags, err = s.correlationFlags(ctx, []string{ip}, correlation.RelatedKeys, nil)
	if err != nil {
		return IPCorrelation{}, err
	}
	return correlation, nil
}

// DeriveDomainCorrelation is the pure core of CorrelateDomain: given any
// set of logs it finds the addresses and keys that queried the domain
// and the other domains those touched.
func DeriveDomainCorrelation(domain string, logs []models.RequestLog) DomainCorrelation {
	domain = strings.ToLower(domain)

	var pivot []models.RequestLog
	for _, log := range logs {
		if strings.ToLower(log.Domain) == domain {
			pivot = append(pivot, log)
		}
	}
	relatedIPs := uniqueIPs(pivot)
	relatedKeys := uniqueKeys(pivot)

	ipSet := toSet(relatedIPs)
	keySet := toSet(relatedKeys)
	seen := make(map[string]bool)
	var relatedDomains []string
	for _, log := range logs {
		if !ipSet[log.IPAddress] && !(log.APIKeyID != "" && keySet[log.APIKeyID]) {
			continue
		}
		other := strings.ToLower(log.Domain)
		if other == "" || other == domain || seen[other] {
			continue
		}
		seen[other] = true
		relatedDomains = append(relatedDomains, log.Domain)
	}
	if len(relatedDomains) > maxCorrelatedEntities {
		relatedDomains = relatedDomains[:maxCorrelatedEntities]
	}

	return DomainCorrelation{
		Domain:         domain,
		RelatedDomains: relatedDomains,
		RelatedIPs:     relatedIPs,
		RelatedKeys:    relatedKeys,
	}
}

// DeriveIPCorrelation is the pure core of CorrelateIP.
func DeriveIPCorrelation(ip string, logs []models.RequestLog) IPCorrelation {
	var pivot []models.RequestLog
	for _, log := range logs {
		if log.IPAddress == ip {
			pivot = append(pivot, log)
		}
	}
	relatedDomains := uniqueDomains(pivot)
	relatedKeys := uniqueKeys(pivot)
	relatedUsers := uniqueUsers(pivot)

	domainSet := toSet(relatedDomains)
	keySet := toSet(relatedKeys)
	seen := make(map[string]bool)
	var relatedIPs []string
	for _, log := range logs {
		if !(log.APIKeyID != "" && keySet[log.APIKeyID]) && !(log.Domain != "" && domainSet[log.Domain]) {
			continue
		}
		if log.IPAddress == ip || seen[log.IPAddress] {
			continue
		}
		seen[log.IPAddress] = true
		relatedIPs = append(relatedIPs, log.IPAddress)
	}
	if len(relatedIPs) > maxCorrelatedEntities {
		relatedIPs = relatedIPs[:maxCorrelatedEntities]
	}
	if len(relatedDomains) > maxCorrelatedEntities {
		relatedDomains = relatedDomains[:maxCorrelatedEntities]
	}

	return IPCorrelation{
		IP:             ip,
		RelatedDomains: relatedDomains,
		RelatedIPs:     relatedIPs,
		RelatedKeys:    relatedKeys,
		RelatedUsers:   relatedUsers,
	}
}

// correlationFlags collects the abbreviated flags for the correlated
// entities, newest first, capped at maxCorrelatedEntities.
func (s *Service) correlationFlags(ctx context.Context, ips, keys, domains []string) ([]FlagSummary, error) {
	flags, err := s.collectFlags(ctx, ips, keys, domains)
	if err != nil {
		return nil, err
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].CreatedAt.After(flags[j].CreatedAt) })
	if len(flags) > maxCorrelatedEntities {
		flags = flags[:maxCorrelatedEntities]
	}
	summaries := make([]FlagSummary, 0, len(flags))
	for _, flag := range flags {
		summaries = append(summaries, FlagSummary{
			ID:        flag.ID.String(),
			Kind:      flag.Kind,
			Severity:  flag.Severity,
			CreatedAt: flag.CreatedAt,
		})
	}
	return summaries, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, value := range values {
		set[value] = true
	}
	return set
}
