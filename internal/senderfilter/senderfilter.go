// Package senderfilter decides which senders are never sent to a
// classifier, for example a partner's address or an internal mailing list.
package senderfilter

import (
	"strings"

	"go.uber.org/zap"
)

// Filter matches senders against an ignore list of domains and full
// addresses. Entries containing '@' match the whole address; everything
// else matches the domain part. Matching is case-insensitive.
type Filter struct {
	domains   map[string]struct{}
	addresses map[string]struct{}
	logger    *zap.Logger
}

// New creates a filter from the configured ignore entries.
func New(entries []string, logger *zap.Logger) *Filter {
	f := &Filter{
		domains:   make(map[string]struct{}),
		addresses: make(map[string]struct{}),
		logger:    logger,
	}
	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "@") {
			f.addresses[entry] = struct{}{}
		} else {
			f.domains[entry] = struct{}{}
		}
	}
	if len(entries) > 0 && logger != nil {
		logger.Info("Loaded sender ignore list",
			zap.Int("domains", len(f.domains)),
			zap.Int("addresses", len(f.addresses)))
	}
	return f
}

// Matches reports whether the sender is on the ignore list. The sender may
// be a bare address or an RFC 5322 display form like `Name <a@b.com>`.
func (f *Filter) Matches(from string) bool {
	if len(f.domains) == 0 && len(f.addresses) == 0 {
		return false
	}

	addr := extractAddress(from)
	if addr == "" {
		return false
	}
	if _, ok := f.addresses[addr]; ok {
		return true
	}

	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return false
	}
	_, ok := f.domains[addr[at+1:]]
	return ok
}

func extractAddress(from string) string {
	from = strings.TrimSpace(from)
	if start := strings.LastIndex(from, "<"); start >= 0 {
		if end := strings.LastIndex(from, ">"); end > start {
			from = from[start+1 : end]
		}
	}
	return strings.ToLower(strings.TrimSpace(from))
}
