// Package store holds the normalized records of one reconciliation run,
// indexed by (source, transaction_id). A store is owned by a single run
// and never shared.
package store

import (
	"fmt"

	"payment-recon/internal/domain"
)

type sourceIndex struct {
	name       string
	kind       domain.RecordKind
	records    []domain.NormalizedRecord
	byID       map[string]int
	duplicates map[string][]domain.NormalizedRecord
}

// Store indexes records per source and maintains a cross-channel index so
// all channel records for one business key resolve in O(1).
type Store struct {
	order    []string
	channels []string
	sources  map[string]*sourceIndex

	// channelRefs maps transaction_id -> channel records across all
	// channels, in channel declaration order.
	channelRefs map[string][]*domain.NormalizedRecord
}

func New() *Store {
	return &Store{
		sources:     make(map[string]*sourceIndex),
		channelRefs: make(map[string][]*domain.NormalizedRecord),
	}
}

// AddSource registers a source's records. Sources must be added in
// declaration order; that order drives matcher tie-breaking. Records with
// a transaction_id already present in the same source land in a duplicate
// bucket, are excluded from primary matching, and are reported back as
// diagnostics.
// A name may be registered only once per run; a second registration is
// rejected so the first source's index stays intact.
func (s *Store) AddSource(name string, kind domain.RecordKind, records []domain.NormalizedRecord) []domain.Diagnostic {
	if _, taken := s.sources[name]; taken {
		return []domain.Diagnostic{{
			Code:   domain.DiagDuplicateSource,
			Source: name,
			Detail: fmt.Sprintf("source %q already registered; %d records ignored", name, len(records)),
		}}
	}

	idx := &sourceIndex{
		name:       name,
		kind:       kind,
		records:    make([]domain.NormalizedRecord, 0, len(records)),
		byID:       make(map[string]int, len(records)),
		duplicates: make(map[string][]domain.NormalizedRecord),
	}

	var diags []domain.Diagnostic
	for _, record := range records {
		if _, exists := idx.byID[record.TransactionID]; exists {
			idx.duplicates[record.TransactionID] = append(idx.duplicates[record.TransactionID], record)
			diags = append(diags, domain.Diagnostic{
				Code:   domain.DiagDuplicateKey,
				Source: name,
				Detail: fmt.Sprintf("duplicate transaction_id %q", record.TransactionID),
			})
			continue
		}
		idx.byID[record.TransactionID] = len(idx.records)
		idx.records = append(idx.records, record)
	}

	s.order = append(s.order, name)
	s.sources[name] = idx

	if kind == domain.Channel {
		s.channels = append(s.channels, name)
		for i := range idx.records {
			record := &idx.records[i]
			s.channelRefs[record.TransactionID] = append(s.channelRefs[record.TransactionID], record)
		}
	}

	return diags
}

// Records returns a source's primary records in insertion order. The
// returned slice is owned by the store; callers must not mutate it.
func (s *Store) Records(source string) []domain.NormalizedRecord {
	idx, ok := s.sources[source]
	if !ok {
		return nil
	}
	return idx.records
}

// ChannelRecords returns every channel record carrying the given
// transaction_id, across all channels in declaration order.
func (s *Store) ChannelRecords(transactionID string) []*domain.NormalizedRecord {
	return s.channelRefs[transactionID]
}

// Channels returns channel source names in declaration order.
func (s *Store) Channels() []string {
	return s.channels
}

// DuplicateCount reports how many records were shunted into the duplicate
// bucket for a source.
func (s *Store) DuplicateCount(source string) int {
	idx, ok := s.sources[source]
	if !ok {
		return 0
	}
	n := 0
	for _, dups := range idx.duplicates {
		n += len(dups)
	}
	return n
}

// Duplicates returns the duplicate bucket for one transaction_id within a
// source.
func (s *Store) Duplicates(source, transactionID string) []domain.NormalizedRecord {
	idx, ok := s.sources[source]
	if !ok {
		return nil
	}
	return idx.duplicates[transactionID]
}
