// Package rules implements the TTL-cached ActionRule/FlowRule/EnumMapping
// lookup tables (§4.2 "Rule Cache", §9 "Rule tables as immutable
// snapshots"). Each snapshot is an immutable map; on TTL expiry the next
// snapshot is loaded under the exclusive lock and swapped in, so lookups
// wait while a rebuild is in progress and always observe one consistent
// view.
package rules

import (
	"context"
	"sync"
	"time"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/core/normalize"
)

const defaultTTL = 5 * time.Minute

// Source loads the current rule rows from the store.
type Source interface {
	ListActionRules(ctx context.Context) ([]domain.ActionRule, error)
	ListFlowRules(ctx context.Context) ([]domain.FlowRule, error)
	ListEnumMappings(ctx context.Context) ([]domain.EnumMapping, error)
	ListActionCompletionKeywords(ctx context.Context) ([]domain.ActionCompletionKeyword, error)
}

type actionRuleKey struct {
	documentType domain.DocumentType
	fromParty    domain.FromParty
	isReply      bool
}

type flowRuleKey struct {
	stage        domain.Stage
	documentType domain.DocumentType
}

type snapshot struct {
	actionRules map[actionRuleKey]domain.ActionRule
	flowRules   map[flowRuleKey]domain.FlowRule
	enumMappings *normalize.EnumMappings
	completionKeywords map[domain.DocumentType][]string
	loadedAt time.Time
}

// Cache holds the current immutable rule snapshot, atomically swapped
// on TTL expiry or explicit Invalidate.
type Cache struct {
	source Source
	ttl    time.Duration

	mu      sync.RWMutex
	current *snapshot
}

// New builds a Cache over the given rule source.
func New(source Source) *Cache {
	return &Cache{source: source, ttl: defaultTTL}
}

// Invalidate forces the next lookup to rebuild the snapshot.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
}

// EnumMappings returns the current snapshot's enum-alias lookup table,
// used by the normalization layer (§4.1).
func (c *Cache) EnumMappings(ctx context.Context) (*normalize.EnumMappings, error) {
	snap, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}

	return snap.enumMappings, nil
}

// LookupActionRule resolves an ActionRule by (documentType, fromParty,
// isReply), falling back through (dt,*,false) then (dt,unknown,false)
// when no exact match exists (§3 "Lookup falls back").
func (c *Cache) LookupActionRule(ctx context.Context, documentType domain.DocumentType, fromParty domain.FromParty, isReply bool) (domain.ActionRule, bool, error) {
	snap, err := c.ensure(ctx)
	if err != nil {
		return domain.ActionRule{}, false, err
	}

	if rule, ok := snap.actionRules[actionRuleKey{documentType, fromParty, isReply}]; ok {
		return rule, true, nil
	}

	if rule, ok := snap.actionRules[actionRuleKey{documentType, "*", false}]; ok {
		return rule, true, nil
	}

	if rule, ok := snap.actionRules[actionRuleKey{documentType, domain.PartyUnknown, false}]; ok {
		return rule, true, nil
	}

	return domain.ActionRule{}, false, nil
}

// LookupFlowRule resolves the compatibility verdict for (stage,
// documentType); absent rows are treated as expected (§4.5 "otherwise
// clean").
func (c *Cache) LookupFlowRule(ctx context.Context, stage domain.Stage, documentType domain.DocumentType) (domain.FlowCompatibility, error) {
	snap, err := c.ensure(ctx)
	if err != nil {
		return domain.FlowExpected, err
	}

	if rule, ok := snap.flowRules[flowRuleKey{stage, documentType}]; ok {
		return rule.Compatibility, nil
	}

	return domain.FlowExpected, nil
}

// CompletionKeywords returns the keyword list that auto-resolves open
// actions when a chronicle of this confirmation document type arrives
// (§4.5 "Auto-resolution").
func (c *Cache) CompletionKeywords(ctx context.Context, documentType domain.DocumentType) ([]string, error) {
	snap, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}

	return snap.completionKeywords[documentType], nil
}

func (c *Cache) ensure(ctx context.Context) (*snapshot, error) {
	c.mu.RLock()
	snap := c.current
	c.mu.RUnlock()

	if snap != nil && time.Since(snap.loadedAt) < c.ttl {
		return snap, nil
	}

	return c.rebuild(ctx)
}

func (c *Cache) rebuild(ctx context.Context) (*snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && time.Since(c.current.loadedAt) < c.ttl {
		return c.current, nil
	}

	actionRuleRows, err := c.source.ListActionRules(ctx)
	if err != nil {
		return nil, err
	}

	flowRuleRows, err := c.source.ListFlowRules(ctx)
	if err != nil {
		return nil, err
	}

	enumRows, err := c.source.ListEnumMappings(ctx)
	if err != nil {
		return nil, err
	}

	keywordRows, err := c.source.ListActionCompletionKeywords(ctx)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		actionRules:        make(map[actionRuleKey]domain.ActionRule, len(actionRuleRows)),
		flowRules:          make(map[flowRuleKey]domain.FlowRule, len(flowRuleRows)),
		enumMappings:       normalize.NewEnumMappings(enumRows),
		completionKeywords: make(map[domain.DocumentType][]string),
		loadedAt:           time.Now(),
	}

	for _, rule := range actionRuleRows {
		snap.actionRules[actionRuleKey{rule.DocumentType, rule.FromParty, rule.IsReply}] = rule
	}

	for _, rule := range flowRuleRows {
		snap.flowRules[flowRuleKey{rule.Stage, rule.DocumentType}] = rule
	}

	for _, row := range keywordRows {
		snap.completionKeywords[row.DocumentType] = append(snap.completionKeywords[row.DocumentType], row.Keyword)
	}

	c.current = snap

	return snap, nil
}
