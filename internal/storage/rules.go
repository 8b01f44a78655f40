package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// ListPatterns implements ports.RuleRepository — the store-side source
// loaded into the pattern matcher's cache (§4.2).
func (db *DB) ListPatterns(ctx context.Context) ([]domain.Pattern, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, pattern_type, regex, flags, document_type, priority, confidence_base,
		       requires_attachment, min_thread_position, max_thread_position
		FROM patterns
	`)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	defer rows.Close()

	var patterns []domain.Pattern

	for rows.Next() {
		var (
			p                          domain.Pattern
			patternType, documentType  string
		)

		if err := rows.Scan(&p.ID, &patternType, &p.Regex, &p.Flags, &documentType, &p.Priority,
			&p.ConfidenceBase, &p.RequiresAttachment, &p.MinThreadPosition, &p.MaxThreadPosition); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}

		p.PatternType = domain.PatternType(patternType)
		p.DocumentType = domain.DocumentType(documentType)
		patterns = append(patterns, p)
	}

	return patterns, rows.Err()
}

// ListActionRules implements ports.RuleRepository (§4.2 Rule Cache).
func (db *DB) ListActionRules(ctx context.Context) ([]domain.ActionRule, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT document_type, from_party, is_reply, has_action, verb, description_template,
		       owner, priority_base, priority_boost_keywords, deadline_type, deadline_days,
		       cutoff_field, flip_to_action_keywords, flip_to_no_action_keywords, auto_resolve_on
		FROM action_rules
	`)
	if err != nil {
		return nil, fmt.Errorf("list action rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.ActionRule

	for rows.Next() {
		var (
			r                                              domain.ActionRule
			documentType, fromParty, owner, priorityBase   string
			deadlineType                                   string
			boostJSON, flipToActionJSON, flipToNoActionJSON, autoResolveJSON []byte
		)

		if err := rows.Scan(&documentType, &fromParty, &r.IsReply, &r.HasAction, &r.Verb, &r.DescriptionTemplate,
			&owner, &priorityBase, &boostJSON, &deadlineType, &r.DeadlineDays, &r.CutoffField,
			&flipToActionJSON, &flipToNoActionJSON, &autoResolveJSON); err != nil {
			return nil, fmt.Errorf("scan action rule: %w", err)
		}

		r.DocumentType = domain.DocumentType(documentType)
		r.FromParty = domain.FromParty(fromParty)
		r.Owner = domain.ActionOwner(owner)
		r.PriorityBase = domain.ActionPriority(priorityBase)
		r.DeadlineType = domain.DeadlineType(deadlineType)

		for _, pair := range []struct {
			raw  []byte
			dest *[]string
		}{
			{boostJSON, &r.PriorityBoostKeywords},
			{flipToActionJSON, &r.FlipToActionKeywords},
			{flipToNoActionJSON, &r.FlipToNoActionKeywords},
			{autoResolveJSON, &r.AutoResolveOn},
		} {
			if len(pair.raw) == 0 {
				continue
			}

			if err := json.Unmarshal(pair.raw, pair.dest); err != nil {
				return nil, fmt.Errorf("unmarshal action rule keyword list: %w", err)
			}
		}

		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// ListFlowRules implements ports.RuleRepository (§4.5 flow validation).
func (db *DB) ListFlowRules(ctx context.Context) ([]domain.FlowRule, error) {
	rows, err := db.Pool.Query(ctx, `SELECT stage, document_type, compatibility FROM flow_rules`)
	if err != nil {
		return nil, fmt.Errorf("list flow rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.FlowRule

	for rows.Next() {
		var (
			r                             domain.FlowRule
			stage                         int
			documentType, compatibility   string
		)

		if err := rows.Scan(&stage, &documentType, &compatibility); err != nil {
			return nil, fmt.Errorf("scan flow rule: %w", err)
		}

		r.Stage = domain.Stage(stage)
		r.DocumentType = domain.DocumentType(documentType)
		r.Compatibility = domain.FlowCompatibility(compatibility)
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// ListEnumMappings implements ports.RuleRepository (§4.1 enum normalization).
func (db *DB) ListEnumMappings(ctx context.Context) ([]domain.EnumMapping, error) {
	rows, err := db.Pool.Query(ctx, `SELECT field, alias, canonical FROM enum_mappings`)
	if err != nil {
		return nil, fmt.Errorf("list enum mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.EnumMapping

	for rows.Next() {
		var m domain.EnumMapping
		if err := rows.Scan(&m.Field, &m.Alias, &m.Canonical); err != nil {
			return nil, fmt.Errorf("scan enum mapping: %w", err)
		}

		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// ListActionCompletionKeywords implements ports.RuleRepository (§4.5
// auto-resolution).
func (db *DB) ListActionCompletionKeywords(ctx context.Context) ([]domain.ActionCompletionKeyword, error) {
	rows, err := db.Pool.Query(ctx, `SELECT document_type, keyword FROM action_completion_keywords`)
	if err != nil {
		return nil, fmt.Errorf("list action completion keywords: %w", err)
	}
	defer rows.Close()

	var keywords []domain.ActionCompletionKeyword

	for rows.Next() {
		var (
			k            domain.ActionCompletionKeyword
			documentType string
		)

		if err := rows.Scan(&documentType, &k.Keyword); err != nil {
			return nil, fmt.Errorf("scan action completion keyword: %w", err)
		}

		k.DocumentType = domain.DocumentType(documentType)
		keywords = append(keywords, k)
	}

	return keywords, rows.Err()
}

// RecordPatternHit implements ports.RuleRepository. Counters are
// best-effort telemetry for pattern-quality review, so a write failure
// is logged rather than propagated — the interface itself returns
// nothing to surface an error through.
func (db *DB) RecordPatternHit(ctx context.Context, patternID string) {
	if _, err := db.Pool.Exec(ctx, `UPDATE patterns SET hit_count = hit_count + 1 WHERE id = $1`, patternID); err != nil {
		db.Logger.Warn().Err(err).Str("pattern_id", patternID).Msg("failed to record pattern hit")
	}
}

// RecordPatternFalsePositive implements ports.RuleRepository.
func (db *DB) RecordPatternFalsePositive(ctx context.Context, patternID string) {
	if _, err := db.Pool.Exec(ctx, `UPDATE patterns SET false_positive_count = false_positive_count + 1 WHERE id = $1`, patternID); err != nil {
		db.Logger.Warn().Err(err).Str("pattern_id", patternID).Msg("failed to record pattern false positive")
	}
}
