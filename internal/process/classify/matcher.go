// Package classify implements the deterministic first-pass classifier
// (§4.2 Pattern Matcher): a TTL-cached, compiled-regex rule set matched
// against a message's subject, sender, or body, with no machine
// learning involved.
package classify

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// defaultTTL is the cache refresh interval (§4.2 step 1, "TTL, default
// 5 min").
const defaultTTL = 5 * time.Minute

// bodySampleBytes bounds how much of a message body is tested against
// body-type patterns (§4.2 step 2, "first ~5 kB of body").
const bodySampleBytes = 5 * 1024

const globalConfidenceThreshold = 85

const confidenceCap = 100
const attachmentBonus = 5

// PatternSource loads the current Pattern rows from the store. Reload
// invalidates the in-memory snapshot and fetches this source again.
type PatternSource interface {
	ListPatterns(ctx context.Context) ([]domain.Pattern, error)
}

// Input is the classifier's per-message input (§4.2 "match(input)").
type Input struct {
	Subject        string
	SenderAddress  string
	BodyText       string
	HasAttachment  bool
	ThreadPosition int
}

// Result is the classifier's verdict for one message.
type Result struct {
	Matched          bool
	DocumentType     domain.DocumentType
	Confidence       int
	PatternID        string
	MatchSource      domain.PatternType
	RequiresFallback bool
}

type compiledPattern struct {
	pattern domain.Pattern
	regex   *regexp.Regexp
}

type snapshot struct {
	patterns  []compiledPattern
	loadedAt  time.Time
}

// Matcher holds an immutable snapshot of compiled patterns (§9 "Rule
// tables as immutable snapshots"). Readers load the snapshot pointer
// under a shared lock; a rebuild holds the exclusive lock while it
// reloads the patterns, so readers wait until it finishes.
type Matcher struct {
	source PatternSource
	logger *zerolog.Logger
	ttl    time.Duration

	mu       sync.RWMutex
	current  *snapshot

	hitCounter HitCounter
}

// HitCounter records match/false-positive counts asynchronously;
// failures are logged but never block the matcher (§4.2).
type HitCounter interface {
	RecordHit(ctx context.Context, patternID string)
	RecordFalsePositive(ctx context.Context, patternID string)
}

// NopHitCounter discards hit/false-positive events.
type NopHitCounter struct{}

// RecordHit is a no-op.
func (NopHitCounter) RecordHit(context.Context, string) {}

// RecordFalsePositive is a no-op.
func (NopHitCounter) RecordFalsePositive(context.Context, string) {}

// New builds a Matcher over the given pattern source. The first
// snapshot is loaded lazily on first Match call.
func New(source PatternSource, logger *zerolog.Logger, hitCounter HitCounter) *Matcher {
	if hitCounter == nil {
		hitCounter = NopHitCounter{}
	}

	return &Matcher{source: source, logger: logger, ttl: defaultTTL, hitCounter: hitCounter}
}

// Reload forces the next Match call to rebuild the snapshot regardless
// of TTL (§4.2 "reload() invalidates the cache").
func (m *Matcher) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = nil
}

// Match runs the deterministic classification algorithm against input
// (§4.2 "Algorithm").
func (m *Matcher) Match(ctx context.Context, input Input) (Result, error) {
	snap, err := m.ensureSnapshot(ctx)
	if err != nil {
		return Result{}, err
	}

	candidates := m.buildCandidates(snap, input)
	if len(candidates) == 0 {
		return Result{Matched: false, RequiresFallback: true}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].pattern.Priority != candidates[j].pattern.Priority {
			return candidates[i].pattern.Priority > candidates[j].pattern.Priority
		}

		return candidates[i].confidence > candidates[j].confidence
	})

	head := candidates[0]
	m.hitCounter.RecordHit(ctx, head.pattern.ID)

	return Result{
		Matched:          true,
		DocumentType:     head.pattern.DocumentType,
		Confidence:       head.confidence,
		PatternID:        head.pattern.ID,
		MatchSource:      head.pattern.PatternType,
		RequiresFallback: head.confidence < globalConfidenceThreshold,
	}, nil
}

type candidate struct {
	pattern    domain.Pattern
	confidence int
}

func (m *Matcher) buildCandidates(snap *snapshot, input Input) []candidate {
	candidates := make([]candidate, 0, len(snap.patterns))

	for _, cp := range snap.patterns {
		if cp.pattern.RequiresAttachment && !input.HasAttachment {
			continue
		}

		if !withinThreadWindow(cp.pattern, input.ThreadPosition) {
			continue
		}

		text := selectText(cp.pattern.PatternType, input)
		if !cp.regex.MatchString(text) {
			continue
		}

		candidates = append(candidates, candidate{
			pattern:    cp.pattern,
			confidence: confidenceFor(cp.pattern, input),
		})
	}

	return candidates
}

func withinThreadWindow(p domain.Pattern, threadPosition int) bool {
	if p.MinThreadPosition != nil && threadPosition < *p.MinThreadPosition {
		return false
	}

	if p.MaxThreadPosition != nil && threadPosition > *p.MaxThreadPosition {
		return false
	}

	return true
}

func selectText(patternType domain.PatternType, input Input) string {
	switch patternType {
	case domain.PatternTypeSubject:
		return input.Subject
	case domain.PatternTypeSender:
		return input.SenderAddress
	case domain.PatternTypeBody:
		body := input.BodyText
		if len(body) > bodySampleBytes {
			body = body[:bodySampleBytes]
		}

		return body
	default:
		return ""
	}
}

// confidenceFor computes step 3 of the algorithm: confidenceBase,
// multiplied by a subject-decay factor for subject-type patterns, plus
// an attachment bonus when satisfied, capped at 100.
func confidenceFor(p domain.Pattern, input Input) int {
	confidence := float64(p.ConfidenceBase)

	if p.PatternType == domain.PatternTypeSubject {
		decay := 1 - 0.1*float64(input.ThreadPosition-1)
		if decay < 0.5 {
			decay = 0.5
		}

		confidence *= decay
	}

	if p.RequiresAttachment && input.HasAttachment {
		confidence += attachmentBonus
	}

	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	return int(confidence)
}

func (m *Matcher) ensureSnapshot(ctx context.Context) (*snapshot, error) {
	m.mu.RLock()
	snap := m.current
	m.mu.RUnlock()

	if snap != nil && time.Since(snap.loadedAt) < m.ttl {
		return snap, nil
	}

	return m.rebuild(ctx)
}

func (m *Matcher) rebuild(ctx context.Context) (*snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have rebuilt while we waited for the lock.
	if m.current != nil && time.Since(m.current.loadedAt) < m.ttl {
		return m.current, nil
	}

	rows, err := m.source.ListPatterns(ctx)
	if err != nil {
		return nil, err
	}

	compiled := make([]compiledPattern, 0, len(rows))

	for _, p := range rows {
		expr := p.Regex
		if strings.Contains(p.Flags, "i") {
			expr = "(?i)" + expr
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn().Err(err).Str("pattern_id", p.ID).Msg("discarding pattern with invalid regex")
			}

			continue
		}

		compiled = append(compiled, compiledPattern{pattern: p, regex: re})
	}

	snap := &snapshot{patterns: compiled, loadedAt: time.Now()}
	m.current = snap

	return snap, nil
}
