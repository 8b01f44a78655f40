package domain

// PatternType selects which part of a message a Pattern's regex is
// tested against.
type PatternType string

// PatternType values.
const (
	PatternTypeSubject PatternType = "subject"
	PatternTypeSender  PatternType = "sender"
	PatternTypeBody    PatternType = "body"
)

// Pattern is a single classification rule loaded from the store and
// compiled into the pattern matcher's cache (§4.2).
type Pattern struct {
	ID                 string
	PatternType        PatternType
	Regex              string
	Flags              string
	DocumentType       DocumentType
	Priority           int
	ConfidenceBase     int
	RequiresAttachment bool
	MinThreadPosition  *int
	MaxThreadPosition  *int
}

// DeadlineType selects how an ActionRule's deadline is computed.
type DeadlineType string

// DeadlineType values.
const (
	DeadlineFixedDays     DeadlineType = "fixed_days"
	DeadlineCutoffRelative DeadlineType = "cutoff_relative"
	DeadlineUrgent        DeadlineType = "urgent"
)

// ActionRule is keyed by (DocumentType, FromParty, IsReply) with
// wildcard fallback through FromParty="*" then FromParty="unknown"
// (§3, §4.2 Rule Cache).
type ActionRule struct {
	DocumentType DocumentType
	FromParty    FromParty
	IsReply      bool

	HasAction            bool
	Verb                 string
	DescriptionTemplate  string
	Owner                ActionOwner
	PriorityBase         ActionPriority
	PriorityBoostKeywords []string

	DeadlineType DeadlineType
	DeadlineDays *int
	CutoffField  *string

	FlipToActionKeywords   []string
	FlipToNoActionKeywords []string
	AutoResolveOn          []string
}

// FlowCompatibility is the closed compatibility verdict between a
// shipment stage and an incoming document type.
type FlowCompatibility string

// FlowCompatibility values.
const (
	FlowExpected   FlowCompatibility = "expected"
	FlowUnexpected FlowCompatibility = "unexpected"
	FlowImpossible FlowCompatibility = "impossible"
)

// FlowRule maps (stage, documentType) to a compatibility verdict used
// by the shipment linker's flow validation step (§4.5).
type FlowRule struct {
	Stage        Stage
	DocumentType DocumentType
	Compatibility FlowCompatibility
}

// EnumMapping is a single case-insensitive alias entry loaded into the
// enum normalizer's cache (§4.1 Enum normalization).
type EnumMapping struct {
	Field    string
	Alias    string
	Canonical string
}

// ActionCompletionKeyword is a single (confirmation document type →
// keyword) row used to auto-resolve matching open actions (§4.5
// Auto-resolution).
type ActionCompletionKeyword struct {
	DocumentType DocumentType
	Keyword      string
}
