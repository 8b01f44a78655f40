package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

type staticSource struct {
	actionRules []domain.ActionRule
	flowRules   []domain.FlowRule
	enumRows    []domain.EnumMapping
	keywords    []domain.ActionCompletionKeyword
}

func (s staticSource) ListActionRules(context.Context) ([]domain.ActionRule, error) { return s.actionRules, nil }
func (s staticSource) ListFlowRules(context.Context) ([]domain.FlowRule, error)       { return s.flowRules, nil }
func (s staticSource) ListEnumMappings(context.Context) ([]domain.EnumMapping, error) { return s.enumRows, nil }
func (s staticSource) ListActionCompletionKeywords(context.Context) ([]domain.ActionCompletionKeyword, error) {
	return s.keywords, nil
}

func TestLookupActionRule_ExactMatch(t *testing.T) {
	src := staticSource{actionRules: []domain.ActionRule{
		{DocumentType: domain.DocVGMConfirmation, FromParty: domain.PartyOceanCarrier, IsReply: false, HasAction: false},
	}}
	c := New(src)

	rule, ok, err := c.LookupActionRule(context.Background(), domain.DocVGMConfirmation, domain.PartyOceanCarrier, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, rule.HasAction)
}

func TestLookupActionRule_WildcardFallback(t *testing.T) {
	src := staticSource{actionRules: []domain.ActionRule{
		{DocumentType: domain.DocBookingRequest, FromParty: "*", IsReply: false, HasAction: true, Verb: "confirm booking"},
	}}
	c := New(src)

	rule, ok, err := c.LookupActionRule(context.Background(), domain.DocBookingRequest, domain.PartyShipper, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "confirm booking", rule.Verb)
}

func TestLookupActionRule_UnknownPartyFallback(t *testing.T) {
	src := staticSource{actionRules: []domain.ActionRule{
		{DocumentType: domain.DocBookingRequest, FromParty: domain.PartyUnknown, IsReply: false, HasAction: true},
	}}
	c := New(src)

	rule, ok, err := c.LookupActionRule(context.Background(), domain.DocBookingRequest, domain.PartyTrucker, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, rule.HasAction)
}

func TestLookupFlowRule_DefaultsToExpected(t *testing.T) {
	c := New(staticSource{})

	verdict, err := c.LookupFlowRule(context.Background(), domain.StageBooked, domain.DocArrivalNotice)
	require.NoError(t, err)
	assert.Equal(t, domain.FlowExpected, verdict)
}

func TestLookupFlowRule_ImpossibleFlagged(t *testing.T) {
	src := staticSource{flowRules: []domain.FlowRule{
		{Stage: domain.StagePending, DocumentType: domain.DocDeliveryOrder, Compatibility: domain.FlowImpossible},
	}}
	c := New(src)

	verdict, err := c.LookupFlowRule(context.Background(), domain.StagePending, domain.DocDeliveryOrder)
	require.NoError(t, err)
	assert.Equal(t, domain.FlowImpossible, verdict)
}

func TestCompletionKeywords(t *testing.T) {
	src := staticSource{keywords: []domain.ActionCompletionKeyword{
		{DocumentType: domain.DocVGMConfirmation, Keyword: "vgm"},
		{DocumentType: domain.DocVGMConfirmation, Keyword: "verified gross mass"},
	}}
	c := New(src)

	keywords, err := c.CompletionKeywords(context.Background(), domain.DocVGMConfirmation)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vgm", "verified gross mass"}, keywords)
}
