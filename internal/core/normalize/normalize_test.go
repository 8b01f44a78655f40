package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

func TestContainerNumbers(t *testing.T) {
	in := []string{"MSCU1234567", "bad", "TCLU7654321", "12345"}
	out := ContainerNumbers(in)
	assert.Equal(t, []string{"MSCU1234567", "TCLU7654321"}, out)
}

func TestRepairMBL_PureNumericBecomesBooking(t *testing.T) {
	// S5: LLM returns mbl_number="MAERSK 263216729"; stripping the
	// carrier word leaves a pure-numeric value, so it must be nulled.
	mbl, _ := RepairMBL("MAERSK 263216729", nil)
	assert.Nil(t, mbl)
}

func TestRepairMBL_SEPrefixRelocatesToWorkOrder(t *testing.T) {
	mbl, workOrder := RepairMBL("SEAB1234567", nil)
	require.Nil(t, mbl)
	require.NotNil(t, workOrder)
	assert.Equal(t, "SEAB1234567", *workOrder)
}

func TestRepairMBL_KeepsGenuineMBL(t *testing.T) {
	mbl, _ := RepairMBL("MAERSK MAEU123456789", nil)
	require.NotNil(t, mbl)
	assert.Equal(t, "MAEU123456789", *mbl)
}

func TestRepairDateSwap(t *testing.T) {
	// AI's ISO date has month and day swapped relative to the ground
	// truth embedded in the subject ("3rd NOV'26" means day=3, month=11).
	repaired := RepairDateSwap("2026-03-11", "RE: shipment update 3rd NOV'26")
	assert.Equal(t, "2026-11-03", repaired)
}

func TestRepairDateSwap_NoSubjectMatchReturnsUnchanged(t *testing.T) {
	repaired := RepairDateSwap("2026-03-11", "no date token here")
	assert.Equal(t, "2026-03-11", repaired)
}

func TestIsValidCalendarDate(t *testing.T) {
	assert.True(t, IsValidCalendarDate("2026-02-15"))
	assert.False(t, IsValidCalendarDate("2026-02-30"))
	assert.False(t, IsValidCalendarDate("not-a-date"))
}

func TestIsWithinYearWindow(t *testing.T) {
	assert.True(t, IsWithinYearWindow("2026-01-01", 2024, 2028))
	assert.False(t, IsWithinYearWindow("2030-01-01", 2024, 2028))
}

func TestOrderDates_NullsLaterFieldOnViolation(t *testing.T) {
	etd := "2026-03-10"
	eta := "2026-03-01" // before ETD: violates ordering
	lfd := "2026-03-20"

	gotETD, gotETA, gotLFD, err := OrderDates(&etd, &eta, &lfd)
	require.NoError(t, err)
	assert.Equal(t, &etd, gotETD)
	assert.Nil(t, gotETA)
	assert.Equal(t, &lfd, gotLFD)
}

func TestSummaryTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "a"
	}

	out := Summary(long)
	assert.LessOrEqual(t, len([]rune(out)), summaryMaxChars)
	assert.Contains(t, out, "…")
}

func TestPortNormalization(t *testing.T) {
	assert.Equal(t, "CNSHA", Port("Shanghai"))
	assert.Equal(t, "USLAX", Port("los angeles"))
	assert.Equal(t, "", Port("<UNKNOWN>"))
	assert.Equal(t, "ABCDE", Port("abcde"))
	assert.Equal(t, "Some Place", Port("Some Place"))
}

func TestCarrierNormalization(t *testing.T) {
	assert.Equal(t, "Maersk", Carrier("MAERSK LINE A/S"))
	assert.Equal(t, "CMA CGM", Carrier("cma-cgm"))
	assert.Equal(t, "Unrecognized Line", Carrier("Unrecognized Line"))
}

func TestContainerTypeNormalization(t *testing.T) {
	assert.Equal(t, "40HC", ContainerType("40ft high cube"))
	assert.Equal(t, "20RF", ContainerType("20' reefer"))
	assert.Equal(t, "20GP", ContainerType("20 dry"))
}

func TestApply_LFDKeptOnlyForArrivalClass(t *testing.T) {
	lfd := "2026-03-05"
	analysis := domain.ExtractedAnalysis{
		DocumentType: domain.DocBookingConfirmation,
		LastFreeDay:  &lfd,
		Summary:      "booking confirmed",
	}

	result := Apply(analysis, "BKG confirmed", NewEnumMappings(nil), DefaultConfig())
	assert.Nil(t, result.Analysis.LastFreeDay)
	assert.Contains(t, result.Repairs, "lfd_nulled_non_arrival_document")
}

func TestApply_IsIdempotent(t *testing.T) {
	eta := "2026-02-02"
	analysis := domain.ExtractedAnalysis{
		DocumentType: domain.DocArrivalNotice,
		ETA:          &eta,
		Summary:      "arrival notice",
	}

	mappings := NewEnumMappings(nil)
	cfg := DefaultConfig()

	once := Apply(analysis, "subject", mappings, cfg)
	twice := Apply(once.Analysis, "subject", mappings, cfg)

	assert.Equal(t, once.Analysis, twice.Analysis)
}
