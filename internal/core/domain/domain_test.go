package domain

import "testing"

func TestStageOrdering(t *testing.T) {
	if !(StagePending < StageBooked && StageBooked < StageSIStage && StageCustoms < StageCleared) {
		t.Fatal("stage constants must be declared in lifecycle order")
	}
}

func TestStageString(t *testing.T) {
	cases := map[Stage]string{
		StagePending:   "PENDING",
		StageBLIssued:  "BL_ISSUED",
		StageDelivered: "DELIVERED",
	}

	for stage, want := range cases {
		if got := stage.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", stage, got, want)
		}
	}
}

func TestIdentifiersHasAny(t *testing.T) {
	if (Identifiers{}).HasAny() {
		t.Fatal("empty identifiers must report HasAny() = false")
	}

	booking := "2038256270"
	if !(Identifiers{BookingNumber: &booking}).HasAny() {
		t.Fatal("identifiers with a booking number must report HasAny() = true")
	}

	if !(Identifiers{ContainerNumbers: []string{"MSCU1234567"}}).HasAny() {
		t.Fatal("identifiers with a container number must report HasAny() = true")
	}
}

func TestActionIsOpen(t *testing.T) {
	a := Action{}
	if !a.IsOpen() {
		t.Fatal("action without CompletedAt must be open")
	}
}
