package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDispatchTransitions(t *testing.T) {
	tests := []struct {
		from, to DispatchStatus
		allowed  bool
	}{
		{DispatchStatusPending, DispatchStatusAssigned, true},
		{DispatchStatusAssigned, DispatchStatusEnRoute, true},
		{DispatchStatusEnRoute, DispatchStatusCollected, true},
		{DispatchStatusCollected, DispatchStatusCompleted, true},
		{DispatchStatusCollected, DispatchStatusCancelled, true},
		{DispatchStatusAssigned, DispatchStatusCollected, false},
		{DispatchStatusEnRoute, DispatchStatusAssigned, false},
		{DispatchStatusCompleted, DispatchStatusCancelled, false},
		{DispatchStatusCancelled, DispatchStatusAssigned, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, DispatchStatusEnRoute.IsActive())
	assert.False(t, DispatchStatusCompleted.IsActive())
	assert.False(t, DispatchStatus("lost").Valid())
}

func TestReportStatusFor(t *testing.T) {
	tests := []struct {
		from, to DispatchStatus
		report   ReportStatus
		release  bool
	}{
		{DispatchStatusAssigned, DispatchStatusEnRoute, ReportStatusDispatched, false},
		{DispatchStatusEnRoute, DispatchStatusCollected, ReportStatusCollected, true},
		{DispatchStatusCollected, DispatchStatusCompleted, ReportStatusCollected, false},
		{DispatchStatusAssigned, DispatchStatusCancelled, ReportStatusPendingDispatch, true},
		{DispatchStatusEnRoute, DispatchStatusCancelled, ReportStatusPendingDispatch, true},
		{DispatchStatusCollected, DispatchStatusCancelled, ReportStatusCollected, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.report, ReportStatusFor(tt.from, tt.to))
			assert.Equal(t, tt.release, ReleasesTruck(tt.from, tt.to))
		})
	}
}

func TestCompatibleSpecializations(t *testing.T) {
	assert.Equal(t, []Specialization{SpecializationRecyclables, SpecializationGeneral}, CompatibleSpecializations("Plastic"))
	assert.Equal(t, []Specialization{SpecializationHazardous}, CompatibleSpecializations("paint"))
	assert.Equal(t, []Specialization{SpecializationEWaste}, CompatibleSpecializations("E Waste"))
	assert.Equal(t, []Specialization{SpecializationGeneral}, CompatibleSpecializations("something odd"))
	assert.Equal(t, SpecializationOrganic, SpecializationForMaterial(" food "))
}

func TestChangeSet(t *testing.T) {
	var changes ChangeSet
	changes.Add("name", "North", "North")
	assert.True(t, changes.Empty())

	changes.Add("name", "North", "South")
	changes.Add("truck", "", "KZ-001")
	assert.True(t, changes.Has("truck"))
	assert.False(t, changes.Has("status"))
	assert.Equal(t, "name: North -> South; truck: none -> KZ-001", changes.Summary())
	assert.Len(t, changes.Metadata()["changes"], 2)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, Page{Page: 1, PageSize: DefaultPageSize}, Page{}.Normalize())
	assert.Equal(t, Page{Page: 2, PageSize: MaxPageSize}, Page{Page: 2, PageSize: 500}.Normalize())
	assert.Equal(t, 40, Page{Page: 3, PageSize: 20}.Offset())

	result := NewPaginated[int](nil, Page{Page: 1, PageSize: 20}, 41)
	assert.NotNil(t, result.Items)
	assert.Equal(t, 3, result.TotalPages)
}

func TestLedgerEntrySigned(t *testing.T) {
	user := uuid.New()
	now := time.Now()
	assert.EqualValues(t, 10, NewCredit(user, 10, RewardReasonBonus, nil, now).Signed())
	assert.EqualValues(t, -10, NewDebit(user, 10, RewardReasonRedemption, now).Signed())
}

func TestNoticeFanoutSkipsDuplicates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	dispatchID := uuid.New()
	notice := Notice{Type: NotificationDispatchAssigned, Title: "t", Message: "m", Related: DispatchRef(dispatchID)}

	out := notice.Fanout([]uuid.UUID{a, b, a}, time.Now())
	assert.Len(t, out, 2)
	assert.Equal(t, PriorityNormal, out[0].Priority)
	assert.Equal(t, NotificationStatusActive, out[0].Status)
	assert.Equal(t, EntityDispatch, out[0].RelatedKind)
	assert.Equal(t, dispatchID, *out[1].RelatedID)
	assert.NotEqual(t, out[0].ID, out[1].ID)

	assert.True(t, RelatedEntity{}.IsNone())
	assert.False(t, UserRef(a).IsNone())
	plain := Notice{Type: NotificationSystem, Title: "t", Message: "m"}.For(a, time.Now())
	assert.Equal(t, EntityNone, plain.RelatedKind)
	assert.Nil(t, plain.RelatedID)
}
