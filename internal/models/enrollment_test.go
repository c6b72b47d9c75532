package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    EnrollmentStatus
		to      EnrollmentStatus
		allowed bool
	}{
		{"pending to active", EnrollmentStatusPending, EnrollmentStatusActive, true},
		{"pending to dropped", EnrollmentStatusPending, EnrollmentStatusDropped, true},
		{"pending to completed", EnrollmentStatusPending, EnrollmentStatusCompleted, false},
		{"pending to suspended", EnrollmentStatusPending, EnrollmentStatusSuspended, false},
		{"active to completed", EnrollmentStatusActive, EnrollmentStatusCompleted, true},
		{"active to dropped", EnrollmentStatusActive, EnrollmentStatusDropped, true},
		{"active to repeated", EnrollmentStatusActive, EnrollmentStatusRepeated, true},
		{"active to suspended", EnrollmentStatusActive, EnrollmentStatusSuspended, true},
		{"active to pending", EnrollmentStatusActive, EnrollmentStatusPending, false},
		{"completed is final", EnrollmentStatusCompleted, EnrollmentStatusActive, false},
		{"dropped is final", EnrollmentStatusDropped, EnrollmentStatusActive, false},
		{"repeated is final", EnrollmentStatusRepeated, EnrollmentStatusActive, false},
		{"suspended to active", EnrollmentStatusSuspended, EnrollmentStatusActive, true},
		{"suspended to completed", EnrollmentStatusSuspended, EnrollmentStatusCompleted, false},
		{"suspended to dropped", EnrollmentStatusSuspended, EnrollmentStatusDropped, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestEnrollmentStatusIsTerminal(t *testing.T) {
	require.False(t, EnrollmentStatusPending.IsTerminal())
	require.False(t, EnrollmentStatusActive.IsTerminal())
	require.True(t, EnrollmentStatusCompleted.IsTerminal())
	require.True(t, EnrollmentStatusDropped.IsTerminal())
	require.True(t, EnrollmentStatusRepeated.IsTerminal())
	require.False(t, EnrollmentStatusSuspended.IsTerminal())
}

func TestEnrollmentStatusValid(t *testing.T) {
	for _, s := range []EnrollmentStatus{
		EnrollmentStatusPending, EnrollmentStatusActive, EnrollmentStatusCompleted,
		EnrollmentStatusDropped, EnrollmentStatusRepeated, EnrollmentStatusSuspended,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, EnrollmentStatus("GRADUATED").Valid())
	assert.False(t, EnrollmentStatus("").Valid())
}
