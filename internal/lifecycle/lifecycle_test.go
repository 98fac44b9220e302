package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talentflow/ats-offer-api/internal/models"
)

func TestIsExclusive(t *testing.T) {
	require.True(t, IsExclusive(models.StatusOfferAccepted))
	require.True(t, IsExclusive(models.StatusApproved))
	require.True(t, IsExclusive(models.StatusHired))
	require.False(t, IsExclusive(models.StatusOfferPending))
	require.False(t, IsExclusive(models.StatusActive))
}

func TestIsFinal(t *testing.T) {
	for _, status := range []models.ApplicationStatus{
		models.StatusHired, models.StatusRejected, models.StatusWithdrawn,
		models.StatusExpired, models.StatusOfferDeclined,
	} {
		require.True(t, IsFinal(status), "expected %s to be final", status)
	}
	require.False(t, IsFinal(models.StatusOfferAccepted))
	require.False(t, IsFinal(models.StatusApproved))
}

func TestIsCritical(t *testing.T) {
	require.True(t, IsCritical(models.StatusOfferPending))
	require.True(t, IsCritical(models.StatusHired))
	require.False(t, IsCritical(models.StatusScreening))
}

func TestIsKnown(t *testing.T) {
	for _, status := range models.KnownStatuses {
		require.True(t, IsKnown(status))
	}
	require.False(t, IsKnown(models.ApplicationStatus("telepathic_interview")))
}

func TestCanHoldMultiple(t *testing.T) {
	apps := []models.Application{
		{ID: "app-1", Status: models.StatusOfferPending},
		{ID: "app-2", Status: models.StatusScreening},
	}
	require.True(t, CanHoldMultiple(apps))

	apps = append(apps, models.Application{ID: "app-3", Status: models.StatusOfferAccepted})
	require.False(t, CanHoldMultiple(apps))
}

func TestCanTransitionRestrictedStates(t *testing.T) {
	require.True(t, CanTransition(models.StatusOfferPending, models.StatusOfferAccepted))
	require.True(t, CanTransition(models.StatusOfferPending, models.StatusOfferDeclined))
	require.True(t, CanTransition(models.StatusOfferPending, models.StatusExpired))
	require.False(t, CanTransition(models.StatusOfferPending, models.StatusScreening))

	// known illegal reversal
	require.False(t, CanTransition(models.StatusHired, models.StatusScreening))
	require.False(t, CanTransition(models.StatusWithdrawn, models.StatusActive))
}

func TestCanTransitionDefaultsToAllowed(t *testing.T) {
	// unlisted from-states place no restriction
	require.True(t, CanTransition(models.StatusScreening, models.StatusTechnicalTest))
	require.True(t, CanTransition(models.StatusActive, models.StatusRejected))
}

func TestAllowedTransitions(t *testing.T) {
	allowed, restricted := AllowedTransitions(models.StatusOfferPending)
	require.True(t, restricted)
	require.Contains(t, allowed, models.StatusOfferAccepted)

	_, restricted = AllowedTransitions(models.StatusScreening)
	require.False(t, restricted)
}
