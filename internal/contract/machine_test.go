package contract

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servly/marketplace_be/internal/models"
)

var (
	clientID   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	providerID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	strangerID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func pendingContract() models.Contract {
	return models.Contract{
		ID:             uuid.New(),
		ClientID:       clientID,
		ProviderID:     providerID,
		ServiceTitle:   "Limpieza de casas",
		ServiceRate:    50,
		Status:         models.ContractPending,
		ClientAction:   models.ClientNone,
		ProviderAction: models.ProviderNone,
		CommissionRate: PlatformCommissionRate,
	}
}

func activeContract() models.Contract {
	c := pendingContract()
	c.ServiceRate = 60
	c.Status = models.ContractActive
	c.ClientDeposited = true
	c.ClientAction = models.ClientAcceptOffer
	c.ProviderAction = models.ProviderMakeOffer
	return c
}

func TestOffer(t *testing.T) {
	t.Run("provider offer on pending contract", func(t *testing.T) {
		d, err := Offer(pendingContract(), providerID, 60)
		require.NoError(t, err)
		assert.Equal(t, models.ContractOffered, d.Next.Status)
		assert.Equal(t, 60.0, d.Next.ServiceRate)
		assert.Equal(t, models.ProviderMakeOffer, d.Next.ProviderAction)
		assert.Equal(t, OutcomeOfferMade, d.Outcome)
		assert.False(t, d.Terminal())
	})

	t.Run("wrong actor", func(t *testing.T) {
		_, err := Offer(pendingContract(), clientID, 60)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("wrong status", func(t *testing.T) {
		c := pendingContract()
		c.Status = models.ContractOffered
		_, err := Offer(c, providerID, 60)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("non-positive rate", func(t *testing.T) {
		for _, rate := range []float64{0, -10} {
			_, err := Offer(pendingContract(), providerID, rate)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		}
	})
}

func TestDeposit(t *testing.T) {
	offered := func() models.Contract {
		c := pendingContract()
		c.Status = models.ContractOffered
		c.ServiceRate = 60
		c.ProviderAction = models.ProviderMakeOffer
		return c
	}

	t.Run("client deposit on offered contract", func(t *testing.T) {
		d, err := Deposit(offered(), clientID)
		require.NoError(t, err)
		assert.Equal(t, models.ContractActive, d.Next.Status)
		assert.True(t, d.Next.ClientDeposited)
		assert.Equal(t, models.ClientAcceptOffer, d.Next.ClientAction)
		assert.Equal(t, OutcomeDeposited, d.Outcome)
	})

	t.Run("only the client may deposit", func(t *testing.T) {
		_, err := Deposit(offered(), providerID)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("no deposit before an offer exists", func(t *testing.T) {
		_, err := Deposit(pendingContract(), clientID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("double deposit rejected", func(t *testing.T) {
		c := offered()
		c.ClientDeposited = true
		_, err := Deposit(c, clientID)
		assert.ErrorIs(t, err, ErrDuplicateAction)
	})
}

func TestUnilateralCancelBeforeDeposit(t *testing.T) {
	for _, status := range []models.ContractStatus{models.ContractPending, models.ContractOffered} {
		for _, actor := range []uuid.UUID{clientID, providerID} {
			c := pendingContract()
			c.Status = status

			d, err := Apply(c, actor, ActionCancel)
			require.NoError(t, err, "status=%s actor=%s", status, actor)
			assert.Equal(t, models.ContractCancelled, d.Next.Status)
			assert.False(t, d.Next.ClientDeposited)
			assert.True(t, d.Terminal())
		}
	}
}

func TestApplyRejectsStrangers(t *testing.T) {
	for _, action := range []PartyAction{ActionFinalize, ActionCancel, ActionDispute, ActionCancelDispute} {
		_, err := Apply(activeContract(), strangerID, action)
		assert.ErrorIs(t, err, ErrUnauthorized, "action=%s", action)
	}
}

// TestRendezvousGrid drives the bilateral rendezvous across every
// combination of the counterparty's recorded stance and the submitted
// action, for both roles.
func TestRendezvousGrid(t *testing.T) {
	providerStances := []models.ProviderAction{
		models.ProviderNone, models.ProviderMakeOffer,
		models.ProviderFinalize, models.ProviderCancel,
	}
	clientStances := []models.ClientAction{
		models.ClientNone, models.ClientAcceptOffer,
		models.ClientFinalize, models.ClientCancel,
	}
	neutral := map[string]bool{"none": true, "accept_offer": true, "make_offer": true}

	expect := func(submitted PartyAction, other string) models.ContractStatus {
		switch {
		case submitted == ActionFinalize && other == "finalize":
			return models.ContractFinalized
		case submitted == ActionCancel && other == "cancel":
			return models.ContractCancelled
		case !neutral[other]:
			return models.ContractDisputed
		default:
			return models.ContractActive
		}
	}

	for _, submitted := range []PartyAction{ActionFinalize, ActionCancel} {
		// Client submits against every provider stance.
		for _, stance := range providerStances {
			c := activeContract()
			c.ProviderAction = stance

			d, err := Apply(c, clientID, submitted)
			require.NoError(t, err, "client %s vs provider %s", submitted, stance)
			assert.Equal(t, expect(submitted, string(stance)), d.Next.Status,
				"client %s vs provider %s", submitted, stance)
			assert.Equal(t, models.ClientAction(submitted), d.Next.ClientAction)
		}

		// Provider submits against every client stance.
		for _, stance := range clientStances {
			c := activeContract()
			c.ClientAction = stance

			d, err := Apply(c, providerID, submitted)
			require.NoError(t, err, "provider %s vs client %s", submitted, stance)
			assert.Equal(t, expect(submitted, string(stance)), d.Next.Status,
				"provider %s vs client %s", submitted, stance)
			assert.Equal(t, models.ProviderAction(submitted), d.Next.ProviderAction)
		}
	}
}

// Convergence is order independent: the same pair of intents ends in the
// same status no matter who moved last.
func TestRendezvousOrderIndependence(t *testing.T) {
	cases := []struct {
		first, second PartyAction
		want          models.ContractStatus
	}{
		{ActionFinalize, ActionFinalize, models.ContractFinalized},
		{ActionCancel, ActionCancel, models.ContractCancelled},
		{ActionFinalize, ActionCancel, models.ContractDisputed},
		{ActionCancel, ActionFinalize, models.ContractDisputed},
	}

	for _, tc := range cases {
		// Client first, provider second.
		c := activeContract()
		d, err := Apply(c, clientID, tc.first)
		require.NoError(t, err)
		assert.Equal(t, models.ContractActive, d.Next.Status, "one action alone must wait")
		d, err = Apply(d.Next, providerID, tc.second)
		require.NoError(t, err)
		assert.Equal(t, tc.want, d.Next.Status, "client %s then provider %s", tc.first, tc.second)

		// Provider first, client second.
		c = activeContract()
		d, err = Apply(c, providerID, tc.first)
		require.NoError(t, err)
		assert.Equal(t, models.ContractActive, d.Next.Status)
		d, err = Apply(d.Next, clientID, tc.second)
		require.NoError(t, err)
		assert.Equal(t, tc.want, d.Next.Status, "provider %s then client %s", tc.first, tc.second)
	}
}

func TestBilateralRejections(t *testing.T) {
	t.Run("finalize outside active", func(t *testing.T) {
		for _, status := range []models.ContractStatus{
			models.ContractPending, models.ContractOffered, models.ContractDisputed,
			models.ContractFinalized, models.ContractCancelled, models.ContractFinalizedByDispute,
		} {
			c := activeContract()
			c.Status = status
			_, err := Apply(c, clientID, ActionFinalize)
			assert.ErrorIs(t, err, ErrInvalidState, "status=%s", status)
		}
	})

	t.Run("repeating the recorded stance", func(t *testing.T) {
		c := activeContract()
		c.ClientAction = models.ClientFinalize
		_, err := Apply(c, clientID, ActionFinalize)
		assert.ErrorIs(t, err, ErrDuplicateAction)

		c = activeContract()
		c.ProviderAction = models.ProviderCancel
		_, err = Apply(c, providerID, ActionCancel)
		assert.ErrorIs(t, err, ErrDuplicateAction)
	})
}

func TestDispute(t *testing.T) {
	t.Run("either party may escalate an active contract", func(t *testing.T) {
		d, err := Apply(activeContract(), clientID, ActionDispute)
		require.NoError(t, err)
		assert.Equal(t, models.ContractDisputed, d.Next.Status)
		assert.Equal(t, models.ClientDispute, d.Next.ClientAction)

		d, err = Apply(activeContract(), providerID, ActionDispute)
		require.NoError(t, err)
		assert.Equal(t, models.ContractDisputed, d.Next.Status)
		assert.Equal(t, models.ProviderDispute, d.Next.ProviderAction)
	})

	t.Run("provider dispute preserves a prior finalize", func(t *testing.T) {
		c := activeContract()
		c.ProviderAction = models.ProviderFinalize

		d, err := Apply(c, providerID, ActionDispute)
		require.NoError(t, err)
		assert.Equal(t, models.ProviderDisputeFromFinalize, d.Next.ProviderAction)
	})

	t.Run("dispute outside active rejected", func(t *testing.T) {
		for _, status := range []models.ContractStatus{
			models.ContractPending, models.ContractOffered, models.ContractDisputed,
			models.ContractFinalized, models.ContractCancelled,
		} {
			c := activeContract()
			c.Status = status
			_, err := Apply(c, clientID, ActionDispute)
			assert.ErrorIs(t, err, ErrInvalidState, "status=%s", status)
		}
	})
}

func TestCancelDispute(t *testing.T) {
	disputedBy := func(who string) models.Contract {
		c := activeContract()
		c.Status = models.ContractDisputed
		switch who {
		case "client":
			c.ClientAction = models.ClientDispute
		case "provider":
			c.ProviderAction = models.ProviderDispute
		case "provider_from_finalize":
			c.ProviderAction = models.ProviderDisputeFromFinalize
		}
		return c
	}

	t.Run("client initiator reverts to neutral", func(t *testing.T) {
		d, err := Apply(disputedBy("client"), clientID, ActionCancelDispute)
		require.NoError(t, err)
		assert.Equal(t, models.ContractActive, d.Next.Status)
		assert.Equal(t, models.ClientAcceptOffer, d.Next.ClientAction)
		assert.Equal(t, OutcomeDisputeWithdrawn, d.Outcome)
	})

	t.Run("provider initiator reverts to none", func(t *testing.T) {
		d, err := Apply(disputedBy("provider"), providerID, ActionCancelDispute)
		require.NoError(t, err)
		assert.Equal(t, models.ContractActive, d.Next.Status)
		assert.Equal(t, models.ProviderNone, d.Next.ProviderAction)
	})

	t.Run("provider dispute-from-finalize restores finalize", func(t *testing.T) {
		d, err := Apply(disputedBy("provider_from_finalize"), providerID, ActionCancelDispute)
		require.NoError(t, err)
		assert.Equal(t, models.ContractActive, d.Next.Status)
		assert.Equal(t, models.ProviderFinalize, d.Next.ProviderAction)
	})

	t.Run("only the initiator may withdraw", func(t *testing.T) {
		_, err := Apply(disputedBy("client"), providerID, ActionCancelDispute)
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = Apply(disputedBy("provider"), clientID, ActionCancelDispute)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("not disputed", func(t *testing.T) {
		_, err := Apply(activeContract(), clientID, ActionCancelDispute)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestResolve(t *testing.T) {
	disputed := func() models.Contract {
		c := activeContract()
		c.Status = models.ContractDisputed
		c.ClientAction = models.ClientDispute
		return c
	}

	t.Run("to client", func(t *testing.T) {
		d, err := Resolve(disputed(), models.ResolutionToClient)
		require.NoError(t, err)
		assert.Equal(t, models.ContractFinalizedByDispute, d.Next.Status)
		require.NotNil(t, d.Next.DisputeResolution)
		assert.Equal(t, models.ResolutionToClient, *d.Next.DisputeResolution)
		assert.True(t, d.Terminal())
	})

	t.Run("to provider", func(t *testing.T) {
		d, err := Resolve(disputed(), models.ResolutionToProvider)
		require.NoError(t, err)
		require.NotNil(t, d.Next.DisputeResolution)
		assert.Equal(t, models.ResolutionToProvider, *d.Next.DisputeResolution)
	})

	t.Run("second ruling rejected", func(t *testing.T) {
		d, err := Resolve(disputed(), models.ResolutionToProvider)
		require.NoError(t, err)
		_, err = Resolve(d.Next, models.ResolutionToClient)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("only disputed contracts", func(t *testing.T) {
		_, err := Resolve(activeContract(), models.ResolutionToClient)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown resolution", func(t *testing.T) {
		_, err := Resolve(disputed(), models.DisputeResolution("split"))
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

// Full lifecycle: request -> offer -> deposit -> both finalize.
func TestLifecycleHappyPath(t *testing.T) {
	c := pendingContract()

	d, err := Offer(c, providerID, 60)
	require.NoError(t, err)

	d, err = Deposit(d.Next, clientID)
	require.NoError(t, err)

	d, err = Apply(d.Next, providerID, ActionFinalize)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWaiting, d.Outcome)

	d, err = Apply(d.Next, clientID, ActionFinalize)
	require.NoError(t, err)
	assert.Equal(t, models.ContractFinalized, d.Next.Status)
	assert.True(t, d.Next.ClientDeposited)
}
