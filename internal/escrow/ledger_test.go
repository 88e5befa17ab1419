package escrow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/servly/marketplace_be/internal/models"
)

func contract(rate float64, status models.ContractStatus, deposited bool, res *models.DisputeResolution) models.Contract {
	return models.Contract{
		ID:                uuid.New(),
		ServiceRate:       rate,
		Status:            status,
		ClientDeposited:   deposited,
		CommissionRate:    0.10,
		DisputeResolution: res,
	}
}

func toProvider() *models.DisputeResolution {
	r := models.ResolutionToProvider
	return &r
}

func toClient() *models.DisputeResolution {
	r := models.ResolutionToClient
	return &r
}

// The reference scenario: $60 contract, both finalize. Provider gets $54,
// the platform keeps $6 commission plus the $3 surcharge collected at
// deposit.
func TestFinalizedSixtyDollarContract(t *testing.T) {
	c := contract(60, models.ContractFinalized, true, nil)

	assert.InDelta(t, 63.0, ClientCharge(c.ServiceRate), 1e-9)
	assert.InDelta(t, 3.0, ClientSurcharge(c.ServiceRate), 1e-9)
	assert.InDelta(t, 54.0, ProviderPayout(c), 1e-9)
	assert.InDelta(t, 6.0, Commission(c), 1e-9)

	// Payout plus commission always reassembles the full rate.
	assert.InDelta(t, c.ServiceRate, ProviderPayout(c)+Commission(c), 1e-9)

	s := SettlementFor(c)
	assert.InDelta(t, 54.0, s.ToProvider, 1e-9)
	assert.InDelta(t, 9.0, s.PlatformRevenue, 1e-9)
	assert.Zero(t, s.Held)
	assert.Zero(t, s.ToClient)
}

func TestSettlementFor(t *testing.T) {
	t.Run("undeposited contracts hold nothing", func(t *testing.T) {
		s := SettlementFor(contract(50, models.ContractOffered, false, nil))
		assert.Equal(t, Settlement{}, s)

		s = SettlementFor(contract(50, models.ContractCancelled, false, nil))
		assert.Equal(t, Settlement{}, s)
	})

	t.Run("active and disputed hold the rate", func(t *testing.T) {
		for _, status := range []models.ContractStatus{models.ContractActive, models.ContractDisputed} {
			s := SettlementFor(contract(100, status, true, nil))
			assert.InDelta(t, 100.0, s.Held, 1e-9)
			assert.InDelta(t, 5.0, s.PlatformRevenue, 1e-9, "surcharge is revenue from deposit on")
		}
	})

	t.Run("resolution to client refunds the full rate", func(t *testing.T) {
		s := SettlementFor(contract(100, models.ContractFinalizedByDispute, true, toClient()))
		assert.InDelta(t, 100.0, s.ToClient, 1e-9)
		assert.Zero(t, s.ToProvider)
		// No commission, but the surcharge stays with the platform.
		assert.InDelta(t, 5.0, s.PlatformRevenue, 1e-9)
	})

	t.Run("resolution to provider pays out minus commission", func(t *testing.T) {
		s := SettlementFor(contract(100, models.ContractFinalizedByDispute, true, toProvider()))
		assert.InDelta(t, 90.0, s.ToProvider, 1e-9)
		assert.Zero(t, s.ToClient)
		assert.InDelta(t, 15.0, s.PlatformRevenue, 1e-9)
	})
}

func TestHeldFunds(t *testing.T) {
	contracts := []models.Contract{
		contract(60, models.ContractActive, true, nil),
		contract(40, models.ContractDisputed, true, nil),
		contract(100, models.ContractFinalized, true, nil),            // released
		contract(25, models.ContractOffered, false, nil),              // not deposited yet
		contract(75, models.ContractCancelled, false, nil),            // nothing at risk
		contract(80, models.ContractFinalizedByDispute, true, toClient()), // refunded
	}

	assert.InDelta(t, 100.0, HeldFunds(contracts), 1e-9)
}

func TestTotalCommissions(t *testing.T) {
	contracts := []models.Contract{
		// Deposited and finalized: 5% of 60 + 10% of 60 = 9.
		contract(60, models.ContractFinalized, true, nil),
		// Deposited, still active: surcharge only = 2.
		contract(40, models.ContractActive, true, nil),
		// Resolved to provider: 5 + 10 = 15.
		contract(100, models.ContractFinalizedByDispute, true, toProvider()),
		// Resolved to client: surcharge only = 4.
		contract(80, models.ContractFinalizedByDispute, true, toClient()),
		// Never deposited: nothing.
		contract(500, models.ContractCancelled, false, nil),
	}

	assert.InDelta(t, 30.0, TotalCommissions(contracts), 1e-9)
}

func TestHeldFundsEmpty(t *testing.T) {
	assert.Zero(t, HeldFunds(nil))
	assert.Zero(t, TotalCommissions(nil))
}
