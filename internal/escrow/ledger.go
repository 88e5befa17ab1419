// Package escrow holds the money arithmetic for contracts. Everything here
// is recomputed from the contract rows on demand; there is no separate
// mutable ledger to drift out of sync.
package escrow

import "github.com/servly/marketplace_be/internal/models"

const (
	// ClientSurchargeRate is the extra fraction the client pays on top of
	// the service rate at deposit time. The escrow itself only ever holds
	// the service rate; the surcharge is platform revenue immediately.
	ClientSurchargeRate = 0.05
)

// ClientCharge is the total the client pays at deposit.
func ClientCharge(serviceRate float64) float64 {
	return serviceRate * (1 + ClientSurchargeRate)
}

// ClientSurcharge is the platform's cut of the deposit.
func ClientSurcharge(serviceRate float64) float64 {
	return serviceRate * ClientSurchargeRate
}

// ProviderPayout is what the provider receives when a contract settles in
// their favor.
func ProviderPayout(c models.Contract) float64 {
	return c.ServiceRate * (1 - c.CommissionRate)
}

// Commission is the platform's cut of a provider-favorable settlement.
func Commission(c models.Contract) float64 {
	return c.ServiceRate * c.CommissionRate
}

// Settlement describes where the held funds went (or will go) for one
// contract, so dashboards don't re-derive it per role.
type Settlement struct {
	Held            float64 `json:"held"`
	ToProvider      float64 `json:"to_provider"`
	ToClient        float64 `json:"to_client"`
	PlatformRevenue float64 `json:"platform_revenue"`
}

// SettlementFor computes the settlement view of a single contract in its
// current state.
func SettlementFor(c models.Contract) Settlement {
	var s Settlement
	if !c.ClientDeposited {
		return s
	}

	// The 5% surcharge is collected at deposit and never refunded.
	s.PlatformRevenue = ClientSurcharge(c.ServiceRate)

	switch c.Status {
	case models.ContractActive, models.ContractDisputed:
		s.Held = c.ServiceRate
	case models.ContractFinalized:
		s.ToProvider = ProviderPayout(c)
		s.PlatformRevenue += Commission(c)
	case models.ContractFinalizedByDispute:
		if c.DisputeResolution != nil && *c.DisputeResolution == models.ResolutionToProvider {
			s.ToProvider = ProviderPayout(c)
			s.PlatformRevenue += Commission(c)
		} else {
			s.ToClient = c.ServiceRate
		}
	}
	return s
}

// HeldFunds is the money currently locked in escrow: deposited contracts
// that are still active or disputed.
func HeldFunds(contracts []models.Contract) float64 {
	var total float64
	for _, c := range contracts {
		if c.ClientDeposited && (c.Status == models.ContractActive || c.Status == models.ContractDisputed) {
			total += c.ServiceRate
		}
	}
	return total
}

// TotalCommissions is the platform's accumulated revenue: the deposit
// surcharge on every deposited contract, plus the provider commission on
// contracts settled in the provider's favor.
func TotalCommissions(contracts []models.Contract) float64 {
	var total float64
	for _, c := range contracts {
		if c.ClientDeposited {
			total += ClientSurcharge(c.ServiceRate)
		}
		if c.Status == models.ContractFinalized ||
			(c.Status == models.ContractFinalizedByDispute &&
				c.DisputeResolution != nil && *c.DisputeResolution == models.ResolutionToProvider) {
			total += Commission(c)
		}
	}
	return total
}
