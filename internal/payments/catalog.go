// internal/payments/catalog.go

// Package payments owns the server-held price catalog and the adapter to the
// external payment processor. Amounts always come from the catalog; a
// client-supplied amount is never read, which is the anti-tampering boundary
// for everything money-related.
package payments

import (
	"shiftwork-backend/internal/common/config"
	"shiftwork-backend/internal/common/errors"
)

// PriceEntry is one authoritative catalog row. Immutable at request time.
type PriceEntry struct {
	Key         string
	Amount      int64 // minor currency units
	Currency    string
	Description string
}

// PlanEntry is one authoritative subscription plan row, carrying the external
// processor's price identifier it resolves to.
type PlanEntry struct {
	Key             string
	ProviderPriceID string
	Amount          int64
	Currency        string
	Description     string
}

// Catalog is the read-only lookup table from product/plan keys to
// authoritative amounts.
type Catalog struct {
	prices map[string]PriceEntry
	plans  map[string]PlanEntry
}

// defaultPrices and defaultPlans seed the catalog; config entries override or
// extend them.
var defaultPrices = map[string]PriceEntry{
	"shift_boost": {
		Key:         "shift_boost",
		Amount:      499,
		Currency:    "aud",
		Description: "Boost a shift posting for 48 hours",
	},
	"featured_listing": {
		Key:         "featured_listing",
		Amount:      1999,
		Currency:    "aud",
		Description: "Feature a venue listing for 7 days",
	},
}

var defaultPlans = map[string]PlanEntry{
	"plan_pro_month": {
		Key:         "plan_pro_month",
		Amount:      2999,
		Currency:    "aud",
		Description: "Pro venue plan, billed monthly",
	},
	"plan_pro_year": {
		Key:         "plan_pro_year",
		Amount:      28790,
		Currency:    "aud",
		Description: "Pro venue plan, billed yearly",
	},
}

// NewCatalog builds the catalog from compiled-in defaults merged with config.
func NewCatalog(cfg config.PaymentsConfig) *Catalog {
	c := &Catalog{
		prices: make(map[string]PriceEntry, len(defaultPrices)),
		plans:  make(map[string]PlanEntry, len(defaultPlans)),
	}

	for k, v := range defaultPrices {
		c.prices[k] = v
	}
	for k, v := range defaultPlans {
		c.plans[k] = v
	}

	for key, entry := range cfg.Catalog {
		c.prices[key] = PriceEntry{
			Key:         key,
			Amount:      entry.Amount,
			Currency:    entry.Currency,
			Description: entry.Description,
		}
	}
	for key, entry := range cfg.Plans {
		merged := PlanEntry{
			Key:             key,
			ProviderPriceID: entry.ProviderPriceID,
			Amount:          entry.Amount,
			Currency:        entry.Currency,
			Description:     entry.Description,
		}
		if existing, ok := c.plans[key]; ok {
			if merged.Amount == 0 {
				merged.Amount = existing.Amount
			}
			if merged.Currency == "" {
				merged.Currency = existing.Currency
			}
			if merged.Description == "" {
				merged.Description = existing.Description
			}
		}
		c.plans[key] = merged
	}

	return c
}

// LookupPrice resolves a price key to its authoritative entry.
func (c *Catalog) LookupPrice(priceKey string) (PriceEntry, error) {
	entry, ok := c.prices[priceKey]
	if !ok {
		return PriceEntry{}, errors.NewInvalidPriceKeyError(priceKey)
	}
	return entry, nil
}

// LookupPlan resolves a plan key to its authoritative entry.
func (c *Catalog) LookupPlan(planKey string) (PlanEntry, error) {
	entry, ok := c.plans[planKey]
	if !ok {
		return PlanEntry{}, errors.NewInvalidPlanKeyError(planKey)
	}
	return entry, nil
}
