// Package pricing serves the static plan catalog behind the pricing
// and checkout endpoints. Plans are fixed at startup; the checkout URL
// points at the provider-hosted payment page.
package pricing

import (
	"fmt"
	"net/url"
	"strings"
)

// Plan is one purchasable offering.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Currency string   `json:"currency"`
	Platform string   `json:"platform"`
	Features []string `json:"features"`
}

// Service exposes the plan catalog and builds checkout redirects.
type Service struct {
	plans       []Plan
	checkoutURL string
}

// NewService validates the catalog and checkout URL once at startup.
func NewService(plans []Plan, checkoutURL string) (*Service, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("at least one pricing plan is required")
	}
	seen := make(map[string]bool, len(plans))
	for _, p := range plans {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("pricing plan id is required")
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate pricing plan id %q", p.ID)
		}
		seen[p.ID] = true
	}
	if _, err := url.ParseRequestURI(checkoutURL); err != nil {
		return nil, fmt.Errorf("invalid checkout url: %w", err)
	}
	return &Service{plans: plans, checkoutURL: checkoutURL}, nil
}

// Plans returns the catalog.
func (s *Service) Plans() []Plan {
	out := make([]Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

// CheckoutURL builds the provider checkout URL for a plan. Unknown
// plan IDs fall back to the bare checkout page.
func (s *Service) CheckoutURL(planID string) string {
	for _, p := range s.plans {
		if p.ID == planID {
			u, err := url.Parse(s.checkoutURL)
			if err != nil {
				return s.checkoutURL
			}
			q := u.Query()
			q.Set("plan", p.ID)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return s.checkoutURL
}

// DefaultPlans is the catalog for a single perpetual-license product.
func DefaultPlans(productID, productName string) []Plan {
	return []Plan{
		{
			ID:       productID,
			Name:     productName,
			Price:    "29.99",
			Currency: "USD",
			Platform: "any",
			Features: []string{
				"Perpetual license",
				"All supported platforms",
				"30 days offline activation",
				"Free updates",
			},
		},
	}
}
