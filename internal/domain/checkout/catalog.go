package checkout

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Catalog is the list of plans offered on the pricing step.
type Catalog struct {
	plans []ports.Plan
}

// NewCatalog wraps a plan list.
func NewCatalog(plans []ports.Plan) Catalog {
	return Catalog{plans: append([]ports.Plan(nil), plans...)}
}

// LoadCatalog fetches the plans from the API.
func LoadCatalog(ctx context.Context, svc ports.PlanService) (Catalog, error) {
	plans, err := svc.Plans(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to load plans: %w", err)
	}
	return NewCatalog(plans), nil
}

// Plans returns the plans in display order.
func (c Catalog) Plans() []ports.Plan {
	return append([]ports.Plan(nil), c.plans...)
}

// Find returns the plan with the given id.
func (c Catalog) Find(id string) (ports.Plan, bool) {
	for _, p := range c.plans {
		if p.ID == id {
			return p, true
		}
	}
	return ports.Plan{}, false
}

// IDs returns the plan ids in display order.
func (c Catalog) IDs() []string {
	ids := make([]string, len(c.plans))
	for i, p := range c.plans {
		ids[i] = p.ID
	}
	return ids
}

// FormatPrice renders a plan's price, e.g. "€ 9.99 / month".
func FormatPrice(p ports.Plan) string {
	amount := float64(p.PriceCents) / 100
	unit, err := currency.ParseISO(strings.ToUpper(p.Currency))
	if err != nil {
		return fmt.Sprintf("%.2f %s / %s", amount, p.Currency, p.Interval)
	}
	printer := message.NewPrinter(language.English)
	return printer.Sprintf("%v / %s", currency.Symbol(unit.Amount(amount)), p.Interval)
}
