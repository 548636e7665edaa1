package dispatch

import (
	"context"
	"errors"

	"github.com/kilianp07/fooddispatch/core/logger"
	"github.com/kilianp07/fooddispatch/core/model"
)

// PackageSizer chooses the courier parcel category for an order.
type PackageSizer interface {
	Size(ctx context.Context, o *model.Order) model.PackageSize
}

// MealPackageSizer derives the package size from meal attributes.
type MealPackageSizer struct {
	meals MealStore
	log   logger.Logger
}

// NewMealPackageSizer creates a sizer reading meal records from meals.
func NewMealPackageSizer(meals MealStore, log logger.Logger) *MealPackageSizer {
	return &MealPackageSizer{meals: meals, log: log}
}

var servingsByPortion = map[model.PortionSize]float64{
	model.PortionSmall:   0.5,
	model.PortionRegular: 1,
	model.PortionLarge:   1.5,
	model.PortionFamily:  3,
}

// Size returns medium without an order, small without items and medium when
// a meal cannot be read. Special packaging or family portions force at least
// large; otherwise total weight decides, then total servings.
func (s *MealPackageSizer) Size(ctx context.Context, o *model.Order) model.PackageSize {
	if o == nil {
		return model.PackageMedium
	}
	if len(o.Items) == 0 {
		return model.PackageSmall
	}
	var (
		servings float64
		weight   int
		special  bool
		family   bool
	)
	for _, it := range o.Items {
		if it.MealID == "" {
			continue
		}
		m, err := s.meals.GetMeal(ctx, it.MealID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			s.log.Warnf("package size: meal %s: %v", it.MealID, err)
			return model.PackageMedium
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		switch {
		case m.ServingCount > 0:
			servings += float64(m.ServingCount * qty)
		case m.PortionSize != "":
			est, ok := servingsByPortion[m.PortionSize]
			if !ok {
				est = 1
			}
			servings += est * float64(qty)
		default:
			servings += float64(qty)
		}
		weight += m.PackageWeightGrams * qty
		special = special || m.RequiresSpecialPackaging
		family = family || m.PortionSize == model.PortionFamily
	}

	if special || family {
		if servings > 6 {
			return model.PackageXLarge
		}
		return model.PackageLarge
	}
	if weight > 0 {
		switch {
		case weight < 500:
			return model.PackageXSmall
		case weight < 1000:
			return model.PackageSmall
		case weight < 2000:
			return model.PackageMedium
		case weight < 3500:
			return model.PackageLarge
		}
		return model.PackageXLarge
	}
	switch {
	case servings <= 1:
		return model.PackageXSmall
	case servings <= 2:
		return model.PackageSmall
	case servings <= 4:
		return model.PackageMedium
	case servings <= 6:
		return model.PackageLarge
	}
	return model.PackageXLarge
}
