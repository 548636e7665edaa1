package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/fooddispatch/core/logger"
	"github.com/kilianp07/fooddispatch/core/model"
)

// PredictiveScheduler postpones dispatch so a driver arrives when the food is
// nearly ready instead of waiting at the kitchen.
type PredictiveScheduler struct {
	meals MealStore
	log   logger.Logger
}

// NewPredictiveScheduler creates a scheduler reading prep times from meals.
func NewPredictiveScheduler(meals MealStore, log logger.Logger) *PredictiveScheduler {
	return &PredictiveScheduler{meals: meals, log: log}
}

// MaxPrepMinutes returns the longest preparation time across the order's line
// items. Inline estimates win over the meal record; unknown meals count as 0.
func (p *PredictiveScheduler) MaxPrepMinutes(ctx context.Context, o model.Order) int {
	maxPrep := 0
	for _, it := range o.Items {
		prep := 0
		switch {
		case it.PrepTimeMinutes != nil:
			prep = *it.PrepTimeMinutes
		case it.MealID != "" && p.meals != nil:
			m, err := p.meals.GetMeal(ctx, it.MealID)
			if err != nil {
				if !errors.Is(err, model.ErrNotFound) {
					p.log.Warnf("meal %s lookup failed: %v", it.MealID, err)
				}
				continue
			}
			prep = m.PrepTimeMinutes
		}
		if prep > maxPrep {
			maxPrep = prep
		}
	}
	return maxPrep
}

// DeferUntil returns the time a deferred attempt should run and true when the
// attempt must be postponed. Only the first, non-delayed attempt is ever
// deferred; callers pass delayed=true for a run fired by the scheduler.
func (p *PredictiveScheduler) DeferUntil(ctx context.Context, o model.Order, s model.Settings, delayed bool, now time.Time) (time.Time, bool) {
	if delayed || !s.PredictiveDispatchEnabled {
		return time.Time{}, false
	}
	maxPrep := p.MaxPrepMinutes(ctx, o)
	if maxPrep <= s.PredictiveBufferMinutes {
		return time.Time{}, false
	}
	target := o.CreatedAt.Add(time.Duration(maxPrep-s.PredictiveBufferMinutes) * time.Minute)
	if !target.After(now) {
		return time.Time{}, false
	}
	return target, true
}
