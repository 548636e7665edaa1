package dispatch

import (
	"strings"

	"github.com/kilianp07/fooddispatch/core/model"
)

// DefaultContactPhone is used when a stop has no phone number on record.
const DefaultContactPhone = "+447700900000"

// ResolvePickupAddress picks the most precise address known for a chef:
// the registered kitchen address, the onboarding kitchen address, the
// onboarding city, then the base location city.
func ResolvePickupAddress(c model.Chef) (string, bool) {
	for _, a := range []string{c.KitchenAddress, c.Onboarding.KitchenAddress, c.Onboarding.City, c.BaseCity} {
		if a = strings.TrimSpace(a); a != "" {
			return a, true
		}
	}
	return "", false
}

func contactPhone(phone, placeholder string) string {
	if p := strings.TrimSpace(phone); p != "" {
		return p
	}
	if placeholder != "" {
		return placeholder
	}
	return DefaultContactPhone
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
