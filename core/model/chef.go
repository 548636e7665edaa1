package model

// Chef is the kitchen an order is picked up from.
type Chef struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Phone    string       `json:"phone,omitempty"`
	Location *Coordinates `json:"location,omitempty"`
	// KitchenAddress is the registered kitchen address.
	KitchenAddress string `json:"kitchen_address,omitempty"`
	// BaseCity is the city recorded with the chef's base location.
	BaseCity   string            `json:"base_city,omitempty"`
	Onboarding OnboardingDetails `json:"onboarding"`
}

// OnboardingDetails is the partially completed onboarding draft of a chef.
type OnboardingDetails struct {
	KitchenAddress string `json:"kitchen_address,omitempty"`
	City           string `json:"city,omitempty"`
}
