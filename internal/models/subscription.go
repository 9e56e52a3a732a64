package models

import "time"

type Subscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Type      string    `json:"type"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsActive  bool      `json:"isActive"`
}

const (
	SubscriptionCustomerBasic   = "customer_basic"
	SubscriptionCustomerAdvance = "customer_advance"
	SubscriptionBarberMonthly   = "barber_monthly"
	SubscriptionBarberYearly    = "barber_yearly"
)

func ValidSubscriptionType(value string) bool {
	switch value {
	case SubscriptionCustomerBasic, SubscriptionCustomerAdvance, SubscriptionBarberMonthly, SubscriptionBarberYearly:
		return true
	}
	return false
}
