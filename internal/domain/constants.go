package domain

// User roles.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// PaymentIntent lifecycle. SETTLED, FAILED and EXPIRED are terminal and
// write-once; only the reconciliation engine moves an intent between states.
const (
	IntentCreated         = "CREATED"
	IntentAwaitingGateway = "AWAITING_GATEWAY"
	IntentVerifying       = "VERIFYING"
	IntentSettled         = "SETTLED"
	IntentFailed          = "FAILED"
	IntentExpired         = "EXPIRED"
)

// IsTerminalIntent reports whether an intent status is final.
func IsTerminalIntent(status string) bool {
	return status == IntentSettled || status == IntentFailed || status == IntentExpired
}

// Purchase service types.
const (
	ServiceAirtime     = "AIRTIME"
	ServiceData        = "DATA"
	ServiceCableTV     = "CABLE_TV"
	ServiceElectricity = "ELECTRICITY"
)
