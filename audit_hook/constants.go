package audithook

// Action constants for audit events.
const (
	// Invoice actions
	ActionInvoiceCreated = "invoice.created"
	ActionInvoiceOpened  = "invoice.opened"
	ActionInvoiceSettled = "invoice.settled"

	// Stake actions
	ActionStakeDeposited = "stake.deposited"
	ActionStakeWithdrawn = "stake.withdrawn"

	// Yield actions
	ActionYieldDistributed = "yield.distributed"
)

// Resource constants for audit events.
const (
	ResourceInvoice      = "invoice"
	ResourceStake        = "stake"
	ResourceWithdrawal   = "withdrawal"
	ResourceDistribution = "distribution"
)

// Category constants for audit events.
const (
	CategoryFinancing = "financing"
	CategoryPayment   = "payment"
	CategoryStaking   = "staking"
	CategoryYield     = "yield"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
