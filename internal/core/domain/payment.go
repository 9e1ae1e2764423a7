package domain

// PaymentOutcome is the result of a single pay attempt. It is surfaced once
// to the caller and never stored.
type PaymentOutcome string

const (
	PaymentSucceeded         PaymentOutcome = "succeeded"
	PaymentInsufficientFunds PaymentOutcome = "insufficient_funds"
	PaymentAlreadyPaid       PaymentOutcome = "already_paid"
	PaymentFailed            PaymentOutcome = "failed"
)

var paymentMessages = map[PaymentOutcome]string{
	PaymentSucceeded:         "The course has been paid successfully.",
	PaymentInsufficientFunds: "Insufficient funds on your balance.",
	PaymentAlreadyPaid:       "You already have access to this course.",
	PaymentFailed:            "Payment failed. Please try again later.",
}

// ParsePaymentOutcome maps a query value back to an outcome. Unknown values
// report ok=false and must not produce a message.
func ParsePaymentOutcome(s string) (PaymentOutcome, bool) {
	o := PaymentOutcome(s)
	if _, ok := paymentMessages[o]; !ok {
		return "", false
	}
	return o, true
}

// Message is the user-facing text for the outcome.
func (o PaymentOutcome) Message() string {
	return paymentMessages[o]
}
