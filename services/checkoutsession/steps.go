package checkoutsession

// Step is one named stage of the checkout flow. The order below is the only
// order in which a customer can move forward; customer_data is visited by
// guests only.
type Step string

const (
	StepAuthentication Step = "authentication"
	StepCustomerData   Step = "customer_data"
	StepAddress        Step = "address"
	StepPayment        Step = "payment"
	StepConfirmation   Step = "confirmation"
)

var stepOrder = []Step{
	StepAuthentication,
	StepCustomerData,
	StepAddress,
	StepPayment,
	StepConfirmation,
}

var progressPerStep = map[Step]int{
	StepAuthentication: 20,
	StepCustomerData:   40,
	StepAddress:        60,
	StepPayment:        80,
	StepConfirmation:   100,
}

func (s Step) IsValid() bool {
	return stepIndex(s) >= 0
}

func (s Step) String() string {
	return string(s)
}

func stepIndex(s Step) int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}
