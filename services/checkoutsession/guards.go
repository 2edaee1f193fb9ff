package checkoutsession

import "time"

// IsExpired reports whether the session has outlived its sliding expiry.
func IsExpired(s CheckoutSession, now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NextStepAfterAuthentication decides where the flow continues once the
// identification decision has been made: guests must supply their contact
// data first, known customers go straight to the address.
func NextStepAfterAuthentication(isAuthenticated bool, isGuest bool) Step {
	switch {
	case isGuest:
		return StepCustomerData
	case isAuthenticated:
		return StepAddress
	default:
		return StepAuthentication
	}
}

// ShouldPromptAuthentication gates whether the UI shows the identification
// options at all.
func ShouldPromptAuthentication(s CheckoutSession) bool {
	return !s.AuthenticationResolved()
}

// ProgressPercentage maps the current step to a fixed progress value.
func ProgressPercentage(s CheckoutSession) int {
	return progressPerStep[s.CurrentStep]
}

// CanGoToStep reports whether target is reachable: the current step itself,
// a step already completed, or any step ahead of the current one, provided
// its prerequisites hold. Stepping back to a step that was never completed
// is not allowed.
func CanGoToStep(s CheckoutSession, target Step) bool {
	if !target.IsValid() {
		return false
	}
	if !stepPrerequisitesMet(s, target) {
		return false
	}
	if target == s.CurrentStep {
		return true
	}
	if s.HasCompleted(target) {
		return true
	}
	return stepIndex(target) > stepIndex(s.CurrentStep)
}

// CanGoNext reports whether a next step exists and its prerequisites are met.
func CanGoNext(s CheckoutSession) bool {
	next, ok := nextStepOf(s)
	return ok && stepPrerequisitesMet(s, next)
}

// CanGoPrev reports whether a previous step exists.
func CanGoPrev(s CheckoutSession) bool {
	_, ok := prevStepOf(s)
	return ok
}

// stepPrerequisitesMet enforces the step invariants: customer_data is a
// guest-only stop, everything past it requires a resolved identification
// decision, and confirmation additionally requires a chosen payment method.
func stepPrerequisitesMet(s CheckoutSession, target Step) bool {
	switch target {
	case StepAuthentication:
		return true
	case StepCustomerData:
		return s.IsGuest
	case StepAddress, StepPayment:
		return s.AuthenticationResolved()
	case StepConfirmation:
		return s.AuthenticationResolved() && s.PaymentMethod != ""
	default:
		return false
	}
}

// nextStepOf returns the immediate successor in the ordered step list,
// skipping customer_data for non-guests.
func nextStepOf(s CheckoutSession) (Step, bool) {
	idx := stepIndex(s.CurrentStep)
	if idx < 0 {
		return "", false
	}
	for i := idx + 1; i < len(stepOrder); i++ {
		candidate := stepOrder[i]
		if candidate == StepCustomerData && !s.IsGuest {
			continue
		}
		return candidate, true
	}
	return "", false
}

// prevStepOf returns the immediate predecessor, with the same guest branch.
func prevStepOf(s CheckoutSession) (Step, bool) {
	idx := stepIndex(s.CurrentStep)
	if idx < 0 {
		return "", false
	}
	for i := idx - 1; i >= 0; i-- {
		candidate := stepOrder[i]
		if candidate == StepCustomerData && !s.IsGuest {
			continue
		}
		return candidate, true
	}
	return "", false
}
