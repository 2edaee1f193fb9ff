package checkoutsession

import "time"

// DefaultSessionTTL is the sliding-expiration window: every meaningful
// activity pushes the expiry this far into the future.
const DefaultSessionTTL = 30 * time.Minute

type reducer struct {
	ttl time.Duration
}

func newReducer(ttl time.Duration) reducer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return reducer{ttl: ttl}
}

// reduce is the transition function of the checkout state machine. It is
// pure and total: it never errors, a rejected transition returns the input
// state untouched (no timestamp refresh either) with accepted == false.
func (r reducer) reduce(s CheckoutSession, action Action, now time.Time) (CheckoutSession, bool) {
	// InitSession and Reset replace the state wholesale and are the only
	// transitions an expired session still accepts.
	switch a := action.(type) {
	case InitSession:
		return newSession(a.SessionUID, a.StoreUID, a.CustomerUID, now, r.ttl), true
	case Reset:
		return newSession(s.UID, s.StoreUID, "", now, r.ttl), true
	}

	if IsExpired(s, now) {
		return s, false
	}

	switch a := action.(type) {
	case SetJWT:
		s.AuthToken = a.Token
		return r.touch(s, now), true

	case SetAuthentication:
		s.IsAuthenticated = !a.IsGuest
		s.IsGuest = a.IsGuest
		s.AuthenticationMethod = a.Method
		if a.CustomerUID != "" {
			s.CustomerUID = a.CustomerUID
		}
		s.CustomerData = mergeCustomerData(s.CustomerData, a.Customer)
		s = markCompleted(s, StepAuthentication)
		s.CurrentStep = NextStepAfterAuthentication(s.IsAuthenticated, s.IsGuest)
		s.AuthModalVisible = false
		return r.touch(s, now), true

	case SetCustomerData:
		s.CustomerData = mergeCustomerData(s.CustomerData, a.Data)
		return r.touch(s, now), true

	case SetAddress:
		s.Address = mergeAddress(s.Address, a.Address)
		return r.touch(s, now), true

	case SetPaymentMethod:
		s.PaymentMethod = a.Method
		return r.touch(s, now), true

	case GoToStep:
		if !CanGoToStep(s, a.Target) {
			return s, false
		}
		s.CurrentStep = a.Target
		return r.touch(s, now), true

	case NextStep:
		if !CanGoNext(s) {
			return s, false
		}
		next, _ := nextStepOf(s)
		s.CurrentStep = next
		return r.touch(s, now), true

	case PrevStep:
		if !CanGoPrev(s) {
			return s, false
		}
		prev, _ := prevStepOf(s)
		s.CurrentStep = prev
		return r.touch(s, now), true

	case MarkStepComplete:
		if !a.Step.IsValid() {
			return s, false
		}
		s = markCompleted(s, a.Step)
		return r.touch(s, now), true

	case ConfirmIdentity:
		if !s.IsAuthenticated {
			return s, false
		}
		s = markCompleted(s, StepAuthentication)
		if s.CurrentStep == StepAuthentication {
			s.CurrentStep = NextStepAfterAuthentication(true, false)
		}
		s.AuthModalVisible = false
		return r.touch(s, now), true

	// Transient UI flags: no expiry slide.
	case SetLoading:
		s.Loading = a.Loading
		return s, true

	case SetError:
		s.Error = a.Message
		return s, true

	case ShowAuthModal:
		s.AuthModalVisible = a.Visible
		return s, true
	}

	return s, false
}

// touch slides the expiration window forward from the current activity.
func (r reducer) touch(s CheckoutSession, now time.Time) CheckoutSession {
	s.LastActivity = now
	s.ExpiresAt = now.Add(r.ttl)
	return s
}
