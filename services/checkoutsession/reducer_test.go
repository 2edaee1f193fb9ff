package checkoutsession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/digimenu/checkoutflow/lib/mytime"
)

func TestGuestFlow(t *testing.T) {
	r := newReducer(DefaultSessionTTL)
	now := mytime.ExampleTime

	// given
	s, ok := r.reduce(CheckoutSession{}, InitSession{SessionUID: "sess-1", StoreUID: "store-1"}, now)
	assert.True(t, ok)
	assert.Equal(t, StepAuthentication, s.CurrentStep)
	assert.Equal(t, 20, ProgressPercentage(s))

	// when: guest identifies with name and phone
	s, ok = r.reduce(s, SetAuthentication{
		IsGuest:  true,
		Method:   AuthMethodGuest,
		Customer: CustomerData{Name: "Maria", Phone: "+5511999990000"},
	}, now)

	// then: guests stop at customer_data first
	assert.True(t, ok)
	assert.True(t, s.IsGuest)
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, StepCustomerData, s.CurrentStep)
	assert.True(t, s.HasCompleted(StepAuthentication))
	assert.Equal(t, 40, ProgressPercentage(s))

	// when: the remaining steps are worked through in order
	s, ok = r.reduce(s, SetCustomerData{Data: CustomerData{Email: "maria@example.com"}}, now)
	assert.True(t, ok)
	assert.Equal(t, "Maria", s.CustomerData.Name)
	assert.Equal(t, "maria@example.com", s.CustomerData.Email)

	s, ok = r.reduce(s, NextStep{}, now)
	assert.True(t, ok)
	assert.Equal(t, StepAddress, s.CurrentStep)

	s, ok = r.reduce(s, SetAddress{Address: Address{PostalCode: "01310-100", Street: "Av Paulista", Number: "1000", District: "Bela Vista", City: "Sao Paulo", State: "SP"}}, now)
	assert.True(t, ok)

	s, ok = r.reduce(s, NextStep{}, now)
	assert.True(t, ok)
	assert.Equal(t, StepPayment, s.CurrentStep)

	s, ok = r.reduce(s, SetPaymentMethod{Method: "pix"}, now)
	assert.True(t, ok)

	s, ok = r.reduce(s, NextStep{}, now)
	assert.True(t, ok)
	assert.Equal(t, StepConfirmation, s.CurrentStep)
	assert.Equal(t, 100, ProgressPercentage(s))
}

func TestAuthenticatedFlowSkipsCustomerData(t *testing.T) {
	r := newReducer(DefaultSessionTTL)
	now := mytime.ExampleTime

	// given
	s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "sess-2", StoreUID: "store-1"}, now)

	// when
	s, ok := r.reduce(s, SetAuthentication{
		CustomerUID: "cust-42",
		IsGuest:     false,
		Method:      AuthMethodExistingAccount,
		Customer:    CustomerData{Name: "Joao", Phone: "+5511888880000"},
	}, now)

	// then: known customers go straight to the address
	assert.True(t, ok)
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "cust-42", s.CustomerUID)
	assert.Equal(t, StepAddress, s.CurrentStep)

	// and: customer_data is never reachable for them
	_, ok = r.reduce(s, GoToStep{Target: StepCustomerData}, now)
	assert.False(t, ok)

	// and: stepping back skips customer_data as well
	prev, ok := r.reduce(s, PrevStep{}, now)
	assert.True(t, ok)
	assert.Equal(t, StepAuthentication, prev.CurrentStep)
}

func TestForwardNavigationIsGuarded(t *testing.T) {
	r := newReducer(DefaultSessionTTL)
	now := mytime.ExampleTime

	t.Run("cannot leave authentication while undecided", func(t *testing.T) {
		s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "s", StoreUID: "st"}, now)

		next, ok := r.reduce(s, NextStep{}, now)
		assert.False(t, ok)
		assert.Equal(t, s, next)

		next, ok = r.reduce(s, GoToStep{Target: StepPayment}, now)
		assert.False(t, ok)
		assert.Equal(t, s, next)
	})

	t.Run("confirmation requires a payment method", func(t *testing.T) {
		s := sessionOnStep(r, now, StepPayment)
		s.PaymentMethod = ""

		next, ok := r.reduce(s, NextStep{}, now)
		assert.False(t, ok)
		assert.Equal(t, s, next)
	})

	t.Run("a rejected transition does not refresh timestamps", func(t *testing.T) {
		s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "s", StoreUID: "st"}, now)
		later := now.Add(5 * time.Minute)

		next, ok := r.reduce(s, NextStep{}, later)
		assert.False(t, ok)
		assert.Equal(t, s.LastActivity, next.LastActivity)
		assert.Equal(t, s.ExpiresAt, next.ExpiresAt)
	})

	t.Run("unknown step is rejected", func(t *testing.T) {
		s := sessionOnStep(r, now, StepAddress)

		_, ok := r.reduce(s, GoToStep{Target: Step("warehouse")}, now)
		assert.False(t, ok)

		_, ok = r.reduce(s, MarkStepComplete{Step: Step("warehouse")}, now)
		assert.False(t, ok)
	})

	t.Run("completed steps stay reachable backwards", func(t *testing.T) {
		s := sessionOnStep(r, now, StepPayment)

		// not completed yet, so a direct jump back is rejected
		_, ok := r.reduce(s, GoToStep{Target: StepAddress}, now)
		assert.False(t, ok)

		s, ok = r.reduce(s, MarkStepComplete{Step: StepAddress}, now)
		assert.True(t, ok)

		back, ok := r.reduce(s, GoToStep{Target: StepAddress}, now)
		assert.True(t, ok)
		assert.Equal(t, StepAddress, back.CurrentStep)
	})
}

func TestDirectJumpToConfirmation(t *testing.T) {
	r := newReducer(DefaultSessionTTL)
	now := mytime.ExampleTime

	// given: an authenticated customer sitting on the address step
	s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "sess-3", StoreUID: "store-1"}, now)
	s, _ = r.reduce(s, SetAuthentication{
		CustomerUID: "cust-42",
		Method:      AuthMethodExistingAccount,
		Customer:    CustomerData{Name: "Joao", Phone: "+5511888880000"},
	}, now)
	s, ok := r.reduce(s, SetAddress{Address: Address{PostalCode: "01310-100", Street: "Av Paulista", Number: "1000", District: "Bela Vista", City: "Sao Paulo", State: "SP"}}, now)
	assert.True(t, ok)
	assert.Equal(t, StepAddress, s.CurrentStep)

	// when: jumping straight to confirmation without a payment method
	next, ok := r.reduce(s, GoToStep{Target: StepConfirmation}, now)

	// then: rejected until the method is chosen
	assert.False(t, ok)
	assert.Equal(t, s, next)

	// when: the method is set, the same jump skips the payment step entirely
	s, ok = r.reduce(s, SetPaymentMethod{Method: "pix"}, now)
	assert.True(t, ok)
	s, ok = r.reduce(s, GoToStep{Target: StepConfirmation}, now)

	// then
	assert.True(t, ok)
	assert.Equal(t, StepConfirmation, s.CurrentStep)
	assert.Equal(t, 100, ProgressPercentage(s))
}

func TestSlidingExpiry(t *testing.T) {
	r := newReducer(DefaultSessionTTL)
	now := mytime.ExampleTime

	t.Run("meaningful activity slides the window", func(t *testing.T) {
		s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "s", StoreUID: "st"}, now)
		later := now.Add(10 * time.Minute)

		s, ok := r.reduce(s, SetAuthentication{IsGuest: true, Method: AuthMethodGuest, Customer: CustomerData{Name: "a", Phone: "1"}}, later)
		assert.True(t, ok)
		assert.Equal(t, later, s.LastActivity)
		assert.Equal(t, later.Add(DefaultSessionTTL), s.ExpiresAt)
	})

	t.Run("transient flags do not slide the window", func(t *testing.T) {
		s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "s", StoreUID: "st"}, now)
		later := now.Add(10 * time.Minute)

		for _, action := range []Action{SetLoading{Loading: true}, SetError{Message: "oops"}, ShowAuthModal{Visible: true}} {
			next, ok := r.reduce(s, action, later)
			assert.True(t, ok, action.actionName())
			assert.Equal(t, s.LastActivity, next.LastActivity, action.actionName())
			assert.Equal(t, s.ExpiresAt, next.ExpiresAt, action.actionName())
		}
	})

	t.Run("an expired session only accepts init and reset", func(t *testing.T) {
		s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "s", StoreUID: "st"}, now)
		afterExpiry := s.ExpiresAt

		for _, action := range []Action{
			NextStep{}, PrevStep{}, SetPaymentMethod{Method: "pix"},
			SetAuthentication{IsGuest: true, Method: AuthMethodGuest},
			SetLoading{Loading: true},
		} {
			next, ok := r.reduce(s, action, afterExpiry)
			assert.False(t, ok, action.actionName())
			assert.Equal(t, s, next, action.actionName())
		}

		fresh, ok := r.reduce(s, Reset{}, afterExpiry)
		assert.True(t, ok)
		assert.Equal(t, s.UID, fresh.UID)
		assert.Equal(t, s.StoreUID, fresh.StoreUID)
		assert.Equal(t, StepAuthentication, fresh.CurrentStep)
		assert.Empty(t, fresh.CompletedSteps)
		assert.False(t, IsExpired(fresh, afterExpiry))
	})
}

func TestReset(t *testing.T) {
	r := newReducer(DefaultSessionTTL)
	now := mytime.ExampleTime

	// given: a session deep into the flow, bound to a customer
	s := sessionOnStep(r, now, StepConfirmation)
	s.CustomerUID = "cust-42"

	// when
	fresh, ok := r.reduce(s, Reset{}, now)

	// then: identity of session and store survive, everything else is cleared
	assert.True(t, ok)
	assert.Equal(t, s.UID, fresh.UID)
	assert.Equal(t, s.StoreUID, fresh.StoreUID)
	assert.Empty(t, fresh.CustomerUID)
	assert.False(t, fresh.IsAuthenticated)
	assert.False(t, fresh.IsGuest)
	assert.Nil(t, fresh.CustomerData)
	assert.Nil(t, fresh.Address)
	assert.Empty(t, fresh.PaymentMethod)
	assert.Equal(t, StepAuthentication, fresh.CurrentStep)
}

func TestConfirmIdentity(t *testing.T) {
	r := newReducer(DefaultSessionTTL)
	now := mytime.ExampleTime

	t.Run("rejected while not authenticated", func(t *testing.T) {
		s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "s", StoreUID: "st"}, now)

		next, ok := r.reduce(s, ConfirmIdentity{}, now)
		assert.False(t, ok)
		assert.Equal(t, s, next)
	})

	t.Run("advances past authentication when confirmed", func(t *testing.T) {
		s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "s", StoreUID: "st"}, now)
		s.IsAuthenticated = true
		s.AuthModalVisible = true

		next, ok := r.reduce(s, ConfirmIdentity{}, now)
		assert.True(t, ok)
		assert.Equal(t, StepAddress, next.CurrentStep)
		assert.True(t, next.HasCompleted(StepAuthentication))
		assert.False(t, next.AuthModalVisible)
	})
}

func TestMarkStepCompleteIsIdempotent(t *testing.T) {
	r := newReducer(DefaultSessionTTL)
	now := mytime.ExampleTime

	s := sessionOnStep(r, now, StepAddress)

	once, ok := r.reduce(s, MarkStepComplete{Step: StepAddress}, now)
	assert.True(t, ok)
	twice, ok := r.reduce(once, MarkStepComplete{Step: StepAddress}, now)
	assert.True(t, ok)

	assert.Equal(t, once.CompletedSteps, twice.CompletedSteps)
}

func TestMergeKeepsExistingFields(t *testing.T) {
	r := newReducer(DefaultSessionTTL)
	now := mytime.ExampleTime

	s := sessionOnStep(r, now, StepAddress)
	s, _ = r.reduce(s, SetCustomerData{Data: CustomerData{Name: "Maria", Phone: "+5511999990000"}}, now)

	// when: a partial update arrives
	s, ok := r.reduce(s, SetCustomerData{Data: CustomerData{Email: "maria@example.com"}}, now)

	// then
	assert.True(t, ok)
	assert.Equal(t, "Maria", s.CustomerData.Name)
	assert.Equal(t, "+5511999990000", s.CustomerData.Phone)
	assert.Equal(t, "maria@example.com", s.CustomerData.Email)
}

// sessionOnStep walks a fresh guest session forward until it sits on the
// requested step.
func sessionOnStep(r reducer, now time.Time, target Step) CheckoutSession {
	s, _ := r.reduce(CheckoutSession{}, InitSession{SessionUID: "sess-x", StoreUID: "store-x"}, now)
	if target == StepAuthentication {
		return s
	}
	s, _ = r.reduce(s, SetAuthentication{IsGuest: true, Method: AuthMethodGuest, Customer: CustomerData{Name: "Maria", Phone: "+5511999990000"}}, now)
	for s.CurrentStep != target {
		switch s.CurrentStep {
		case StepCustomerData:
			s, _ = r.reduce(s, SetCustomerData{Data: CustomerData{Email: "maria@example.com"}}, now)
		case StepAddress:
			s, _ = r.reduce(s, SetAddress{Address: Address{PostalCode: "01310-100", Street: "Av Paulista", Number: "1000", District: "Bela Vista", City: "Sao Paulo", State: "SP"}}, now)
		case StepPayment:
			s, _ = r.reduce(s, SetPaymentMethod{Method: "pix"}, now)
		}
		s, _ = r.reduce(s, NextStep{}, now)
	}
	return s
}
