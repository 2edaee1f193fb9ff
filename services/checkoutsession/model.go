package checkoutsession

import (
	"time"
)

type AuthenticationMethod string

const (
	AuthMethodGuest           AuthenticationMethod = "guest"
	AuthMethodPhone           AuthenticationMethod = "phone"
	AuthMethodExistingAccount AuthenticationMethod = "existing_account"
	AuthMethodNewAccount      AuthenticationMethod = "new_account"
)

type CustomerData struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type Address struct {
	PostalCode string `json:"postalCode"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// CheckoutSession is the canonical state of one customer working through the
// checkout of one store. It is mutated exclusively by the reducer and written
// through to storage on every accepted action.
//
// The bearer token is deliberately excluded from the stored record: it lives
// in the token vault under the session uid and is re-attached on load.
type CheckoutSession struct {
	UID                  string               `json:"id"`
	StoreUID             string               `json:"storeId"`
	CustomerUID          string               `json:"customerId,omitempty"`
	AuthToken            string               `json:"-" datastore:"-"`
	IsAuthenticated      bool                 `json:"isAuthenticated"`
	IsGuest              bool                 `json:"isGuest"`
	AuthenticationMethod AuthenticationMethod `json:"authenticationMethod,omitempty"`
	CurrentStep          Step                 `json:"currentStep"`
	CompletedSteps       []Step               `json:"completedSteps"`
	CustomerData         *CustomerData        `json:"customerData,omitempty"`
	Address              *Address             `json:"address,omitempty"`
	PaymentMethod        string               `json:"paymentMethod,omitempty"`
	StartedAt            time.Time            `json:"startedAt"`
	LastActivity         time.Time            `json:"lastActivity"`
	ExpiresAt            time.Time            `json:"expiresAt"`
	AuthModalVisible     bool                 `json:"showAuthModal,omitempty"`
	Loading              bool                 `json:"loading"`
	Error                string               `json:"error,omitempty"`
}

// AuthenticationResolved reports whether the customer has decided how to
// identify: verified account or explicit guest. Both false means "undecided".
func (s CheckoutSession) AuthenticationResolved() bool {
	return s.IsAuthenticated || s.IsGuest
}

func (s CheckoutSession) HasCompleted(step Step) bool {
	for _, done := range s.CompletedSteps {
		if done == step {
			return true
		}
	}
	return false
}

func newSession(uid string, storeUID string, customerUID string, now time.Time, ttl time.Duration) CheckoutSession {
	return CheckoutSession{
		UID:            uid,
		StoreUID:       storeUID,
		CustomerUID:    customerUID,
		CurrentStep:    StepAuthentication,
		CompletedSteps: []Step{},
		StartedAt:      now,
		LastActivity:   now,
		ExpiresAt:      now.Add(ttl),
	}
}

func markCompleted(s CheckoutSession, step Step) CheckoutSession {
	if s.HasCompleted(step) {
		return s
	}
	completed := make([]Step, 0, len(s.CompletedSteps)+1)
	completed = append(completed, s.CompletedSteps...)
	completed = append(completed, step)
	s.CompletedSteps = completed
	return s
}

func mergeCustomerData(existing *CustomerData, update CustomerData) *CustomerData {
	merged := CustomerData{}
	if existing != nil {
		merged = *existing
	}
	if update.Name != "" {
		merged.Name = update.Name
	}
	if update.Phone != "" {
		merged.Phone = update.Phone
	}
	if update.Email != "" {
		merged.Email = update.Email
	}
	return &merged
}

func mergeAddress(existing *Address, update Address) *Address {
	merged := Address{}
	if existing != nil {
		merged = *existing
	}
	if update.PostalCode != "" {
		merged.PostalCode = update.PostalCode
	}
	if update.Street != "" {
		merged.Street = update.Street
	}
	if update.Number != "" {
		merged.Number = update.Number
	}
	if update.Complement != "" {
		merged.Complement = update.Complement
	}
	if update.District != "" {
		merged.District = update.District
	}
	if update.City != "" {
		merged.City = update.City
	}
	if update.State != "" {
		merged.State = update.State
	}
	return &merged
}
