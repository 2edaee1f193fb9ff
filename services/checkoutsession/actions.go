package checkoutsession

// Action is the closed set of transitions understood by the reducer. Every
// variant is handled explicitly: adding a new action without teaching the
// reducer about it is a compile-time-visible omission, not a silent default.
type Action interface {
	actionName() string
}

// InitSession creates a fresh session for a store, optionally pre-bound to a
// known customer.
type InitSession struct {
	SessionUID  string
	StoreUID    string
	CustomerUID string
}

// SetJWT stores the bearer credential obtained from the identification
// service. It does not change the current step.
type SetJWT struct {
	Token string
}

// SetAuthentication records the outcome of the identification decision and
// advances past the authentication step.
type SetAuthentication struct {
	CustomerUID string
	Customer    CustomerData
	IsGuest     bool
	Method      AuthenticationMethod
}

type SetCustomerData struct {
	Data CustomerData
}

type SetAddress struct {
	Address Address
}

type SetPaymentMethod struct {
	Method string
}

type GoToStep struct {
	Target Step
}

type NextStep struct{}

type PrevStep struct{}

type MarkStepComplete struct {
	Step Step
}

// SetLoading and SetError are transient UI flags: they do not slide the
// session expiry.
type SetLoading struct {
	Loading bool
}

type SetError struct {
	Message string
}

type ShowAuthModal struct {
	Visible bool
}

// ConfirmIdentity is the already-authenticated customer explicitly accepting
// to continue with the known identity.
type ConfirmIdentity struct{}

// Reset replaces the session with a fresh InitSession-equivalent default.
type Reset struct{}

func (InitSession) actionName() string       { return "init_session" }
func (SetJWT) actionName() string            { return "set_jwt" }
func (SetAuthentication) actionName() string { return "set_authentication" }
func (SetCustomerData) actionName() string   { return "set_customer_data" }
func (SetAddress) actionName() string        { return "set_address" }
func (SetPaymentMethod) actionName() string  { return "set_payment_method" }
func (GoToStep) actionName() string          { return "go_to_step" }
func (NextStep) actionName() string          { return "next_step" }
func (PrevStep) actionName() string          { return "prev_step" }
func (MarkStepComplete) actionName() string  { return "mark_step_complete" }
func (SetLoading) actionName() string        { return "set_loading" }
func (SetError) actionName() string          { return "set_error" }
func (ShowAuthModal) actionName() string     { return "show_auth_modal" }
func (ConfirmIdentity) actionName() string   { return "confirm_identity" }
func (Reset) actionName() string             { return "reset" }
