package sessionapi

import (
	"fmt"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"

	"github.com/digimenu/checkoutflow/lib/myerrors"
)

// StartSession carries the fields needed to open a new checkout session
// for a store. CustomerUID is set when the browser already holds a
// recognised customer.
type StartSession struct {
	CustomerUID string `form:"customerUid"`
}

type Authentication struct {
	Token       string   `form:"token"`
	IsGuest     bool     `form:"isGuest"`
	Method      string   `form:"method"`
	CustomerUID string   `form:"customerUid"`
	Customer    Customer `form:"customer"`
}

type Customer struct {
	Name  string `form:"name"`
	Phone string `form:"phone"`
	Email string `form:"email"`
}

type Address struct {
	PostalCode string `form:"postalCode"`
	Street     string `form:"street"`
	Number     string `form:"number"`
	Complement string `form:"complement"`
	District   string `form:"district"`
	City       string `form:"city"`
	State      string `form:"state"`
}

type PaymentMethod struct {
	Method string `form:"method"`
}

type Loading struct {
	Loading bool `form:"loading"`
}

type ErrorMessage struct {
	Message string `form:"message"`
}

type AuthModal struct {
	Visible bool `form:"visible"`
}

func NewStartSessionFromRequest(r *http.Request) (StartSession, error) {
	start := StartSession{}
	err := decodeForm(r, &start)
	if err != nil {
		return StartSession{}, err
	}
	return start, nil
}

func NewAuthenticationFromRequest(r *http.Request) (Authentication, error) {
	auth := Authentication{}
	err := decodeForm(r, &auth)
	if err != nil {
		return Authentication{}, err
	}
	err = auth.validate()
	if err != nil {
		return Authentication{}, myerrors.NewInvalidInputError(err)
	}
	return auth, nil
}

func (a Authentication) validate() error {
	if a.IsGuest {
		if a.Customer.Name == "" || a.Customer.Phone == "" {
			return fmt.Errorf("guest authentication requires customer name and phone")
		}
		return nil
	}
	if a.Token == "" {
		return fmt.Errorf("non-guest authentication requires a token")
	}
	return nil
}

func NewCustomerFromRequest(r *http.Request) (Customer, error) {
	customer := Customer{}
	err := decodeForm(r, &customer)
	if err != nil {
		return Customer{}, err
	}
	return customer, nil
}

func NewAddressFromRequest(r *http.Request) (Address, error) {
	address := Address{}
	err := decodeForm(r, &address)
	if err != nil {
		return Address{}, err
	}
	return address, nil
}

func NewPaymentMethodFromRequest(r *http.Request) (PaymentMethod, error) {
	pm := PaymentMethod{}
	err := decodeForm(r, &pm)
	if err != nil {
		return PaymentMethod{}, err
	}
	if pm.Method == "" {
		return PaymentMethod{}, myerrors.NewInvalidInputError(fmt.Errorf("missing payment method"))
	}
	return pm, nil
}

func NewLoadingFromRequest(r *http.Request) (Loading, error) {
	loading := Loading{}
	err := decodeForm(r, &loading)
	if err != nil {
		return Loading{}, err
	}
	return loading, nil
}

func NewErrorMessageFromRequest(r *http.Request) (ErrorMessage, error) {
	errMsg := ErrorMessage{}
	err := decodeForm(r, &errMsg)
	if err != nil {
		return ErrorMessage{}, err
	}
	return errMsg, nil
}

func NewAuthModalFromRequest(r *http.Request) (AuthModal, error) {
	modal := AuthModal{}
	err := decodeForm(r, &modal)
	if err != nil {
		return AuthModal{}, err
	}
	return modal, nil
}

func decodeForm(r *http.Request, target interface{}) error {
	err := r.ParseForm()
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}
	return decodeValues(r.Form, target)
}

func decodeValues(values url.Values, target interface{}) error {
	err := formcodec.NewDecoder().Decode(target, values)
	if err != nil {
		return myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}
	return nil
}

func (a Authentication) ToForm() (url.Values, error) {
	values, err := formcodec.NewEncoder().Encode(a)
	if err != nil {
		return nil, fmt.Errorf("error encoding form: %s", err)
	}
	return values, nil
}

func (a Address) ToForm() (url.Values, error) {
	values, err := formcodec.NewEncoder().Encode(a)
	if err != nil {
		return nil, fmt.Errorf("error encoding form: %s", err)
	}
	return values, nil
}

func (c Customer) ToForm() (url.Values, error) {
	values, err := formcodec.NewEncoder().Encode(c)
	if err != nil {
		return nil, fmt.Errorf("error encoding form: %s", err)
	}
	return values, nil
}
