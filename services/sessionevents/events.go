package sessionevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/digimenu/checkoutflow/lib/myerrors"
	"github.com/digimenu/checkoutflow/lib/myevents"
)

const (
	TopicName                  = "checkoutsession"
	sessionStartedName         = TopicName + ".started"
	authenticationResolvedName = TopicName + ".authenticationResolved"
	stepCompletedName          = TopicName + ".stepCompleted"
	checkoutConfirmedName      = TopicName + ".confirmed"
	sessionExpiredName         = TopicName + ".expired"
)

type CheckoutSessionEventService interface {
	Subscribe(c context.Context) error
	OnSessionStarted(c context.Context, topic string, event SessionStarted) error
	OnAuthenticationResolved(c context.Context, topic string, event AuthenticationResolved) error
	OnStepCompleted(c context.Context, topic string, event StepCompleted) error
	OnCheckoutConfirmed(c context.Context, topic string, event CheckoutConfirmed) error
	OnSessionExpired(c context.Context, topic string, event SessionExpired) error
}

func DispatchEvent(c context.Context, reader io.Reader, service CheckoutSessionEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case sessionStartedName:
		{
			event := SessionStarted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnSessionStarted(c, envelope.Topic, event)
		}
	case authenticationResolvedName:
		{
			event := AuthenticationResolved{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnAuthenticationResolved(c, envelope.Topic, event)
		}
	case stepCompletedName:
		{
			event := StepCompleted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnStepCompleted(c, envelope.Topic, event)
		}
	case checkoutConfirmedName:
		{
			event := CheckoutConfirmed{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCheckoutConfirmed(c, envelope.Topic, event)
		}
	case sessionExpiredName:
		{
			event := SessionExpired{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnSessionExpired(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("%s", envelope.EventTypeName))
	}
}

type SessionStarted struct {
	SessionUID  string
	StoreUID    string
	CustomerUID string
}

func (e SessionStarted) GetEventTypeName() string {
	return sessionStartedName
}

func (e SessionStarted) GetAggregateName() string {
	return e.SessionUID
}

type AuthenticationResolved struct {
	SessionUID           string
	StoreUID             string
	CustomerUID          string
	IsGuest              bool
	AuthenticationMethod string
}

func (e AuthenticationResolved) GetEventTypeName() string {
	return authenticationResolvedName
}

func (e AuthenticationResolved) GetAggregateName() string {
	return e.SessionUID
}

type StepCompleted struct {
	SessionUID string
	StoreUID   string
	Step       string
	NextStep   string
}

func (e StepCompleted) GetEventTypeName() string {
	return stepCompletedName
}

func (e StepCompleted) GetAggregateName() string {
	return e.SessionUID
}

type CheckoutConfirmed struct {
	SessionUID    string
	StoreUID      string
	CustomerUID   string
	IsGuest       bool
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	PostalCode    string
	Street        string
	Number        string
	Complement    string
	District      string
	City          string
	State         string
	PaymentMethod string
}

func (e CheckoutConfirmed) GetEventTypeName() string {
	return checkoutConfirmedName
}

func (e CheckoutConfirmed) GetAggregateName() string {
	return e.SessionUID
}

type SessionExpired struct {
	SessionUID string
	StoreUID   string
	LastStep   string
}

func (e SessionExpired) GetEventTypeName() string {
	return sessionExpiredName
}

func (e SessionExpired) GetAggregateName() string {
	return e.SessionUID
}
