package checkoutsession

import (
	"context"
	"fmt"

	"github.com/digimenu/checkoutflow/lib/myerrors"
	"github.com/digimenu/checkoutflow/lib/mylog"
	"github.com/digimenu/checkoutflow/lib/mypublisher"
	"github.com/digimenu/checkoutflow/lib/mypubsub"
	"github.com/digimenu/checkoutflow/lib/mytime"
	"github.com/digimenu/checkoutflow/lib/myuuid"
	"github.com/digimenu/checkoutflow/services/identity"
	"github.com/digimenu/checkoutflow/services/sessionapi"
	"github.com/digimenu/checkoutflow/services/sessionevents"
)

// service is the only surface through which sessions are read or changed.
// Every mutation goes through the store's dispatch so that reducer, guards
// and persistence stay in lockstep; events are published inside the same
// transaction as the state change.
type service struct {
	store      *Store
	verifier   identity.TokenVerifier
	publisher  mypublisher.Publisher
	subscriber mypubsub.PubSub
	nower      mytime.Nower
	uuider     myuuid.UUIDer
	logger     mylog.Logger
}

func newService(store *Store, verifier identity.TokenVerifier, publisher mypublisher.Publisher, subscriber mypubsub.PubSub, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		store:      store,
		verifier:   verifier,
		publisher:  publisher,
		subscriber: subscriber,
		nower:      nower,
		uuider:     uuider,
		logger:     logger,
	}
}

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, sessionevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", sessionevents.TopicName, err)
	}
	return nil
}

func (s *service) startSession(c context.Context, storeUID string, customerUID string) (CheckoutSession, error) {
	sessionUID := s.uuider.Create()
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Start checkout session %s for store %s", sessionUID, storeUID)

	session, _, err := s.store.Dispatch(c, sessionUID, InitSession{
		SessionUID:  sessionUID,
		StoreUID:    storeUID,
		CustomerUID: customerUID,
	}, func(c context.Context, prev CheckoutSession, next CheckoutSession) error {
		return s.publisher.Publish(c, sessionevents.TopicName, sessionevents.SessionStarted{
			SessionUID:  next.UID,
			StoreUID:    next.StoreUID,
			CustomerUID: next.CustomerUID,
		})
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	return session, nil
}

func (s *service) getSession(c context.Context, sessionUID string) (CheckoutSession, error) {
	session, found, err := s.store.Load(c, sessionUID)
	if err != nil {
		return CheckoutSession{}, err
	}
	if !found {
		return CheckoutSession{}, myerrors.NewNotFoundError(fmt.Errorf("checkout session %s not found", sessionUID))
	}
	return session, nil
}

// authenticate resolves the identification decision. A non-guest must carry
// a verifiable bearer token; its claims win over whatever the form says.
func (s *service) authenticate(c context.Context, sessionUID string, auth sessionapi.Authentication) (CheckoutSession, bool, error) {
	action := SetAuthentication{
		IsGuest: auth.IsGuest,
		Method:  AuthenticationMethod(auth.Method),
		Customer: CustomerData{
			Name:  auth.Customer.Name,
			Phone: auth.Customer.Phone,
			Email: auth.Customer.Email,
		},
	}
	if auth.IsGuest {
		action.Method = AuthMethodGuest
	} else {
		id, err := s.verifier.Verify(c, auth.Token)
		if err != nil {
			return CheckoutSession{}, false, err
		}
		action.CustomerUID = id.CustomerUID
		action.Customer = CustomerData{
			Name:  id.Name,
			Phone: id.Phone,
			Email: auth.Customer.Email,
		}

		_, accepted, err := s.store.Dispatch(c, sessionUID, SetJWT{Token: auth.Token}, nil)
		if err != nil {
			return CheckoutSession{}, false, err
		}
		if !accepted {
			return s.getRejected(c, sessionUID)
		}
	}

	return s.store.Dispatch(c, sessionUID, action, func(c context.Context, prev CheckoutSession, next CheckoutSession) error {
		return s.publisher.Publish(c, sessionevents.TopicName, sessionevents.AuthenticationResolved{
			SessionUID:           next.UID,
			StoreUID:             next.StoreUID,
			CustomerUID:          next.CustomerUID,
			IsGuest:              next.IsGuest,
			AuthenticationMethod: string(next.AuthenticationMethod),
		})
	})
}

func (s *service) confirmIdentity(c context.Context, sessionUID string) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, ConfirmIdentity{}, func(c context.Context, prev CheckoutSession, next CheckoutSession) error {
		return s.publisher.Publish(c, sessionevents.TopicName, sessionevents.AuthenticationResolved{
			SessionUID:           next.UID,
			StoreUID:             next.StoreUID,
			CustomerUID:          next.CustomerUID,
			IsGuest:              false,
			AuthenticationMethod: string(next.AuthenticationMethod),
		})
	})
}

func (s *service) setToken(c context.Context, sessionUID string, token string) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, SetJWT{Token: token}, nil)
}

func (s *service) setCustomerData(c context.Context, sessionUID string, customer sessionapi.Customer) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, SetCustomerData{
		Data: CustomerData{
			Name:  customer.Name,
			Phone: customer.Phone,
			Email: customer.Email,
		},
	}, nil)
}

func (s *service) setAddress(c context.Context, sessionUID string, address sessionapi.Address) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, SetAddress{
		Address: Address{
			PostalCode: address.PostalCode,
			Street:     address.Street,
			Number:     address.Number,
			Complement: address.Complement,
			District:   address.District,
			City:       address.City,
			State:      address.State,
		},
	}, nil)
}

func (s *service) setPaymentMethod(c context.Context, sessionUID string, method string) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, SetPaymentMethod{Method: method}, nil)
}

func (s *service) goToStep(c context.Context, sessionUID string, target Step) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, GoToStep{Target: target}, s.publishOnConfirmation)
}

func (s *service) nextStep(c context.Context, sessionUID string) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, NextStep{}, s.publishOnConfirmation)
}

func (s *service) prevStep(c context.Context, sessionUID string) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, PrevStep{}, nil)
}

func (s *service) markStepComplete(c context.Context, sessionUID string, step Step) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, MarkStepComplete{Step: step}, func(c context.Context, prev CheckoutSession, next CheckoutSession) error {
		nextStep, _ := nextStepOf(next)
		return s.publisher.Publish(c, sessionevents.TopicName, sessionevents.StepCompleted{
			SessionUID: next.UID,
			StoreUID:   next.StoreUID,
			Step:       step.String(),
			NextStep:   nextStep.String(),
		})
	})
}

func (s *service) setLoading(c context.Context, sessionUID string, loading bool) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, SetLoading{Loading: loading}, nil)
}

func (s *service) setError(c context.Context, sessionUID string, message string) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, SetError{Message: message}, nil)
}

func (s *service) showAuthModal(c context.Context, sessionUID string, visible bool) (CheckoutSession, bool, error) {
	return s.store.Dispatch(c, sessionUID, ShowAuthModal{Visible: visible}, nil)
}

func (s *service) resetSession(c context.Context, sessionUID string) (CheckoutSession, error) {
	session, _, err := s.store.Dispatch(c, sessionUID, Reset{}, nil)
	return session, err
}

// expireSession is called by the expiry monitor: the stale session is reset
// and the abandonment is announced.
func (s *service) expireSession(c context.Context, stale CheckoutSession) error {
	s.logger.Log(c, stale.UID, mylog.SeverityInfo, "Expire checkout session %s on step %s", stale.UID, stale.CurrentStep)

	_, _, err := s.store.Dispatch(c, stale.UID, Reset{}, func(c context.Context, prev CheckoutSession, next CheckoutSession) error {
		return s.publisher.Publish(c, sessionevents.TopicName, sessionevents.SessionExpired{
			SessionUID: prev.UID,
			StoreUID:   prev.StoreUID,
			LastStep:   prev.CurrentStep.String(),
		})
	})
	return err
}

// publishOnConfirmation emits the confirmed-event exactly when a navigation
// lands on the confirmation step.
func (s *service) publishOnConfirmation(c context.Context, prev CheckoutSession, next CheckoutSession) error {
	if next.CurrentStep != StepConfirmation || prev.CurrentStep == StepConfirmation {
		return nil
	}

	event := sessionevents.CheckoutConfirmed{
		SessionUID:    next.UID,
		StoreUID:      next.StoreUID,
		CustomerUID:   next.CustomerUID,
		IsGuest:       next.IsGuest,
		PaymentMethod: next.PaymentMethod,
	}
	if next.CustomerData != nil {
		event.CustomerName = next.CustomerData.Name
		event.CustomerPhone = next.CustomerData.Phone
		event.CustomerEmail = next.CustomerData.Email
	}
	if next.Address != nil {
		event.PostalCode = next.Address.PostalCode
		event.Street = next.Address.Street
		event.Number = next.Address.Number
		event.Complement = next.Address.Complement
		event.District = next.Address.District
		event.City = next.Address.City
		event.State = next.Address.State
	}
	return s.publisher.Publish(c, sessionevents.TopicName, event)
}

// getRejected fetches the current state after a rejected sub-dispatch so the
// caller still sees what the session looks like.
func (s *service) getRejected(c context.Context, sessionUID string) (CheckoutSession, bool, error) {
	session, err := s.getSession(c, sessionUID)
	if err != nil {
		return CheckoutSession{}, false, err
	}
	return session, false, nil
}
