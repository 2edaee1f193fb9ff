package ordergateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/digimenu/checkoutflow/lib/myerrors"
	"github.com/digimenu/checkoutflow/lib/myhttp"
	"github.com/digimenu/checkoutflow/lib/mylog"
	"github.com/digimenu/checkoutflow/lib/myqueue"
	"github.com/digimenu/checkoutflow/services/sessionevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.pubsub.Subscribe(c, sessionevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/order/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", sessionevents.TopicName, err)
	}
	return nil
}

func (s *service) OnSessionStarted(c context.Context, topic string, event sessionevents.SessionStarted) error {
	return nil
}

func (s *service) OnAuthenticationResolved(c context.Context, topic string, event sessionevents.AuthenticationResolved) error {
	return nil
}

func (s *service) OnStepCompleted(c context.Context, topic string, event sessionevents.StepCompleted) error {
	return nil
}

func (s *service) OnSessionExpired(c context.Context, topic string, event sessionevents.SessionExpired) error {
	s.logger.Log(c, event.SessionUID, mylog.SeverityInfo, "Checkout session %s abandoned on step %s", event.SessionUID, event.LastStep)
	return nil
}

// OnCheckoutConfirmed records the confirmed checkout as a pending submission
// and schedules its delivery. Redelivered events map onto the existing
// submission and are acknowledged without side effects.
func (s *service) OnCheckoutConfirmed(c context.Context, topic string, event sessionevents.CheckoutConfirmed) error {
	s.logger.Log(c, event.SessionUID, mylog.SeverityInfo, "Checkout session %s confirmed for store %s", event.SessionUID, event.StoreUID)

	now := s.nower.Now()

	return s.submissionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		_, found, err := s.submissionStore.Get(c, event.SessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if found {
			return nil
		}

		submission := OrderSubmission{
			OrderUID:      s.uuider.Create(),
			SessionUID:    event.SessionUID,
			StoreUID:      event.StoreUID,
			CustomerUID:   event.CustomerUID,
			IsGuest:       event.IsGuest,
			CustomerName:  event.CustomerName,
			CustomerPhone: event.CustomerPhone,
			CustomerEmail: event.CustomerEmail,
			PostalCode:    event.PostalCode,
			Street:        event.Street,
			Number:        event.Number,
			Complement:    event.Complement,
			District:      event.District,
			City:          event.City,
			State:         event.State,
			PaymentMethod: event.PaymentMethod,
			Status:        SubmissionStatusPending,
			CreatedAt:     now,
		}

		err = s.submissionStore.Put(c, event.SessionUID, submission)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		payload, err := json.Marshal(submission)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.queuer.Enqueue(c, myqueue.Task{
			UID:            taskUID(event.SessionUID),
			WebhookURLPath: fmt.Sprintf("/api/order/%s/submission", event.SessionUID),
			Payload:        payload,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error enqueuing submission of order %s: %s", submission.OrderUID, err))
		}

		return nil
	})
}
