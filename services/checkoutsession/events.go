package checkoutsession

import (
	"context"
	"fmt"

	"github.com/digimenu/checkoutflow/lib/myhttp"
	"github.com/digimenu/checkoutflow/lib/mylog"
	"github.com/digimenu/checkoutflow/services/orderevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.subscriber.Subscribe(c, orderevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/checkout/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", orderevents.TopicName, err)
	}
	return nil
}

// OnOrderSubmitted clears any delivery error left behind by an earlier
// attempt. An expired or vanished session just logs the rejection.
func (s *service) OnOrderSubmitted(c context.Context, topic string, event orderevents.OrderSubmitted) error {
	s.logger.Log(c, event.SessionUID, mylog.SeverityInfo, "Order %s of session %s was submitted", event.OrderUID, event.SessionUID)

	_, _, err := s.store.Dispatch(c, event.SessionUID, SetError{Message: ""}, nil)
	return err
}

// OnOrderSubmissionFailed surfaces the delivery failure in the session so
// the UI can show it.
func (s *service) OnOrderSubmissionFailed(c context.Context, topic string, event orderevents.OrderSubmissionFailed) error {
	s.logger.Log(c, event.SessionUID, mylog.SeverityWarn, "Order %s of session %s failed: %s", event.OrderUID, event.SessionUID, event.Reason)

	_, _, err := s.store.Dispatch(c, event.SessionUID, SetError{Message: event.Reason}, nil)
	return err
}
