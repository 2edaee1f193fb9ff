package ordergateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/digimenu/checkoutflow/lib/myerrors"
	"github.com/digimenu/checkoutflow/lib/myhttpclient"
	"github.com/digimenu/checkoutflow/lib/mylog"
	"github.com/digimenu/checkoutflow/lib/mypublisher"
	"github.com/digimenu/checkoutflow/lib/mypubsub"
	"github.com/digimenu/checkoutflow/lib/myqueue"
	"github.com/digimenu/checkoutflow/lib/mystore"
	"github.com/digimenu/checkoutflow/lib/mytime"
	"github.com/digimenu/checkoutflow/lib/myuuid"
	"github.com/digimenu/checkoutflow/services/orderevents"
)

// service turns confirmed checkouts into orders on the downstream order API.
// Delivery is asynchronous: the confirmation event creates a submission
// record and a queued task, the task handler does the actual HTTP call and
// is retried by the queue until it succeeds or runs out of attempts. The
// outcome is announced on the order topic.
type service struct {
	orderAPIURL     string
	submissionStore mystore.Store[OrderSubmission]
	queuer          myqueue.TaskQueuer
	httpSender      myhttpclient.HTTPSender
	pubsub          mypubsub.PubSub
	publisher       mypublisher.Publisher
	nower           mytime.Nower
	uuider          myuuid.UUIDer
	logger          mylog.Logger
}

func newService(orderAPIURL string, submissionStore mystore.Store[OrderSubmission], queuer myqueue.TaskQueuer, httpSender myhttpclient.HTTPSender, pubsub mypubsub.PubSub, publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		orderAPIURL:     orderAPIURL,
		submissionStore: submissionStore,
		queuer:          queuer,
		httpSender:      httpSender,
		pubsub:          pubsub,
		publisher:       publisher,
		nower:           nower,
		uuider:          uuider,
		logger:          logger,
	}
}

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, orderevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", orderevents.TopicName, err)
	}
	return nil
}

// submitOrder is the queued task handler: it pushes one submission to the
// order API. A submission that already went through is acknowledged without
// a second call.
func (s *service) submitOrder(c context.Context, sessionUID string) error {
	submission, found, err := s.submissionStore.Get(c, sessionUID)
	if err != nil {
		return myerrors.NewInternalError(err)
	}
	if !found {
		return myerrors.NewNotFoundError(fmt.Errorf("submission for session %s not found", sessionUID))
	}
	if submission.Status == SubmissionStatusSubmitted {
		s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Order %s was already submitted", submission.OrderUID)
		return nil
	}

	body, err := json.Marshal(submission)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error marshalling submission %s: %s", submission.OrderUID, err))
	}

	now := s.nower.Now()
	status, _, sendErr := s.httpSender.Send(c, http.MethodPost, s.orderAPIURL, body)

	return s.submissionStore.RunInTransaction(c, func(c context.Context) error {
		current, found, err := s.submissionStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found || current.Status == SubmissionStatusSubmitted {
			return nil
		}

		current.Attempts++
		current.LastModified = &now

		if sendErr != nil || status < 200 || status >= 300 {
			current.LastError = fmt.Sprintf("order api returned status %d: %v", status, sendErr)

			taskCount, maxAttempts := s.queuer.IsLastAttempt(c, taskUID(sessionUID))
			outOfAttempts := maxAttempts > 0 && taskCount >= maxAttempts
			if outOfAttempts {
				current.Status = SubmissionStatusFailed
			}

			storeErr := s.submissionStore.Put(c, sessionUID, current)
			if storeErr != nil {
				return myerrors.NewInternalError(storeErr)
			}
			if outOfAttempts {
				s.logger.Log(c, sessionUID, mylog.SeverityError, "Giving up on order %s after %d attempts", current.OrderUID, current.Attempts)
				return s.publisher.Publish(c, orderevents.TopicName, orderevents.OrderSubmissionFailed{
					SessionUID: current.SessionUID,
					StoreUID:   current.StoreUID,
					OrderUID:   current.OrderUID,
					Reason:     current.LastError,
				})
			}
			// Non-nil forces the queue to redeliver the task.
			return myerrors.NewUnavailableError(fmt.Errorf("error submitting order %s: %s", current.OrderUID, current.LastError))
		}

		current.Status = SubmissionStatusSubmitted
		current.LastError = ""
		err = s.submissionStore.Put(c, sessionUID, current)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Submitted order %s for store %s", current.OrderUID, current.StoreUID)
		return s.publisher.Publish(c, orderevents.TopicName, orderevents.OrderSubmitted{
			SessionUID: current.SessionUID,
			StoreUID:   current.StoreUID,
			OrderUID:   current.OrderUID,
		})
	})
}

func (s *service) getSubmission(c context.Context, sessionUID string) (OrderSubmission, error) {
	submission, found, err := s.submissionStore.Get(c, sessionUID)
	if err != nil {
		return OrderSubmission{}, myerrors.NewInternalError(err)
	}
	if !found {
		return OrderSubmission{}, myerrors.NewNotFoundError(fmt.Errorf("submission for session %s not found", sessionUID))
	}
	return submission, nil
}

func taskUID(sessionUID string) string {
	return "order-submit-" + sessionUID
}
