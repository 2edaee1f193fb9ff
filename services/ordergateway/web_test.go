package ordergateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/digimenu/checkoutflow/lib/myevents"
	"github.com/digimenu/checkoutflow/lib/myhttpclient"
	"github.com/digimenu/checkoutflow/lib/mypublisher"
	"github.com/digimenu/checkoutflow/lib/mypubsub"
	"github.com/digimenu/checkoutflow/lib/myqueue"
	"github.com/digimenu/checkoutflow/lib/mystore"
	"github.com/digimenu/checkoutflow/lib/mytime"
	"github.com/digimenu/checkoutflow/lib/myuuid"
	"github.com/digimenu/checkoutflow/services/orderevents"
	"github.com/digimenu/checkoutflow/services/sessionevents"
)

const orderAPIURL = "https://orders.example.com/api/order"

var confirmed = sessionevents.CheckoutConfirmed{
	SessionUID:    "sess-1",
	StoreUID:      "store-1",
	IsGuest:       true,
	CustomerName:  "Maria",
	CustomerPhone: "+5511999990000",
	PostalCode:    "01310-100",
	Street:        "Av Paulista",
	Number:        "1000",
	District:      "Bela Vista",
	City:          "Sao Paulo",
	State:         "SP",
	PaymentMethod: "pix",
}

func TestOrderGateway(t *testing.T) {

	t.Run("Confirmed checkout creates a pending submission", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, router, submissions, _, queuer, uuider, _ := setup(t, ctrl)
		uuider.EXPECT().Create().Return("order-1")
		queuer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
			func(c context.Context, task myqueue.Task) error {
				assert.Equal(t, "order-submit-sess-1", task.UID)
				assert.Equal(t, "/api/order/sess-1/submission", task.WebhookURLPath)
				return nil
			})

		// when
		response := doEventRequest(t, router, confirmed)

		// then
		assert.Equal(t, 200, response.Code)
		submission, found, err := submissions.Get(c, "sess-1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "order-1", submission.OrderUID)
		assert.Equal(t, "store-1", submission.StoreUID)
		assert.Equal(t, SubmissionStatusPending, submission.Status)
		assert.Equal(t, "Maria", submission.CustomerName)
		assert.Equal(t, "pix", submission.PaymentMethod)
	})

	t.Run("Redelivered confirmation is acknowledged without side effects", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, router, submissions, _, _, _, _ := setup(t, ctrl)
		submissions.Put(c, "sess-1", OrderSubmission{OrderUID: "order-1", SessionUID: "sess-1", Status: SubmissionStatusPending})

		// when: no Create and no Enqueue expected
		response := doEventRequest(t, router, confirmed)

		// then
		assert.Equal(t, 200, response.Code)
	})

	t.Run("Submission succeeds downstream", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, router, submissions, httpSender, _, _, publisher := setup(t, ctrl)
		submissions.Put(c, "sess-1", OrderSubmission{OrderUID: "order-1", SessionUID: "sess-1", StoreUID: "store-1", Status: SubmissionStatusPending})
		httpSender.EXPECT().Send(gomock.Any(), http.MethodPost, orderAPIURL, gomock.Any()).Return(200, []byte(`{}`), nil)
		publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, orderevents.OrderSubmitted{
			SessionUID: "sess-1",
			StoreUID:   "store-1",
			OrderUID:   "order-1",
		}).Return(nil)

		// when
		response := doRequest(router, http.MethodPut, "/api/order/sess-1/submission")

		// then
		assert.Equal(t, 200, response.Code)
		submission, _, _ := submissions.Get(c, "sess-1")
		assert.Equal(t, SubmissionStatusSubmitted, submission.Status)
		assert.Equal(t, 1, submission.Attempts)
		assert.Empty(t, submission.LastError)
	})

	t.Run("Already submitted order is not sent twice", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, router, submissions, _, _, _, _ := setup(t, ctrl)
		submissions.Put(c, "sess-1", OrderSubmission{OrderUID: "order-1", SessionUID: "sess-1", Status: SubmissionStatusSubmitted})

		// when: no Send expected
		response := doRequest(router, http.MethodPut, "/api/order/sess-1/submission")

		// then
		assert.Equal(t, 200, response.Code)
	})

	t.Run("Failed submission is retried by the queue", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, router, submissions, httpSender, queuer, _, _ := setup(t, ctrl)
		submissions.Put(c, "sess-1", OrderSubmission{OrderUID: "order-1", SessionUID: "sess-1", Status: SubmissionStatusPending})
		httpSender.EXPECT().Send(gomock.Any(), http.MethodPost, orderAPIURL, gomock.Any()).Return(500, nil, nil)
		queuer.EXPECT().IsLastAttempt(gomock.Any(), "order-submit-sess-1").Return(int32(1), int32(10))

		// when
		response := doRequest(router, http.MethodPut, "/api/order/sess-1/submission")

		// then: non-2xx so the queue redelivers
		assert.Equal(t, 503, response.Code)
		submission, _, _ := submissions.Get(c, "sess-1")
		assert.Equal(t, SubmissionStatusPending, submission.Status)
		assert.Equal(t, 1, submission.Attempts)
		assert.Contains(t, submission.LastError, "500")
	})

	t.Run("Submission gives up on the last attempt", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, router, submissions, httpSender, queuer, _, publisher := setup(t, ctrl)
		submissions.Put(c, "sess-1", OrderSubmission{OrderUID: "order-1", SessionUID: "sess-1", StoreUID: "store-1", Status: SubmissionStatusPending, Attempts: 9})
		httpSender.EXPECT().Send(gomock.Any(), http.MethodPost, orderAPIURL, gomock.Any()).Return(500, nil, nil)
		queuer.EXPECT().IsLastAttempt(gomock.Any(), "order-submit-sess-1").Return(int32(10), int32(10))
		publisher.EXPECT().Publish(gomock.Any(), orderevents.TopicName, gomock.Any()).DoAndReturn(
			func(c context.Context, topic string, event myevents.Event) error {
				failed, ok := event.(orderevents.OrderSubmissionFailed)
				assert.True(t, ok)
				assert.Equal(t, "sess-1", failed.SessionUID)
				assert.Contains(t, failed.Reason, "500")
				return nil
			})

		// when
		response := doRequest(router, http.MethodPut, "/api/order/sess-1/submission")

		// then: acknowledged so the queue stops retrying
		assert.Equal(t, 200, response.Code)
		submission, _, _ := submissions.Get(c, "sess-1")
		assert.Equal(t, SubmissionStatusFailed, submission.Status)
	})

	t.Run("Get submission", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, router, submissions, _, _, _, _ := setup(t, ctrl)
		submissions.Put(c, "sess-1", OrderSubmission{OrderUID: "order-1", SessionUID: "sess-1", Status: SubmissionStatusSubmitted})

		// when
		response := doRequest(router, http.MethodGet, "/api/order/sess-1")

		// then
		assert.Equal(t, 200, response.Code)
		got := OrderSubmission{}
		err := json.Unmarshal(response.Body.Bytes(), &got)
		assert.NoError(t, err)
		assert.Equal(t, "order-1", got.OrderUID)
	})

	t.Run("Get unknown submission", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		_, router, _, _, _, _, _ := setup(t, ctrl)

		// when
		response := doRequest(router, http.MethodGet, "/api/order/missing")

		// then
		assert.Equal(t, 404, response.Code)
	})
}

func doRequest(router *mux.Router, method string, url string) *httptest.ResponseRecorder {
	request, _ := http.NewRequest(method, url, nil)
	request.Host = "localhost:8888"
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func doEventRequest(t *testing.T, router *mux.Router, event sessionevents.CheckoutConfirmed) *httptest.ResponseRecorder {
	payload, err := json.Marshal(event)
	assert.NoError(t, err)
	envelope, err := json.Marshal(myevents.EventEnvelope{
		UID:           "envlp-1",
		Topic:         sessionevents.TopicName,
		AggregateUID:  event.SessionUID,
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  string(payload),
	})
	assert.NoError(t, err)
	pushRequest, err := json.Marshal(myevents.PushRequest{
		Message:      myevents.PushMessage{Data: envelope},
		Subscription: sessionevents.TopicName,
	})
	assert.NoError(t, err)

	request, _ := http.NewRequest(http.MethodPost, "/api/order/event", strings.NewReader(string(pushRequest)))
	request.Host = "localhost:8888"
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, mystore.Store[OrderSubmission], *myhttpclient.MockHTTPSender, *myqueue.MockTaskQueuer, *myuuid.MockUUIDer, *mypublisher.MockPublisher) {
	c := context.TODO()
	submissions, _, err := mystore.NewInMemoryStore[OrderSubmission](c)
	assert.NoError(t, err)
	httpSender := myhttpclient.NewMockHTTPSender(ctrl)
	queuer := myqueue.NewMockTaskQueuer(ctrl)
	pubsub := mypubsub.NewMockPubSub(ctrl)
	publisher := mypublisher.NewMockPublisher(ctrl)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	uuider := myuuid.NewMockUUIDer(ctrl)

	sut := NewWebService(orderAPIURL, submissions, queuer, httpSender, pubsub, publisher, nower, uuider)
	router := mux.NewRouter()

	// Called by RegisterEndpoints()
	publisher.EXPECT().CreateTopic(c, orderevents.TopicName).Return(nil)
	pubsub.EXPECT().Subscribe(c, sessionevents.TopicName, "http://localhost:8080/api/order/event").Return(nil)

	err = sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return c, router, submissions, httpSender, queuer, uuider, publisher
}
