package ordergateway

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/digimenu/checkoutflow/lib/mycontext"
	"github.com/digimenu/checkoutflow/lib/myhttp"
	"github.com/digimenu/checkoutflow/lib/myhttpclient"
	"github.com/digimenu/checkoutflow/lib/mylog"
	"github.com/digimenu/checkoutflow/lib/mypublisher"
	"github.com/digimenu/checkoutflow/lib/mypubsub"
	"github.com/digimenu/checkoutflow/lib/myqueue"
	"github.com/digimenu/checkoutflow/lib/mystore"
	"github.com/digimenu/checkoutflow/lib/mytime"
	"github.com/digimenu/checkoutflow/lib/myuuid"
	"github.com/digimenu/checkoutflow/services/sessionevents"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(orderAPIURL string, submissionStore mystore.Store[OrderSubmission], queuer myqueue.TaskQueuer, httpSender myhttpclient.HTTPSender, pubsub mypubsub.PubSub, publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	logger := mylog.New("ordergateway")
	return &webService{
		logger:  logger,
		service: newService(orderAPIURL, submissionStore, queuer, httpSender, pubsub, publisher, nower, uuider, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/order/{sessionUID}", s.submissionPage()).Methods("GET")

	// Called by the task queue to deliver one submission downstream
	router.HandleFunc("/api/order/{sessionUID}/submission", s.submitOrderPage()).Methods("PUT")

	// Receives session events
	router.HandleFunc("/api/order/event", s.handleEventEnvelope()).Methods("POST")

	err := s.service.CreateTopics(c)
	if err != nil {
		return err
	}

	return s.service.Subscribe(c)
}

func (s *webService) submissionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		submission, err := s.service.getSubmission(c, sessionUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, submission)
	}
}

func (s *webService) submitOrderPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		err := s.service.submitOrder(c, sessionUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{Message: "Order submitted"})
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		err := sessionevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{Message: "Event processed"})
	}
}
