package checkoutsession

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/digimenu/checkoutflow/lib/mycontext"
	"github.com/digimenu/checkoutflow/lib/myhttp"
	"github.com/digimenu/checkoutflow/lib/mylog"
	"github.com/digimenu/checkoutflow/lib/mypublisher"
	"github.com/digimenu/checkoutflow/lib/mypubsub"
	"github.com/digimenu/checkoutflow/lib/mystore"
	"github.com/digimenu/checkoutflow/lib/mytime"
	"github.com/digimenu/checkoutflow/lib/myuuid"
	"github.com/digimenu/checkoutflow/lib/myvault"
	"github.com/digimenu/checkoutflow/services/identity"
	"github.com/digimenu/checkoutflow/services/orderevents"
	"github.com/digimenu/checkoutflow/services/sessionapi"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(sessionStore mystore.Store[CheckoutSession], tokenVault myvault.VaultReadWriter[SessionToken], verifier identity.TokenVerifier, publisher mypublisher.Publisher, subscriber mypubsub.PubSub, nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	logger := mylog.New("checkoutsession")
	store := NewStore(sessionStore, tokenVault, DefaultSessionTTL, nower)

	return &webService{
		logger:  logger,
		service: newService(store, verifier, publisher, subscriber, nower, uuider, logger),
	}
}

// Store exposes the session store so the expiry monitor can sweep it.
func (s *webService) Store() *Store {
	return s.service.store
}

// ExpireSession resets a stale session and announces its abandonment.
func (s *webService) ExpireSession(c context.Context, stale CheckoutSession) error {
	return s.service.expireSession(c, stale)
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/store/{storeUID}/checkout", s.startSessionPage()).Methods("POST")

	router.HandleFunc("/api/checkout/{sessionUID}", s.sessionPage()).Methods("GET")
	router.HandleFunc("/api/checkout/{sessionUID}", s.resetSessionPage()).Methods("DELETE")

	router.HandleFunc("/api/checkout/{sessionUID}/authentication", s.authenticatePage()).Methods("PUT")
	router.HandleFunc("/api/checkout/{sessionUID}/identity/confirmation", s.confirmIdentityPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/{sessionUID}/authmodal", s.authModalPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/{sessionUID}/token", s.tokenPage()).Methods("PUT")

	router.HandleFunc("/api/checkout/{sessionUID}/customerdata", s.customerDataPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/{sessionUID}/address", s.addressPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/{sessionUID}/paymentmethod", s.paymentMethodPage()).Methods("PUT")

	router.HandleFunc("/api/checkout/{sessionUID}/step/next", s.nextStepPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/{sessionUID}/step/previous", s.prevStepPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/{sessionUID}/step/{step}", s.goToStepPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/{sessionUID}/step/{step}/completion", s.markStepCompletePage()).Methods("PUT")

	router.HandleFunc("/api/checkout/{sessionUID}/loading", s.loadingPage()).Methods("PUT")
	router.HandleFunc("/api/checkout/{sessionUID}/error", s.errorPage()).Methods("PUT")

	// Receives order delivery outcomes
	router.HandleFunc("/api/checkout/event", s.handleEventEnvelope()).Methods("POST")

	err := s.service.CreateTopics(c)
	if err != nil {
		return err
	}

	return s.service.Subscribe(c)
}

// sessionView is what every endpoint returns: the session plus the derived
// facts the UI needs to render it.
type sessionView struct {
	Accepted                   bool            `json:"accepted"`
	Session                    CheckoutSession `json:"session"`
	CanGoNext                  bool            `json:"canGoNext"`
	CanGoPrev                  bool            `json:"canGoPrev"`
	IsExpired                  bool            `json:"isExpired"`
	ProgressPercentage         int             `json:"progressPercentage"`
	ShouldPromptAuthentication bool            `json:"shouldPromptAuthentication"`
}

func (s *webService) view(session CheckoutSession, accepted bool) sessionView {
	return sessionView{
		Accepted:                   accepted,
		Session:                    session,
		CanGoNext:                  CanGoNext(session),
		CanGoPrev:                  CanGoPrev(session),
		IsExpired:                  IsExpired(session, s.service.nower.Now()),
		ProgressPercentage:         ProgressPercentage(session),
		ShouldPromptAuthentication: ShouldPromptAuthentication(session),
	}
}

func (s *webService) startSessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		storeUID := mux.Vars(r)["storeUID"]

		start, err := sessionapi.NewStartSessionFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		session, err := s.service.startSession(c, storeUID, start.CustomerUID)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, true))
	}
}

func (s *webService) sessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		session, err := s.service.getSession(c, sessionUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, true))
	}
}

func (s *webService) resetSessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		session, err := s.service.resetSession(c, sessionUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, true))
	}
}

func (s *webService) authenticatePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		auth, err := sessionapi.NewAuthenticationFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		session, accepted, err := s.service.authenticate(c, sessionUID, auth)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) confirmIdentityPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		session, accepted, err := s.service.confirmIdentity(c, sessionUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) authModalPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		modal, err := sessionapi.NewAuthModalFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		session, accepted, err := s.service.showAuthModal(c, sessionUID, modal.Visible)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) tokenPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		auth, err := sessionapi.NewAuthenticationFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		session, accepted, err := s.service.setToken(c, sessionUID, auth.Token)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) customerDataPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		customer, err := sessionapi.NewCustomerFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		session, accepted, err := s.service.setCustomerData(c, sessionUID, customer)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) addressPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		address, err := sessionapi.NewAddressFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		session, accepted, err := s.service.setAddress(c, sessionUID, address)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) paymentMethodPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		pm, err := sessionapi.NewPaymentMethodFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		session, accepted, err := s.service.setPaymentMethod(c, sessionUID, pm.Method)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) nextStepPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		session, accepted, err := s.service.nextStep(c, sessionUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) prevStepPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		session, accepted, err := s.service.prevStep(c, sessionUID)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) goToStepPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]
		step := Step(mux.Vars(r)["step"])

		session, accepted, err := s.service.goToStep(c, sessionUID, step)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) markStepCompletePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]
		step := Step(mux.Vars(r)["step"])

		session, accepted, err := s.service.markStepComplete(c, sessionUID, step)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) loadingPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		loading, err := sessionapi.NewLoadingFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		session, accepted, err := s.service.setLoading(c, sessionUID, loading.Loading)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) errorPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)
		sessionUID := mux.Vars(r)["sessionUID"]

		errMsg, err := sessionapi.NewErrorMessageFromRequest(r)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		session, accepted, err := s.service.setError(c, sessionUID, errMsg.Message)
		if err != nil {
			responseWriter.WriteError(c, w, 2, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, s.view(session, accepted))
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		err := orderevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			responseWriter.WriteError(c, w, 1, err)
			return
		}

		responseWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{Message: "Event processed"})
	}
}
