package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/digimenu/checkoutflow/lib/myhttpclient"
	"github.com/digimenu/checkoutflow/lib/mypublisher"
	"github.com/digimenu/checkoutflow/lib/mypubsub"
	"github.com/digimenu/checkoutflow/lib/myqueue"
	"github.com/digimenu/checkoutflow/lib/mystore"
	"github.com/digimenu/checkoutflow/lib/mytime"
	"github.com/digimenu/checkoutflow/lib/myuuid"
	"github.com/digimenu/checkoutflow/lib/myvault"
	"github.com/digimenu/checkoutflow/services/checkoutsession"
	"github.com/digimenu/checkoutflow/services/identity"
	"github.com/digimenu/checkoutflow/services/ordergateway"
)

func main() {
	c := context.Background()

	err := godotenv.Load()
	if err != nil {
		log.Printf("No .env file found: %s", err)
	}

	router := mux.NewRouter()
	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	queuer, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating task queue: %s", err)
	}
	defer queueCleanup()

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queuer, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	sessionStore, sessionStoreCleanup, err := mystore.New[checkoutsession.CheckoutSession](c)
	if err != nil {
		log.Fatalf("Error creating session store: %s", err)
	}
	defer sessionStoreCleanup()

	tokenVault, tokenVaultCleanup, err := myvault.New[checkoutsession.SessionToken](c)
	if err != nil {
		log.Fatalf("Error creating token vault: %s", err)
	}
	defer tokenVaultCleanup()

	verifier := identity.NewVerifier(os.Getenv("IDENTITY_JWT_SECRET"), nower)

	sessionService := checkoutsession.NewWebService(sessionStore, tokenVault, verifier, publisher, pubsub, nower, uuider)
	err = sessionService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering checkout session endpoints: %s", err)
	}

	monitor := checkoutsession.NewExpiryMonitor(sessionService.Store(), nower, sessionService.ExpireSession)
	monitor.Start(c)
	defer monitor.Stop()

	submissionStore, submissionStoreCleanup, err := mystore.New[ordergateway.OrderSubmission](c)
	if err != nil {
		log.Fatalf("Error creating submission store: %s", err)
	}
	defer submissionStoreCleanup()

	orderService := ordergateway.NewWebService(os.Getenv("ORDER_API_URL"), submissionStore, queuer, myhttpclient.New(), pubsub, publisher, nower, uuider)
	err = orderService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering order gateway endpoints: %s", err)
	}

	startWebServerBlocking(router)
}

func startWebServerBlocking(router *mux.Router) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
