package myhttp

import (
	"fmt"
	"net/http"
	"os"
)

func HostnameWithScheme(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GuessHostnameWithScheme is used when there is no request at hand to derive
// the hostname from, typically when subscribing to topics at startup.
func GuessHostnameWithScheme() string {
	hostname := os.Getenv("PUBLIC_HOSTNAME")
	if hostname != "" {
		return hostname
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return fmt.Sprintf("http://localhost:%s", port)
}
