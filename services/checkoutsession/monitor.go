package checkoutsession

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/digimenu/checkoutflow/lib/mylog"
	"github.com/digimenu/checkoutflow/lib/mytime"
)

const defaultExpiryCheckInterval = 60 * time.Second

// ExpiryMonitor periodically sweeps stored sessions and resets those whose
// ttl has lapsed. Sessions still sitting on the authentication step are left
// alone: a reset would be a no-op there.
type ExpiryMonitor struct {
	store    *Store
	expire   func(c context.Context, session CheckoutSession) error
	nower    mytime.Nower
	interval time.Duration
	logger   mylog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewExpiryMonitor(store *Store, nower mytime.Nower, expire func(c context.Context, session CheckoutSession) error) *ExpiryMonitor {
	return &ExpiryMonitor{
		store:    store,
		expire:   expire,
		nower:    nower,
		interval: expiryCheckInterval(),
		logger:   mylog.New("checkoutsession.monitor"),
		stopCh:   make(chan struct{}),
	}
}

func expiryCheckInterval() time.Duration {
	secondsAsString := os.Getenv("EXPIRY_CHECK_SECONDS")
	if secondsAsString != "" {
		seconds, err := strconv.Atoi(secondsAsString)
		if err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultExpiryCheckInterval
}

// Start runs the sweep loop until Stop is called.
func (m *ExpiryMonitor) Start(c context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.sweep(c)
			}
		}
	}()
}

func (m *ExpiryMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

func (m *ExpiryMonitor) sweep(c context.Context) {
	sessions, err := m.store.List(c)
	if err != nil {
		m.logger.Log(c, "", mylog.SeverityWarn, "Error listing sessions during expiry sweep: %s", err)
		return
	}

	now := m.nower.Now()
	for _, session := range sessions {
		if !IsExpired(session, now) {
			continue
		}
		if session.CurrentStep == StepAuthentication {
			continue
		}
		err := m.expire(c, session)
		if err != nil {
			m.logger.Log(c, session.UID, mylog.SeverityWarn, "Error expiring session %s: %s", session.UID, err)
		}
	}
}
