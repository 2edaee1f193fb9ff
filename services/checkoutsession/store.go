package checkoutsession

import (
	"context"
	"fmt"
	"time"

	"github.com/digimenu/checkoutflow/lib/myerrors"
	"github.com/digimenu/checkoutflow/lib/mylog"
	"github.com/digimenu/checkoutflow/lib/mystore"
	"github.com/digimenu/checkoutflow/lib/mytime"
	"github.com/digimenu/checkoutflow/lib/myvault"
)

// SessionToken is the vaulted companion of a session: the bearer credential
// is stored under the session uid, separate from the session record itself.
type SessionToken struct {
	SessionUID string
	Bearer     string
	SavedAt    time.Time
}

// Store owns the canonical session state: it feeds actions through the
// reducer and writes the outcome through to durable storage. All reads and
// writes of a session go through here.
type Store struct {
	sessions mystore.Store[CheckoutSession]
	tokens   myvault.VaultReadWriter[SessionToken]
	reducer  reducer
	nower    mytime.Nower
	logger   mylog.Logger
}

func NewStore(sessions mystore.Store[CheckoutSession], tokens myvault.VaultReadWriter[SessionToken], ttl time.Duration, nower mytime.Nower) *Store {
	return &Store{
		sessions: sessions,
		tokens:   tokens,
		reducer:  newReducer(ttl),
		nower:    nower,
		logger:   mylog.New("checkoutsession.store"),
	}
}

// Dispatch applies one action to the identified session inside a storage
// transaction. A guard rejection is not an error: the current state is
// returned with accepted == false and nothing is written. The optional
// onCommit hook runs inside the same transaction, after the new state has
// been stored, so that event publication and state change commit together.
func (st *Store) Dispatch(c context.Context, uid string, action Action, onCommit func(c context.Context, prev CheckoutSession, next CheckoutSession) error) (CheckoutSession, bool, error) {
	var result CheckoutSession
	var accepted bool

	err := st.sessions.RunInTransaction(c, func(c context.Context) error {
		current, found, err := st.sessions.Get(c, uid)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			if _, isInit := action.(InitSession); !isInit {
				return myerrors.NewNotFoundError(fmt.Errorf("checkout session %s not found", uid))
			}
		} else {
			current = st.attachToken(c, current)
		}

		now := st.nower.Now()
		next, ok := st.reducer.reduce(current, action, now)
		result = next
		accepted = ok
		if !ok {
			st.logger.Log(c, uid, mylog.SeverityWarn, "Rejected %s in step %s", action.actionName(), current.CurrentStep)
			return nil
		}

		err = st.sessions.Put(c, uid, next)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing session %s: %s", uid, err))
		}

		st.persistToken(c, uid, action, now)

		if onCommit != nil {
			return onCommit(c, current, next)
		}
		return nil
	})
	if err != nil {
		return CheckoutSession{}, false, err
	}

	return result, accepted, nil
}

// Load returns the canonical session. A stored session that has expired is
// not recovered: it is reset in place and the fresh session is returned.
func (st *Store) Load(c context.Context, uid string) (CheckoutSession, bool, error) {
	current, found, err := st.sessions.Get(c, uid)
	if err != nil {
		return CheckoutSession{}, false, myerrors.NewInternalError(err)
	}
	if !found {
		return CheckoutSession{}, false, nil
	}

	if IsExpired(current, st.nower.Now()) {
		st.logger.Log(c, uid, mylog.SeverityInfo, "Discarding expired session %s", uid)
		fresh, _, err := st.Dispatch(c, uid, Reset{}, nil)
		if err != nil {
			return CheckoutSession{}, false, err
		}
		return fresh, true, nil
	}

	return st.attachToken(c, current), true, nil
}

// List returns all stored sessions; used by the expiry monitor.
func (st *Store) List(c context.Context) ([]CheckoutSession, error) {
	sessions, err := st.sessions.List(c)
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}
	return sessions, nil
}

// attachToken re-joins the vaulted bearer credential with the session. A
// vault failure is logged and tolerated: the token is re-obtainable, the
// session is not.
func (st *Store) attachToken(c context.Context, s CheckoutSession) CheckoutSession {
	token, found, err := st.tokens.Get(c, s.UID)
	if err != nil {
		st.logger.Log(c, s.UID, mylog.SeverityWarn, "Error reading token for session %s: %s", s.UID, err)
		return s
	}
	if found {
		s.AuthToken = token.Bearer
	}
	return s
}

// persistToken writes or clears the vaulted credential for actions that
// change it. Vault failures are logged but do not fail the dispatch.
func (st *Store) persistToken(c context.Context, uid string, action Action, now time.Time) {
	switch a := action.(type) {
	case SetJWT:
		err := st.tokens.Put(c, uid, SessionToken{
			SessionUID: uid,
			Bearer:     a.Token,
			SavedAt:    now,
		})
		if err != nil {
			st.logger.Log(c, uid, mylog.SeverityWarn, "Error storing token for session %s: %s", uid, err)
		}
	case Reset, InitSession:
		err := st.tokens.Delete(c, uid)
		if err != nil {
			st.logger.Log(c, uid, mylog.SeverityWarn, "Error clearing token for session %s: %s", uid, err)
		}
	}
}
