package checkoutsession

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/digimenu/checkoutflow/lib/myerrors"
	"github.com/digimenu/checkoutflow/lib/mystore"
	"github.com/digimenu/checkoutflow/lib/mytime"
)

func TestDispatch(t *testing.T) {
	t.Run("init creates and persists a session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, store, sessions, nower := setupStore(t, ctrl)
		nower.EXPECT().Now().Return(mytime.ExampleTime)

		// when
		session, accepted, err := store.Dispatch(c, "sess-1", InitSession{SessionUID: "sess-1", StoreUID: "store-1"}, nil)

		// then
		assert.NoError(t, err)
		assert.True(t, accepted)
		assert.Equal(t, StepAuthentication, session.CurrentStep)

		stored, found, err := sessions.Get(c, "sess-1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, session, stored)
	})

	t.Run("dispatch on unknown session fails with 404", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, store, _, _ := setupStore(t, ctrl)

		// when
		_, _, err := store.Dispatch(c, "missing", NextStep{}, nil)

		// then
		assert.Error(t, err)
		assert.Equal(t, 404, myerrors.GetHttpStatus(err))
	})

	t.Run("rejected transition is not persisted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, store, sessions, nower := setupStore(t, ctrl)
		nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)
		initial, _, err := store.Dispatch(c, "sess-1", InitSession{SessionUID: "sess-1", StoreUID: "store-1"}, nil)
		assert.NoError(t, err)

		// when: moving forward is not allowed yet
		session, accepted, err := store.Dispatch(c, "sess-1", NextStep{}, nil)

		// then
		assert.NoError(t, err)
		assert.False(t, accepted)
		assert.Equal(t, initial, session)

		stored, _, _ := sessions.Get(c, "sess-1")
		assert.Equal(t, initial, stored)
	})

	t.Run("token lives in the vault, not in the record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, store, sessions, nower := setupStore(t, ctrl)
		nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
		_, _, err := store.Dispatch(c, "sess-1", InitSession{SessionUID: "sess-1", StoreUID: "store-1"}, nil)
		assert.NoError(t, err)

		// when
		session, accepted, err := store.Dispatch(c, "sess-1", SetJWT{Token: "ey.abc.def"}, nil)

		// then: the dispatched result carries the token
		assert.NoError(t, err)
		assert.True(t, accepted)
		assert.Equal(t, "ey.abc.def", session.AuthToken)

		// and: the stored record does not
		stored, _, _ := sessions.Get(c, "sess-1")
		assert.Empty(t, stored.AuthToken)

		// and: a load re-attaches it
		loaded, found, err := store.Load(c, "sess-1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "ey.abc.def", loaded.AuthToken)
	})

	t.Run("reset clears the vaulted token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, store, _, nower := setupStore(t, ctrl)
		nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
		_, _, err := store.Dispatch(c, "sess-1", InitSession{SessionUID: "sess-1", StoreUID: "store-1"}, nil)
		assert.NoError(t, err)
		_, _, err = store.Dispatch(c, "sess-1", SetJWT{Token: "ey.abc.def"}, nil)
		assert.NoError(t, err)

		// when
		_, _, err = store.Dispatch(c, "sess-1", Reset{}, nil)
		assert.NoError(t, err)

		// then
		loaded, found, err := store.Load(c, "sess-1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, loaded.AuthToken)
	})

	t.Run("onCommit sees previous and next state", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, store, _, nower := setupStore(t, ctrl)
		nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)
		_, _, err := store.Dispatch(c, "sess-1", InitSession{SessionUID: "sess-1", StoreUID: "store-1"}, nil)
		assert.NoError(t, err)

		// when
		var observedPrev, observedNext CheckoutSession
		_, accepted, err := store.Dispatch(c, "sess-1", SetAuthentication{IsGuest: true, Method: AuthMethodGuest, Customer: CustomerData{Name: "Maria", Phone: "1"}},
			func(c context.Context, prev CheckoutSession, next CheckoutSession) error {
				observedPrev = prev
				observedNext = next
				return nil
			})

		// then
		assert.NoError(t, err)
		assert.True(t, accepted)
		assert.Equal(t, StepAuthentication, observedPrev.CurrentStep)
		assert.Equal(t, StepCustomerData, observedNext.CurrentStep)
	})

	t.Run("onCommit error is returned to the caller", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, store, _, nower := setupStore(t, ctrl)
		nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)
		_, _, err := store.Dispatch(c, "sess-1", InitSession{SessionUID: "sess-1", StoreUID: "store-1"}, nil)
		assert.NoError(t, err)

		// when
		_, _, err = store.Dispatch(c, "sess-1", SetAuthentication{IsGuest: true, Method: AuthMethodGuest, Customer: CustomerData{Name: "Maria", Phone: "1"}},
			func(c context.Context, prev CheckoutSession, next CheckoutSession) error {
				return fmt.Errorf("publish failed")
			})

		// then
		assert.ErrorContains(t, err, "publish failed")
	})

	t.Run("onCommit is skipped on rejection", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, store, _, nower := setupStore(t, ctrl)
		nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)
		_, _, err := store.Dispatch(c, "sess-1", InitSession{SessionUID: "sess-1", StoreUID: "store-1"}, nil)
		assert.NoError(t, err)

		// when
		_, accepted, err := store.Dispatch(c, "sess-1", NextStep{},
			func(c context.Context, prev CheckoutSession, next CheckoutSession) error {
				t.Fatal("onCommit must not run for a rejected transition")
				return nil
			})

		// then
		assert.NoError(t, err)
		assert.False(t, accepted)
	})
}

func TestLoad(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		c, store, _, _ := setupStore(t, ctrl)

		_, found, err := store.Load(c, "missing")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("expired session comes back reset", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		c, store, _, nower := setupStore(t, ctrl)
		nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)
		initial, _, err := store.Dispatch(c, "sess-1", InitSession{SessionUID: "sess-1", StoreUID: "store-1"}, nil)
		assert.NoError(t, err)
		_, _, err = store.Dispatch(c, "sess-1", SetAuthentication{IsGuest: true, Method: AuthMethodGuest, Customer: CustomerData{Name: "Maria", Phone: "1"}}, nil)
		assert.NoError(t, err)

		// when: the ttl has long passed
		afterExpiry := initial.ExpiresAt.Add(time.Hour)
		nower.EXPECT().Now().Return(afterExpiry).Times(2)
		loaded, found, err := store.Load(c, "sess-1")

		// then
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "sess-1", loaded.UID)
		assert.Equal(t, "store-1", loaded.StoreUID)
		assert.Equal(t, StepAuthentication, loaded.CurrentStep)
		assert.False(t, loaded.IsGuest)
		assert.False(t, IsExpired(loaded, afterExpiry))
	})
}

// A session written through a serializing backend must come back exactly as
// it went in, minus the bearer token that is kept out of storage.
func TestSessionSurvivesDurableStorage(t *testing.T) {
	c := context.TODO()
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("BOLT_DB_FILE", filepath.Join(t.TempDir(), "sessions.db"))

	sessions, cleanup, err := mystore.New[CheckoutSession](c)
	assert.NoError(t, err)
	defer cleanup()

	now := mytime.ExampleTime
	full := CheckoutSession{
		UID:                  "sess-1",
		StoreUID:             "store-1",
		CustomerUID:          "cust-42",
		AuthToken:            "ey.abc.def",
		IsAuthenticated:      true,
		AuthenticationMethod: AuthMethodExistingAccount,
		CurrentStep:          StepPayment,
		CompletedSteps:       []Step{StepAuthentication, StepAddress},
		CustomerData:         &CustomerData{Name: "Maria", Phone: "+5511999990000", Email: "maria@example.com"},
		Address:              &Address{PostalCode: "01310-100", Street: "Av Paulista", Number: "1000", Complement: "ap 12", District: "Bela Vista", City: "Sao Paulo", State: "SP"},
		PaymentMethod:        "pix",
		StartedAt:            now,
		LastActivity:         now.Add(5 * time.Minute),
		ExpiresAt:            now.Add(35 * time.Minute),
		AuthModalVisible:     true,
		Loading:              true,
		Error:                "order api returned status 500",
	}

	err = sessions.Put(c, full.UID, full)
	assert.NoError(t, err)

	loaded, found, err := sessions.Get(c, full.UID)
	assert.NoError(t, err)
	assert.True(t, found)

	// the token lives in the vault, not in the session record
	assert.Empty(t, loaded.AuthToken)
	full.AuthToken = ""
	assert.Equal(t, full, loaded)
}

func setupStore(t *testing.T, ctrl *gomock.Controller) (context.Context, *Store, mystore.Store[CheckoutSession], *mytime.MockNower) {
	c := context.TODO()
	sessions, _, err := mystore.NewInMemoryStore[CheckoutSession](c)
	assert.NoError(t, err)
	tokens, _, err := mystore.NewInMemoryStore[SessionToken](c)
	assert.NoError(t, err)
	nower := mytime.NewMockNower(ctrl)

	return c, NewStore(sessions, tokens, DefaultSessionTTL, nower), sessions, nower
}
