package mystore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type session struct {
	UID   string
	Store string
	Step  string
}

var (
	mySession = session{UID: "123", Store: "store-123", Step: "authentication"}
)

func TestStore(t *testing.T) {
	c := context.TODO()
	ss, cleanup, err := newInMemoryStore[session](c)
	assert.NoError(t, err)
	defer cleanup()

	t.Run("Get not found", func(t *testing.T) {
		_, found, err := ss.Get(c, mySession.UID)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Put", func(t *testing.T) {
		err = ss.Put(c, mySession.UID, mySession)
		assert.NoError(t, err)
	})

	t.Run("Get found", func(t *testing.T) {
		s, found, err := ss.Get(c, mySession.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, mySession, s)
	})

	t.Run("List", func(t *testing.T) {
		all, err := ss.List(c)
		assert.NoError(t, err)
		assert.Equal(t, []session{mySession}, all)
	})

	t.Run("Delete", func(t *testing.T) {
		err := ss.Delete(c, mySession.UID)
		assert.NoError(t, err)

		_, found, err := ss.Get(c, mySession.UID)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Transactional put is visible after commit", func(t *testing.T) {
		err := ss.RunInTransaction(c, func(c context.Context) error {
			return ss.Put(c, mySession.UID, mySession)
		})
		assert.NoError(t, err)

		_, found, err := ss.Get(c, mySession.UID)
		assert.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Transaction error is propagated", func(t *testing.T) {
		err := ss.RunInTransaction(c, func(c context.Context) error {
			return fmt.Errorf("something failed")
		})
		assert.Error(t, err)
	})
}
