package mystore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"
)

// boltStore keeps one bucket per entity kind in a single bbolt file.
// Values are stored as JSON.
type boltStore[T any] struct {
	db     *bolt.DB
	bucket []byte
}

func newBoltStore[T any](c context.Context, filename string) (*boltStore[T], func(), error) {
	db, err := bolt.Open(filename, 0600, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening bolt file %s: %s", filename, err)
	}

	bucket := []byte(kindOf[T]())
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("error creating bucket %s: %s", bucket, err)
	}

	return &boltStore[T]{
			db:     db,
			bucket: bucket,
		}, func() {
			db.Close()
		}, nil
}

func kindOf[T any]() string {
	val := new(T)
	kind := fmt.Sprintf("%T", *val)
	if strings.Contains(kind, ".") {
		kind = strings.Split(kind, ".")[1]
	}
	return kind
}

func (s *boltStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		ctx := context.WithValue(c, ctxTransactionKey{}, tx)
		return f(ctx)
	})
}

func (s *boltStore[T]) bucketFrom(c context.Context, tx *bolt.Tx) *bolt.Bucket {
	return tx.Bucket(s.bucket)
}

func (s *boltStore[T]) Put(c context.Context, uid string, value T) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error serializing entity %s with uid %s: %s", s.bucket, uid, err)
	}

	if tx, ok := c.Value(ctxTransactionKey{}).(*bolt.Tx); ok {
		return s.bucketFrom(c, tx).Put([]byte(uid), jsonBytes)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return s.bucketFrom(c, tx).Put([]byte(uid), jsonBytes)
	})
}

func (s *boltStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	value := new(T)
	found := false

	read := func(tx *bolt.Tx) error {
		data := s.bucketFrom(c, tx).Get([]byte(uid))
		if data == nil {
			return nil
		}
		err := json.Unmarshal(data, value)
		if err != nil {
			return fmt.Errorf("error deserializing entity %s with uid %s: %s", s.bucket, uid, err)
		}
		found = true
		return nil
	}

	var err error
	if tx, ok := c.Value(ctxTransactionKey{}).(*bolt.Tx); ok {
		err = read(tx)
	} else {
		err = s.db.View(read)
	}
	if err != nil {
		return *value, false, err
	}

	return *value, found, nil
}

func (s *boltStore[T]) Delete(c context.Context, uid string) error {
	if tx, ok := c.Value(ctxTransactionKey{}).(*bolt.Tx); ok {
		return s.bucketFrom(c, tx).Delete([]byte(uid))
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return s.bucketFrom(c, tx).Delete([]byte(uid))
	})
}

func (s *boltStore[T]) List(c context.Context) ([]T, error) {
	result := []T{}

	read := func(tx *bolt.Tx) error {
		return s.bucketFrom(c, tx).ForEach(func(k, v []byte) error {
			value := new(T)
			err := json.Unmarshal(v, value)
			if err != nil {
				return fmt.Errorf("error deserializing entity %s with uid %s: %s", s.bucket, k, err)
			}
			result = append(result, *value)
			return nil
		})
	}

	var err error
	if tx, ok := c.Value(ctxTransactionKey{}).(*bolt.Tx); ok {
		err = read(tx)
	} else {
		err = s.db.View(read)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *boltStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	return s.List(c)
}
