package localkv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"instagen/internal/model"
	"instagen/internal/repository"
)

// Account storage for local mode. Records are keyed by id; a second bucket
// indexes username -> id so logins stay a two-get lookup.
const (
	userBucket     = "users"
	usernameBucket = "users:by-name"
)

// UserStore implements repository.UserRepository over the device store, so
// auth works identically with and without a remote backend.
type UserStore struct {
	kv  *KV
	ids *idGenerator
}

func NewUserStore(kv *KV) (*UserStore, error) {
	err := kv.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(userBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(usernameBucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("init account buckets: %w", err)
	}
	return &UserStore{kv: kv, ids: &idGenerator{}}, nil
}

var _ repository.UserRepository = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = s.ids.next("user")
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	return s.kv.db.Update(func(tx *bolt.Tx) error {
		names := tx.Bucket([]byte(usernameBucket))
		if names.Get([]byte(u.Username)) != nil {
			return model.ErrUsernameExists
		}
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode account: %w", err)
		}
		if err := tx.Bucket([]byte(userBucket)).Put([]byte(u.ID), data); err != nil {
			return err
		}
		return names.Put([]byte(u.Username), []byte(u.ID))
	})
}

func (s *UserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	var u *model.User
	err := s.kv.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(userBucket)).Get([]byte(id))
		if v == nil {
			return model.ErrUserNotFound
		}
		u = &model.User{}
		return json.Unmarshal(v, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var id string
	err := s.kv.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(usernameBucket)).Get([]byte(username))
		if v == nil {
			return model.ErrUserNotFound
		}
		id = string(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	var exists bool
	err := s.kv.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket([]byte(usernameBucket)).Get([]byte(username)) != nil
		return nil
	})
	return exists, err
}
