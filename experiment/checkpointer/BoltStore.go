package checkpointer

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket structure is
//
//	checkpoints > latest > {Record}
var checkpointsBucketName = []byte("checkpoints")

var latestKey = []byte("latest")

// boltStore stores a Record in a bolt database
type boltStore struct {
	db *bolt.DB
}

// NewBoltStore returns a Store that saves a Record in the bolt database
// at path, creating it if needed. The returned Store must be closed.
func NewBoltStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("newboltstore: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(checkpointsBucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("newboltstore: unable to create the "+
			"checkpoints bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Load loads the last saved Record
func (b *boltStore) Load() (Record, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(checkpointsBucketName).Get(latestKey)
		if v == nil {
			return ErrNotFound
		}

		// v is only valid during the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	return decode(data)
}

// Save replaces the saved Record with r
func (b *boltStore) Save(r Record) error {
	data, err := encode(r)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(checkpointsBucketName).Put(latestKey, data)
	})
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (b *boltStore) Close() error {
	return b.db.Close()
}
