package chronicle

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltArchiver stores archived events in a local bbolt file. Events live
// in one bucket keyed by big-endian sequence number; a per-entity index
// bucket keeps entity reads in sequence order for free
type BoltArchiver struct {
	db *bolt.DB
}

var (
	eventsBucket   = []byte("events")
	entitiesBucket = []byte("entities")
)

const boltOpenTimeout = time.Second

// NewBoltArchiver opens (or creates) the archive file at path
func NewBoltArchiver(path string) (*BoltArchiver, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: boltOpenTimeout,
	})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(eventsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(entitiesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltArchiver{db: db}, nil
}

func (a *BoltArchiver) Archive(_ context.Context, evs []*Event) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		events := tx.Bucket(eventsBucket)
		entities := tx.Bucket(entitiesBucket)

		for _, ev := range evs {
			key := sequenceKey(ev.Sequence)
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if err := events.Put(key, data); err != nil {
				return err
			}

			idx, err := entities.CreateBucketIfNotExists([]byte(ev.EntityID))
			if err != nil {
				return err
			}
			if err := idx.Put(key, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *BoltArchiver) Events(_ context.Context, id ID) ([]*Event, error) {
	var out []*Event
	err := a.db.View(func(tx *bolt.Tx) error {
		events := tx.Bucket(eventsBucket)
		idx := tx.Bucket(entitiesBucket).Bucket([]byte(id))
		if idx == nil {
			return nil
		}

		return idx.ForEach(func(k, _ []byte) error {
			ev := &Event{}
			if err := json.Unmarshal(events.Get(k), ev); err != nil {
				return err
			}
			out = append(out, ev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *BoltArchiver) Close() error {
	return a.db.Close()
}

func sequenceKey(seq int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(seq))
	return key
}
