package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/jpleclerc/linktrade/pkg/session"
)

// PebbleStore persists terminal trade records so a session's outcome is
// auditable after the connection is gone.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// keys: r:<8-byte big-endian order id>
func kRecord(orderID uint64) []byte {
	key := make([]byte, 2+8)
	copy(key, "r:")
	binary.BigEndian.PutUint64(key[2:], orderID)
	return key
}

// SaveRecord writes the latest terminal record for an order. A reconnect for
// the same order overwrites the previous outcome.
func (s *PebbleStore) SaveRecord(rec session.Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.db.Set(kRecord(rec.OrderID), val, pebble.Sync)
}

func (s *PebbleStore) GetRecord(orderID uint64) (session.Record, bool) {
	val, closer, err := s.db.Get(kRecord(orderID))
	if err != nil {
		return session.Record{}, false
	}
	defer closer.Close()

	var out session.Record
	if err := json.Unmarshal(val, &out); err != nil {
		return session.Record{}, false
	}
	return out, true
}

var _ session.Recorder = (*PebbleStore)(nil)
