package server

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/keytrace/keytrace/pkg/message"
)

const (
	// Bucket names
	BSESSIONS string = "SESSIONS"
)

type DB struct {
	*bolt.DB
}

func SetupDB(path string) (*DB, error) {
	bdb, err := bolt.Open(fmt.Sprintf("%s.boltdb", path), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open db, %v", err)
	}

	err = bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BSESSIONS))
		if err != nil {
			return fmt.Errorf("could not create sessions bucket: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not set up buckets, %v", err)
	}

	return &DB{bdb}, nil
}

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

/*
DB
- SESSIONS
  - SESSIONID: SESSIONINFO
SESSIONID is auto increment
*/
func (db *DB) AddSession(obj message.SessionInfo) (uint64, error) {
	var id uint64
	err := db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BSESSIONS))

		// newest record will be at the end of table
		id, _ = b.NextSequence()
		obj.Id = id

		buf, err := json.Marshal(obj)
		if err != nil {
			return err
		}

		if err := b.Put(itob(id), buf); err != nil {
			return fmt.Errorf("Failed to put: %v", err)
		}
		return nil
	})

	return id, err
}

func (db *DB) UpdateSessions(sessions map[uint64]message.SessionInfo) error {
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BSESSIONS))

		for id, info := range sessions {
			buf, err := json.Marshal(info)
			if err != nil {
				return err
			}
			if err := b.Put(itob(id), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

// skip: number of records to skip
// n : number of records to get. Set to 0 to get all
// returns a list with the latest session first
func (db *DB) GetSessions(statuses []message.SessionStatus, skip int, n int) ([]message.SessionInfo, error) {
	var sessions []message.SessionInfo

	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BSESSIONS))
		c := b.Cursor()

		count := 0
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n != 0 && count < skip {
				count += 1
				continue
			}

			// stop when we have enough
			if n != 0 && count == (n+skip) {
				break
			}

			info := message.SessionInfo{}
			if err := json.Unmarshal(v, &info); err != nil {
				return err
			}

			for _, status := range statuses {
				if info.Status == status {
					sessions = append(sessions, info)
					count += 1
					break
				}
			}
		}
		return nil
	})
	return sessions, err
}
