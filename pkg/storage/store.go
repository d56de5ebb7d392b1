package storage

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var bucketAssignments = []byte("assignments")

// Store is a bbolt-backed journal of container assignments. Each entry
// maps a container id to the endpoint it was created on, written when a
// container registers and deleted when it is torn down. A later process
// can read the journal to remove containers a crashed run left behind.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the journal at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAssignments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create assignments bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record journals that containerID lives on endpoint.
func (s *Store) Record(containerID, endpoint string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssignments).Put([]byte(containerID), []byte(endpoint))
	})
}

// Forget removes the journal entry for containerID. Forgetting an
// unknown id is not an error.
func (s *Store) Forget(containerID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssignments).Delete([]byte(containerID))
	})
}

// List returns every journaled assignment as containerID -> endpoint.
func (s *Store) List() (map[string]string, error) {
	assignments := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssignments).ForEach(func(k, v []byte) error {
			assignments[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return assignments, nil
}
