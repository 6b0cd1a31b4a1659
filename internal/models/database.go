package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ConsentKey is the storage key of the legal-acceptance flag
const ConsentKey = "vortex_legal_accepted"

// Consent is the persisted legal-acceptance flag
type Consent struct {
	Key        string `boltholdKey:"Key"`
	Accepted   bool
	AcceptedAt time.Time
}

// Database wraps the bolthold store holding client-local state
type Database struct {
	store *bolthold.Store
}

// NewDatabase opens the local store
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// HasAcceptedConsent reports whether the legal notice was accepted
func (db *Database) HasAcceptedConsent() (bool, error) {
	var consent Consent
	err := db.store.Get(ConsentKey, &consent)
	if errors.Is(err, bolthold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return consent.Accepted, nil
}

// AcceptConsent records the acceptance
func (db *Database) AcceptConsent() error {
	consent := &Consent{
		Key:        ConsentKey,
		Accepted:   true,
		AcceptedAt: time.Now(),
	}
	return db.store.Upsert(ConsentKey, consent)
}
