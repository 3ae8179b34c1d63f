// Package storage implements the persistent player store on BadgerDB.
// Documents are JSON values keyed by nick, with a secondary index from
// email to nick so both lookups stay unique.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/netchess/netchess/internal/game"
)

// Key prefixes.
const (
	prefixPlayer = "player:"
	prefixEmail  = "email:"
)

// PlayerDoc is the persisted form of a player account.
type PlayerDoc struct {
	Nick         string            `json:"nick"`
	Email        string            `json:"email"`
	PasswordHash string            `json:"password_hash"`
	Elo          map[game.Type]int `json:"elo"`
}

// Store wraps BadgerDB for persistent player storage.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable badger's own logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open player store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// FindByEmail returns the account registered under email, or nil if
// there is none.
func (s *Store) FindByEmail(email string) (*PlayerDoc, error) {
	var doc *PlayerDoc

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixEmail + email))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		nick, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err = txn.Get([]byte(prefixPlayer + string(nick)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			doc = &PlayerDoc{}
			return json.Unmarshal(val, doc)
		})
	})

	return doc, err
}

// ExistsByNick reports whether an account with the nick exists.
func (s *Store) ExistsByNick(nick string) (bool, error) {
	return s.exists(prefixPlayer + nick)
}

// ExistsByEmail reports whether an account with the email exists.
func (s *Store) ExistsByEmail(email string) (bool, error) {
	return s.exists(prefixEmail + email)
}

func (s *Store) exists(key string) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// Insert stores a new account under both its nick and email keys.
func (s *Store) Insert(doc PlayerDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(prefixPlayer+doc.Nick), data); err != nil {
			return err
		}
		return txn.Set([]byte(prefixEmail+doc.Email), []byte(doc.Nick))
	})
}

// UpdateElo persists a new rating for one game type of the account.
func (s *Store) UpdateElo(nick string, gameType game.Type, elo int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixPlayer + nick))
		if err != nil {
			return fmt.Errorf("update elo of %q: %w", nick, err)
		}

		var doc PlayerDoc
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		}); err != nil {
			return err
		}

		if doc.Elo == nil {
			doc.Elo = make(map[game.Type]int)
		}
		doc.Elo[gameType] = elo
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return txn.Set([]byte(prefixPlayer+nick), data)
	})
}
