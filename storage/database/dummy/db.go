package dummydb

import (
	"sync"

	"github.com/wakahia/baraza/core/chat"
	"github.com/wakahia/baraza/core/profile"
)

type (
	DB struct {
		profile *profileTable
		message *messageTable
	}

	profileTable struct {
		sync.RWMutex
		table map[string]*profile.Profile
	}

	messageTable struct {
		sync.RWMutex
		table []*chat.Message
	}
)

func Open() (*DB, error) {
	db := &DB{
		profile: &profileTable{table: make(map[string]*profile.Profile)},
		message: &messageTable{},
	}
	return db, nil
}
