package store

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// SQLStore is the persistent source of truth backing the directory's
// write-through cache.
type SQLStore struct {
	db  *gorm.DB
	log xlog.Logger
}

// Open establishes a connection to the Postgres instance identified by
// dsn. It neither checks nor performs schema migrations; migrations are
// an external contract.
func Open(dsn string, log xlog.Logger) (*SQLStore, error) {
	if log == nil {
		log = xlog.Discard()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(log, 200*time.Millisecond),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "open SQL store")
	}
	return &SQLStore{db: db, log: log}, nil
}

// Endpoint returns the persisted row for uid, or ErrEndpointUnknown if
// no such row exists.
func (s *SQLStore) Endpoint(uid string) (*Endpoint, error) {
	var e Endpoint
	err := s.db.Where("uid = ?", uid).First(&e).Error
	switch {
	case err == nil:
		return &e, nil
	case gormIsRecordNotFound(err):
		return nil, xerrors.ErrEndpointUnknown
	default:
		return nil, xerrors.Wrap(err, "resolve endpoint")
	}
}

// Rebind atomically persists a new pub_sub_address for uid.
func (s *SQLStore) Rebind(uid, newAddress string) error {
	res := s.db.Model(&Endpoint{}).Where("uid = ?", uid).Update("pub_sub_address", newAddress)
	if res.Error != nil {
		return xerrors.Wrap(res.Error, "rebind endpoint")
	}
	if res.RowsAffected == 0 {
		return xerrors.ErrEndpointUnknown
	}
	return nil
}

// RoutingKeys returns the ordered set of additional hops for uid.
func (s *SQLStore) RoutingKeys(uid string) ([]string, error) {
	var rows []RoutingKey
	err := s.db.Where("endpoint_uid = ?", uid).Order("ordinal asc").Find(&rows).Error
	if err != nil {
		return nil, xerrors.Wrap(err, "load routing keys")
	}
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	return keys, nil
}

func gormIsRecordNotFound(err error) bool {
	return xerrors.Is(err, gorm.ErrRecordNotFound)
}
