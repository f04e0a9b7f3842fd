package store

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	tdd "github.com/stretchr/testify/assert"

	"go.bryk.io/mediator/internal/xlog"
)

// testDSN mirrors the teacher's pattern of skipping integration tests
// when no live dependency is reachable, here via an explicit env var
// since there is no well-known default Postgres port to probe blindly.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MEDIATOR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MEDIATOR_TEST_POSTGRES_DSN not set, skipping SQL store integration test")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil || db.Ping() != nil {
		t.Skip("configured Postgres instance not reachable")
	}
	_ = db.Close()
	return dsn
}

func TestSQLStoreRebindAndResolve(t *testing.T) {
	dsn := testDSN(t)
	assert := tdd.New(t)

	s, err := Open(dsn, xlog.Discard())
	assert.Nil(err, "open store")
	assert.Nil(s.db.AutoMigrate(&Endpoint{}, &RoutingKey{}, &Agent{}), "migrate schema")

	uid := "test-endpoint-rebind"
	assert.Nil(s.db.Create(&Endpoint{UID: uid, PubSubAddress: "amqp://broker1/x"}).Error)
	defer s.db.Delete(&Endpoint{}, "uid = ?", uid)

	e, err := s.Endpoint(uid)
	assert.Nil(err)
	assert.Equal("amqp://broker1/x", e.PubSubAddress)

	assert.Nil(s.Rebind(uid, "amqp://broker2/x"))
	e, err = s.Endpoint(uid)
	assert.Nil(err)
	assert.Equal("amqp://broker2/x", e.PubSubAddress)
}

func TestSQLStoreRoutingKeysOrdering(t *testing.T) {
	dsn := testDSN(t)
	assert := tdd.New(t)

	s, err := Open(dsn, xlog.Discard())
	assert.Nil(err, "open store")
	assert.Nil(s.db.AutoMigrate(&Endpoint{}, &RoutingKey{}, &Agent{}), "migrate schema")

	uid := "test-endpoint-keys"
	assert.Nil(s.db.Create(&Endpoint{UID: uid}).Error)
	defer s.db.Delete(&Endpoint{}, "uid = ?", uid)
	defer s.db.Delete(&RoutingKey{}, "endpoint_uid = ?", uid)

	assert.Nil(s.db.Create(&RoutingKey{EndpointUID: uid, Key: "K2", Ordinal: 2}).Error)
	assert.Nil(s.db.Create(&RoutingKey{EndpointUID: uid, Key: "K1", Ordinal: 1}).Error)

	keys, err := s.RoutingKeys(uid)
	assert.Nil(err)
	assert.Equal([]string{"K1", "K2"}, keys)
}
