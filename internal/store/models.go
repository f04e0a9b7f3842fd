// Package store is the SQL source of truth for endpoints, their routing
// keys, and the agents that own them, fronted by a write-through cache
// (Directory) for the hot uid -> pub_sub_address lookup path.
package store

// Endpoint is a logical mailbox owned by an agent. It is created on
// agent onboarding (out of core scope) and mutated afterwards only by
// admin rebind and broker-failover rehoming, both of which touch
// PubSubAddress exclusively.
type Endpoint struct {
	UID           string `gorm:"column:uid;primaryKey"`
	Verkey        string `gorm:"column:verkey"`
	AgentID       string `gorm:"column:agent_id;index"`
	PubSubAddress string `gorm:"column:pub_sub_address"`
	FCMDeviceID   string `gorm:"column:fcm_device_id"`
}

// TableName pins the model to the persisted table name.
func (Endpoint) TableName() string { return "endpoints" }

// RoutingKey is one ordered hop of a forward envelope wrap, scoped to
// the endpoint that requires it.
type RoutingKey struct {
	EndpointUID string `gorm:"column:endpoint_uid;primaryKey"`
	Key         string `gorm:"column:key;primaryKey"`
	Ordinal     int    `gorm:"column:ordinal"`
}

// TableName pins the model to the persisted table name.
func (RoutingKey) TableName() string { return "routing_keys" }

// Agent is the owner of zero or more endpoints. Metadata is kept as a
// raw JSON-encoded column rather than a structured type, since no JSON
// column helper is wired into this module.
type Agent struct {
	ID          string `gorm:"column:id;primaryKey"`
	DID         string `gorm:"column:did"`
	Verkey      string `gorm:"column:verkey"`
	FCMDeviceID string `gorm:"column:fcm_device_id"`
	Metadata    []byte `gorm:"column:metadata"`
}

// TableName pins the model to the persisted table name.
func (Agent) TableName() string { return "agents" }
