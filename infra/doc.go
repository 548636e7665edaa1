// Package infra contains technical adapters: Postgres storage, the RabbitMQ
// order consumer, MQTT driver notifications, Google Maps routing, the Stuart
// courier client and metrics exporters. These packages should depend only on
// the interfaces defined in the core packages.
package infra
