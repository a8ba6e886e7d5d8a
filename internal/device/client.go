// Package device provides clients for reading analog inputs from a Moxa
// ioLogik unit. Two transports are supported: the REST API (HTTP/JSON)
// and SNMP. Both implement the Client interface consumed by the poller.
package device

import "context"

// Client reads analog channel values from a single device.
type Client interface {
	// FetchStatus is a lightweight reachability probe used during the
	// startup handshake. A nil return means the device answered.
	FetchStatus(ctx context.Context) error

	// FetchChannels performs one reading and returns a value per
	// configured channel. Channels missing from the device response are
	// absent from the returned map (partial readings are not an error).
	FetchChannels(ctx context.Context) (map[int]float64, error)
}
