package transport

import (
	"time"

	uuid "github.com/satori/go.uuid"
)

// Service is one service record of a device: the RFCOMM channel the adapter
// serves a service class UUID on.
type Service struct {
	UUID    string `yaml:"uuid" json:"uuid"`
	Channel uint8  `yaml:"channel" json:"channel"`
}

// RFCOMMDialer connects a Bluetooth RFCOMM socket to Device.Address. The
// device must already be bonded.
type RFCOMMDialer struct {
	// Service selects the channel from Device.Services; ServiceUUID when zero.
	Service     uuid.UUID
	ReadTimeout time.Duration
}

func (r RFCOMMDialer) service() uuid.UUID {
	if uuid.Equal(r.Service, uuid.Nil) {
		return ServiceUUID
	}
	return r.Service
}

// channel returns the channel recorded for the dialer's service, falling back
// to Device.Channel and then DefaultChannel.
func (r RFCOMMDialer) channel(d Device) uint8 {
	want := r.service()
	for _, s := range d.Services {
		id, err := uuid.FromString(s.UUID)
		if err == nil && uuid.Equal(id, want) && s.Channel != 0 {
			return s.Channel
		}
	}
	if d.Channel != 0 {
		return d.Channel
	}
	return DefaultChannel
}
