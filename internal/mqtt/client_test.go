package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"obdmeter/internal/obd"
	"obdmeter/internal/transport"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct{ mqtt.Token }

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// recordingClient implements only what Client uses.
type recordingClient struct {
	mqtt.Client
	mu   sync.Mutex
	sent []message
}

func (r *recordingClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, message{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func TestRunPublishesSnapshotsAndStatus(t *testing.T) {
	rec := &recordingClient{}
	c := NewClient(Config{Topic: "car/obd"})
	c.client = rec

	snapshots := make(chan obd.Snapshot, 1)
	statuses := make(chan transport.Status, 1)
	snapshots <- obd.Snapshot{Cycle: 7, OilTemp: 90, EngineSpeed: 2960, Torque: 38}
	statuses <- transport.Status{State: transport.StateConnected, Device: transport.Device{Name: "OBDII"}}
	close(snapshots)
	close(statuses)

	c.Run(context.Background(), snapshots, statuses)

	if len(rec.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(rec.sent))
	}
	for _, m := range rec.sent {
		switch m.topic {
		case "car/obd":
			var s obd.Snapshot
			if err := json.Unmarshal(m.payload, &s); err != nil {
				t.Fatal(err)
			}
			if s.Cycle != 7 || s.OilTemp != 90 || s.EngineSpeed != 2960 {
				t.Errorf("snapshot payload = %s", m.payload)
			}
		case "car/obd/status":
			if !m.retained || m.qos != 1 {
				t.Errorf("status published with qos=%d retained=%v", m.qos, m.retained)
			}
			var st map[string]any
			if err := json.Unmarshal(m.payload, &st); err != nil {
				t.Fatal(err)
			}
			if st["state"] != "connected" || st["device"] != "OBDII" {
				t.Errorf("status payload = %s", m.payload)
			}
		default:
			t.Errorf("unexpected topic %q", m.topic)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	c := NewClient(Config{})
	if c.config.Broker != DefaultBroker || c.config.Topic != DefaultTopic || c.config.ClientID != DefaultClientID {
		t.Errorf("defaults = %+v", c.config)
	}
}
