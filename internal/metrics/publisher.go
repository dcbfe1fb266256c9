/*
Optional MQTT side-channel metrics publisher, adapted from
entry-hub/mqtt/publisher.go's periodic-publication-with-graceful-shutdown
shape. Spec §9 forbids implicit globals in tests ("construct once at
startup; pass as explicit dependencies"), so this is a constructed
*Publisher rather than entry-hub's package-level client/ticker globals.

Publishing is entirely best-effort: a collector runs fine with no broker
configured, and a broken connection never affects decision evaluation.
*/
package metrics

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher periodically publishes the collector's gauges to a broker
// topic for an external collector (e.g. a metrics-collector deployment)
// to ingest.
type Publisher struct {
	client    mqtt.Client
	collector *Collector
	topic     string
	interval  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewPublisher connects to brokerURL and returns a Publisher, or nil with
// an error if the broker is unreachable. Callers should treat a non-nil
// error as non-fatal: metrics publication is optional.
func NewPublisher(brokerURL, clientID string, collector *Collector) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("metrics publisher: lost connection to broker: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("metrics publisher: connect: %w", token.Error())
	}

	return &Publisher{
		client:    client,
		collector: collector,
		topic:     "metrics/gatekeeperd",
		interval:  2 * time.Minute,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start begins periodic publication in a background goroutine.
func (p *Publisher) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.publishOnce()
			case <-p.stopCh:
				return
			}
		}
	}()
}

type wireMetric struct {
	Service   string  `json:"service"`
	Timestamp int64   `json:"timestamp"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
}

func (p *Publisher) publishOnce() {
	if !p.client.IsConnected() {
		return
	}

	s := p.collector.snapshot()
	ts := time.Now().Unix()

	metrics := []wireMetric{
		{Service: "gatekeeperd", Timestamp: ts, Name: "live_sessions", Value: float64(s.liveSessionsGauge)},
		{Service: "gatekeeperd", Timestamp: ts, Name: "activity_log_dropped_records_total", Value: float64(s.droppedRecordsTotal)},
	}
	for key, count := range s.decisionsTotal {
		metrics = append(metrics, wireMetric{Service: "gatekeeperd", Timestamp: ts, Name: "decisions_total:" + key, Value: float64(count)})
	}

	for _, m := range metrics {
		payload, err := json.Marshal(m)
		if err != nil {
			continue
		}
		token := p.client.Publish(p.topic, 1, false, payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("metrics publisher: timeout publishing %s", m.Name)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("metrics publisher: publish %s failed: %v", m.Name, err)
		}
	}
}

// Shutdown stops periodic publication, publishes a final snapshot, and
// disconnects.
func (p *Publisher) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
		p.publishOnce()
		p.client.Disconnect(5000)
	})
}
