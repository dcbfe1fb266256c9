/*
Broker webhook wire envelopes (spec §6): request shapes the VerneMQ
out-of-process auth plugin posts, and the single verdict-to-JSON envelope
conversion point at the HTTP boundary (spec §9: "model as explicit result
values carrying error-kind, with a single envelope conversion at the HTTP
boundary").
*/
package httpapi

import (
	"encoding/json"
	"fmt"

	"gatekeeperd/internal/decision"
)

// subscribeRejectionQoS is the SUBACK failure code (MQTT v3.1.1 §3.9.3)
// used in place of a granted QoS for a denied subscribe filter.
const subscribeRejectionQoS = 128

type baseRequest struct {
	Mountpoint string `json:"mountpoint"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	PeerAddr   string `json:"peer_addr"`
	PeerPort   int    `json:"peer_port"`
}

type connectRequestWire struct {
	baseRequest
	Password     string `json:"password"`
	CleanSession bool   `json:"clean_session"`
}

type publishRequestWire struct {
	baseRequest
	QoS     int    `json:"qos"`
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
	Retain  bool   `json:"retain"`
}

type subscribeTopicWire struct {
	Topic string `json:"topic"`
	QoS   int    `json:"qos"`
}

type subscribeRequestWire struct {
	baseRequest
	Topics []subscribeTopicWire `json:"topics"`
}

type statusRequestWire struct {
	baseRequest
}

// verdictEnvelope marshals a decision.Verdict into the broker's response
// shape: "ok", {"error": kind}, or an "ok" with a per-topic outcome list.
type verdictEnvelope struct {
	verdict decision.Verdict
}

type subscribeTopicResult struct {
	Topic string `json:"topic"`
	QoS   int    `json:"qos"`
}

func (e verdictEnvelope) MarshalJSON() ([]byte, error) {
	switch e.verdict.Kind {
	case decision.KindAllow:
		return json.Marshal(struct {
			Result string `json:"result"`
		}{Result: "ok"})

	case decision.KindDeny:
		return json.Marshal(struct {
			Result struct {
				Error string `json:"error"`
			} `json:"result"`
		}{Result: struct {
			Error string `json:"error"`
		}{Error: string(e.verdict.Err)}})

	case decision.KindPartialSubscribe:
		topics := make([]subscribeTopicResult, len(e.verdict.Topics))
		for i, t := range e.verdict.Topics {
			qos := t.QoS
			if !t.Allowed {
				qos = subscribeRejectionQoS
			}
			topics[i] = subscribeTopicResult{Topic: t.Topic, QoS: qos}
		}
		return json.Marshal(struct {
			Result string                 `json:"result"`
			Topics []subscribeTopicResult `json:"topics"`
		}{Result: "ok", Topics: topics})

	default:
		return nil, fmt.Errorf("httpapi: unknown verdict kind %d", e.verdict.Kind)
	}
}
