/*
Authorization bridge between an embedded mochi-mqtt broker and the
gatekeeperd HTTP decision endpoints.

Grounded on getmockd-mockd/pkg/mqtt/hooks.go's AuthHook: same
OnConnectAuthenticate/OnACLCheck hook shape, but instead of checking an
in-memory user list it posts the broker webhook JSON bodies to a running
gatekeeperd instance and trusts its verdict, letting the end-to-end test
exercise the real decision pipeline over HTTP exactly as VerneMQ would.
*/
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

// authBridge implements the two mochi-mqtt hooks a broker needs to defer
// authorization to an external decision service.
type authBridge struct {
	mqtt.HookBase
	baseURL string
	client  *http.Client
}

func newAuthBridge(baseURL string) *authBridge {
	return &authBridge{baseURL: baseURL, client: &http.Client{Timeout: 5 * time.Second}}
}

func (h *authBridge) ID() string { return "gatekeeperd-auth-bridge" }

func (h *authBridge) Provides(b byte) bool {
	switch b {
	case mqtt.OnConnectAuthenticate, mqtt.OnACLCheck:
		return true
	default:
		return false
	}
}

type verdictResponse struct {
	Result json.RawMessage `json:"result"`
	Topics []struct {
		Topic string `json:"topic"`
		QoS   int    `json:"qos"`
	} `json:"topics,omitempty"`
}

func (v verdictResponse) allowed() bool {
	return string(v.Result) == `"ok"`
}

func (h *authBridge) post(path string, body interface{}) (verdictResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return verdictResponse{}, err
	}

	resp, err := h.client.Post(h.baseURL+path, "application/json", &buf)
	if err != nil {
		return verdictResponse{}, err
	}
	defer resp.Body.Close()

	var v verdictResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return verdictResponse{}, err
	}
	return v, nil
}

// OnConnectAuthenticate defers CONNECT authorization to /mqtt/auth.
func (h *authBridge) OnConnectAuthenticate(cl *mqtt.Client, pk packets.Packet) bool {
	v, err := h.post("/mqtt/auth", map[string]interface{}{
		"client_id": cl.ID,
		"username":  string(cl.Properties.Username),
		"password":  string(pk.Connect.Password),
	})
	if err != nil {
		return false // fail closed on bridge error
	}
	return v.allowed()
}

// OnACLCheck defers PUBLISH/SUBSCRIBE authorization to /mqtt/publish or
// /mqtt/subscribe, matching the webhook each endpoint serves.
func (h *authBridge) OnACLCheck(cl *mqtt.Client, topic string, write bool) bool {
	username := string(cl.Properties.Username)

	if write {
		v, err := h.post("/mqtt/publish", map[string]interface{}{
			"username": username,
			"topic":    topic,
			"qos":      0,
		})
		if err != nil {
			return false
		}
		return v.allowed()
	}

	v, err := h.post("/mqtt/subscribe", map[string]interface{}{
		"username": username,
		"topics": []map[string]interface{}{
			{"topic": topic, "qos": 0},
		},
	})
	if err != nil || len(v.Topics) == 0 {
		return false
	}
	return v.Topics[0].QoS != 128
}
