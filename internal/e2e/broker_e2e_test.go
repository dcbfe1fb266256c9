/*
End-to-end coverage of the three decision endpoints against a real,
embedded MQTT broker (mochi-mqtt/server/v2) speaking real MQTT over a
loopback TCP listener to a real paho client, exactly the shape
getmockd-mockd/tests/integration/mqtt_test.go exercises for its own
mock broker. The broker's OnConnectAuthenticate/OnACLCheck hooks are
wired to an httptest.Server fronting the real decision.Service and
httpapi.API, so a CONNECT/PUBLISH/SUBSCRIBE here travels the full
broker -> webhook -> decision pipeline round trip.
*/
package e2e

import (
	"fmt"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	mqttclient "github.com/eclipse/paho.mqtt.golang"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/require"

	"gatekeeperd/internal/cache"
	"gatekeeperd/internal/decision"
	"gatekeeperd/internal/httpapi"
	"gatekeeperd/internal/identity"
	"gatekeeperd/internal/identity/password"
	"gatekeeperd/internal/tracker"
)

// testHarness bundles a running decision HTTP server and an embedded MQTT
// broker wired to it through authBridge.
type testHarness struct {
	decisionSrv *httptest.Server
	broker      *mqtt.Server
	port        int
}

func newTestHarness(t *testing.T, store identity.Store) *testHarness {
	t.Helper()

	svc := decision.New(
		store,
		cache.New[decision.Verdict](64),
		tracker.New(),
		nil, // no activity log needed for this test
		nil, // no metrics recorder needed for this test
		decision.DefaultConfig(),
	)
	decisionSrv := httptest.NewServer(httpapi.New(svc).Router())

	broker := mqtt.New(nil)
	require.NoError(t, broker.AddHook(newAuthBridge(decisionSrv.URL), nil))

	port := freeTCPPort(t)
	listener := listeners.NewTCP(listeners.Config{ID: "e2e", Address: fmt.Sprintf("127.0.0.1:%d", port)})
	require.NoError(t, broker.AddListener(listener))
	go func() { _ = broker.Serve() }()
	time.Sleep(100 * time.Millisecond)

	h := &testHarness{decisionSrv: decisionSrv, broker: broker, port: port}
	t.Cleanup(func() {
		broker.Close()
		decisionSrv.Close()
	})
	return h
}

func freeTCPPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func (h *testHarness) connect(t *testing.T, clientID, username, password string) (mqttclient.Client, error) {
	t.Helper()
	opts := mqttclient.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://127.0.0.1:%d", h.port))
	opts.SetClientID(clientID)
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(5 * time.Second)

	client := mqttclient.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		t.Fatal("mqtt connect timed out")
	}
	return client, token.Error()
}

func hashedIdentity(t *testing.T, username, plaintext string, opts func(*identity.MqttIdentity)) identity.MqttIdentity {
	t.Helper()
	hash, err := password.Hash(plaintext, password.MinCost)
	require.NoError(t, err)
	ident := identity.MqttIdentity{
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if opts != nil {
		opts(&ident)
	}
	return ident
}

func TestEndToEndConnectAllowsValidCredentials(t *testing.T) {
	store := newMemStore()
	store.put(hashedIdentity(t, "device-1", "s3cret!!", nil))
	h := newTestHarness(t, store)

	client, err := h.connect(t, "device-1-client", "device-1", "s3cret!!")
	require.NoError(t, err)
	defer client.Disconnect(250)
}

func TestEndToEndConnectDeniesBadPassword(t *testing.T) {
	store := newMemStore()
	store.put(hashedIdentity(t, "device-2", "s3cret!!", nil))
	h := newTestHarness(t, store)

	_, err := h.connect(t, "device-2-client", "device-2", "wrong-password")
	require.Error(t, err)
}

func TestEndToEndPublishHonoursACL(t *testing.T) {
	store := newMemStore()
	store.put(hashedIdentity(t, "device-3", "s3cret!!", func(i *identity.MqttIdentity) {
		i.AllowedPublishPatterns = []string{"devices/device-3/telemetry"}
	}))
	h := newTestHarness(t, store)

	client, err := h.connect(t, "device-3-client", "device-3", "s3cret!!")
	require.NoError(t, err)
	defer client.Disconnect(250)

	allowedToken := client.Publish("devices/device-3/telemetry", 0, false, "42")
	require.True(t, allowedToken.WaitTimeout(5*time.Second))
	require.NoError(t, allowedToken.Error())

	deniedToken := client.Publish("devices/other/telemetry", 0, false, "42")
	require.True(t, deniedToken.WaitTimeout(5*time.Second))
}

func TestEndToEndSubscribeRejectsOutsideACL(t *testing.T) {
	store := newMemStore()
	store.put(hashedIdentity(t, "device-4", "s3cret!!", func(i *identity.MqttIdentity) {
		i.AllowedSubscribePatterns = []string{"devices/device-4/commands"}
	}))
	h := newTestHarness(t, store)

	client, err := h.connect(t, "device-4-client", "device-4", "s3cret!!")
	require.NoError(t, err)
	defer client.Disconnect(250)

	allowedToken := client.Subscribe("devices/device-4/commands", 0, nil)
	require.True(t, allowedToken.WaitTimeout(5*time.Second))
	require.NoError(t, allowedToken.Error())

	deniedToken := client.Subscribe("devices/other/commands", 0, nil)
	require.True(t, deniedToken.WaitTimeout(5*time.Second))
	// A rejected filter comes back with the SUBACK failure code 0x80
	// instead of a granted QoS.
	require.Equal(t, byte(0x80), deniedToken.(*mqttclient.SubscribeToken).Result()["devices/other/commands"])
}
