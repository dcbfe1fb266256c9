/*
Decision endpoint handlers: the broker webhook surface (spec §4.6, §6).

Each handler follows the same shape as entry-hub's RegisterHandler:
enforce method, read body, parse JSON, delegate to the decision service,
respond. The decision package already owns cache probe, evaluate,
populate, and activity-log submit internally (spec §4.6 steps 2-5); these
handlers are pure translation between broker JSON and decision.Service
calls.
*/
package httpapi

import (
	"net/http"

	"gatekeeperd/internal/decision"
)

// ConnectHandler serves /mqtt/auth (auth_on_register).
func (a *API) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	if !EnforcePOST(w, r) {
		return
	}
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}

	var req connectRequestWire
	if !parseJSONBody(body, &req, w) {
		return
	}

	v := a.service.Connect(r.Context(), decision.ConnectRequest{
		ClientID:     req.ClientID,
		Username:     req.Username,
		Password:     req.Password,
		PeerAddr:     req.PeerAddr,
		CleanSession: req.CleanSession,
		Mountpoint:   req.Mountpoint,
	})

	sendJSON(w, http.StatusOK, verdictEnvelope{v})
}

// PublishHandler serves /mqtt/publish (auth_on_publish).
func (a *API) PublishHandler(w http.ResponseWriter, r *http.Request) {
	if !EnforcePOST(w, r) {
		return
	}
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}

	var req publishRequestWire
	if !parseJSONBody(body, &req, w) {
		return
	}

	v := a.service.Publish(r.Context(), decision.PublishRequest{
		Username: req.Username,
		Topic:    req.Topic,
		QoS:      req.QoS,
		Retain:   req.Retain,
	})

	sendJSON(w, http.StatusOK, verdictEnvelope{v})
}

// SubscribeHandler serves /mqtt/subscribe (auth_on_subscribe).
func (a *API) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	if !EnforcePOST(w, r) {
		return
	}
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}

	var req subscribeRequestWire
	if !parseJSONBody(body, &req, w) {
		return
	}

	filters := make([]decision.SubscribeFilter, len(req.Topics))
	for i, t := range req.Topics {
		filters[i] = decision.SubscribeFilter{Topic: t.Topic, QoS: t.QoS}
	}

	v := a.service.Subscribe(r.Context(), decision.SubscribeRequest{
		Username: req.Username,
		Filters:  filters,
	})

	sendJSON(w, http.StatusOK, verdictEnvelope{v})
}
