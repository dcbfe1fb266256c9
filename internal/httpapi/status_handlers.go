package httpapi

import (
	"net/http"

	"gatekeeperd/internal/decision"
)

// OfflineHandler serves /mqtt/offline.
func (a *API) OfflineHandler(w http.ResponseWriter, r *http.Request) {
	if !EnforcePOST(w, r) {
		return
	}
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}

	var req statusRequestWire
	if !parseJSONBody(body, &req, w) {
		return
	}

	a.service.Offline(r.Context(), decision.StatusRequest{
		ClientID: req.ClientID,
		Username: req.Username,
		PeerAddr: req.PeerAddr,
	})

	sendJSON(w, http.StatusOK, struct {
		Result string `json:"result"`
	}{"ok"})
}

// WakeupHandler serves /mqtt/wakeup.
func (a *API) WakeupHandler(w http.ResponseWriter, r *http.Request) {
	if !EnforcePOST(w, r) {
		return
	}
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}

	var req statusRequestWire
	if !parseJSONBody(body, &req, w) {
		return
	}

	a.service.Wakeup(r.Context(), decision.StatusRequest{
		ClientID: req.ClientID,
		Username: req.Username,
		PeerAddr: req.PeerAddr,
	})

	sendJSON(w, http.StatusOK, struct {
		Result string `json:"result"`
	}{"ok"})
}
