/*
Admin-surface identity CRUD (spec §12 supplemented feature): the boundary
the dashboard collaborator uses to manage MQTT identities. Never called
from the decision pipeline itself (spec §4.1). Validation style follows
database-vault/handlers/store.go's defense-in-depth field checks, using
go-playground/validator for the struct-tag rules declared on
identity.NewIdentityRequest. UpdateIdentityRequest carries no validation
tags, and updates are not run through the validator.
*/
package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"gatekeeperd/internal/identity"
)

var adminValidator = validator.New()

// CreateIdentityHandler serves POST /admin/identities.
func (a *API) CreateIdentityHandler(w http.ResponseWriter, r *http.Request) {
	if !EnforcePOST(w, r) {
		return
	}
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}

	var req identity.NewIdentityRequest
	if !parseJSONBody(body, &req, w) {
		return
	}

	if err := adminValidator.Struct(req); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ident, err := a.service.Store().Create(r.Context(), req)
	if err != nil {
		writeStoreError(w, "create identity", err)
		return
	}

	log.Printf("admin: identity created: %s", ident.Username)
	sendJSON(w, http.StatusCreated, ident)
}

// UpdateIdentityHandler serves PUT /admin/identities/{username}.
func (a *API) UpdateIdentityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		sendErrorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	username := usernameFromPath(r.URL.Path, "/admin/identities/")
	if username == "" {
		sendErrorResponse(w, http.StatusBadRequest, "missing username in path")
		return
	}

	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}

	var req identity.UpdateIdentityRequest
	if !parseJSONBody(body, &req, w) {
		return
	}

	ident, err := a.service.Store().Update(r.Context(), username, req)
	if err != nil {
		writeStoreError(w, "update identity", err)
		return
	}

	a.service.InvalidateUsername(username)
	log.Printf("admin: identity updated: %s", username)
	sendJSON(w, http.StatusOK, ident)
}

// DeleteIdentityHandler serves DELETE /admin/identities/{username}.
func (a *API) DeleteIdentityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		sendErrorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	username := usernameFromPath(r.URL.Path, "/admin/identities/")
	if username == "" {
		sendErrorResponse(w, http.StatusBadRequest, "missing username in path")
		return
	}

	if err := a.service.Store().Delete(r.Context(), username); err != nil {
		writeStoreError(w, "delete identity", err)
		return
	}

	a.service.InvalidateUsername(username)
	log.Printf("admin: identity deleted: %s", username)
	sendJSON(w, http.StatusOK, struct {
		Result string `json:"result"`
	}{"ok"})
}

func usernameFromPath(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	var storageErr *identity.StorageError
	if errors.As(err, &storageErr) {
		switch storageErr.Type {
		case identity.ErrorNotFound:
			sendErrorResponse(w, http.StatusNotFound, storageErr.Safe)
		case identity.ErrorAlreadyExists, identity.ErrorConstraintViolation:
			sendErrorResponse(w, http.StatusConflict, storageErr.Safe)
		case identity.ErrorInvalidData:
			sendErrorResponse(w, http.StatusBadRequest, storageErr.Safe)
		default:
			sendErrorResponse(w, http.StatusServiceUnavailable, storageErr.Safe)
		}
		return
	}
	if errors.Is(err, identity.ErrNotFound) {
		sendErrorResponse(w, http.StatusNotFound, "identity not found")
		return
	}
	if errors.Is(err, identity.ErrAlreadyExists) {
		sendErrorResponse(w, http.StatusConflict, "identity already exists")
		return
	}

	log.Printf("admin: %s failed: %v", op, err)
	sendErrorResponse(w, http.StatusInternalServerError, "identity store operation failed")
}
