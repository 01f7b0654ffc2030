// Package handlers exposes the shopper session operations over HTTP.
package handlers

import (
	"context"
	"net/http"

	"cartsync/application/shopper"
	"cartsync/pkg/common"
	pkgerrors "cartsync/pkg/errors"
	"cartsync/pkg/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// SessionProvider resolves the engine behind a shopper session ID
type SessionProvider interface {
	Get(ctx context.Context, id string) (*shopper.Session, error)
}

type base struct {
	sessions SessionProvider
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// session returns the request's shopper session or writes an error response
func (b base) session(w http.ResponseWriter, r *http.Request) (*shopper.Session, bool) {
	id, ok := common.GetSessionID(r.Context())
	if !ok {
		b.errors.Handle(w, r, pkgerrors.NewValidationError("missing session id"))
		return nil, false
	}
	s, err := b.sessions.Get(r.Context(), id)
	if err != nil {
		b.errors.Handle(w, r, err)
		return nil, false
	}
	return s, true
}

// decode parses and validates a JSON body or writes an error response
func (b base) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v, maxBodyBytes); err != nil {
		b.errors.Handle(w, r, pkgerrors.NewValidationError("Invalid request body: "+err.Error()))
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		b.errors.Handle(w, r, err)
		return false
	}
	return true
}
