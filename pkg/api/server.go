// Atlas
// Copyright (c) 2025 The Atlas Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Atlas.
//
// Atlas is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Atlas is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Atlas.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the library operations as JSON-RPC 2.0 over a
// WebSocket at /api, with plain HTTP POST to the same path for one-shot
// calls. Long-running work reports back through notifications broadcast
// to every connected client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/api/methods"
	apimiddleware "github.com/towerwatchman/atlas/pkg/api/middleware"
	"github.com/towerwatchman/atlas/pkg/api/models"
	"github.com/towerwatchman/atlas/pkg/api/models/requests"
	"github.com/towerwatchman/atlas/pkg/api/validation"
	"github.com/towerwatchman/atlas/pkg/config"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
	"github.com/towerwatchman/atlas/pkg/importer"
	"github.com/towerwatchman/atlas/pkg/refsync"
)

const (
	maxRequestBytes = 4 << 20
	shutdownTimeout = 5 * time.Second
)

var (
	JSONRPCErrorParseError = models.ErrorObject{
		Code:    -32700,
		Message: "Parse error",
	}
	JSONRPCErrorInvalidRequest = models.ErrorObject{
		Code:    -32600,
		Message: "Invalid Request",
	}
	JSONRPCErrorMethodNotFound = models.ErrorObject{
		Code:    -32601,
		Message: "Method not found",
	}
	JSONRPCErrorInvalidParams = models.ErrorObject{
		Code:    -32602,
		Message: "Invalid params",
	}
)

// Application errors use the server-defined range.
const (
	errCodeServer   = -32000
	errCodeNotFound = -32001
	errCodeBusy     = -32002
	errCodeConflict = -32003
)

type methodFunc func(requests.RequestEnv) (any, error)

var methodMap = map[string]methodFunc{
	models.MethodLibraryScan:       methods.HandleLibraryScan,
	models.MethodLibraryScanCancel: methods.HandleLibraryScanCancel,
	models.MethodLibraryImport:     methods.HandleLibraryImport,
	models.MethodReferenceSearch:   methods.HandleReferenceSearch,
	models.MethodReferenceSync:     methods.HandleReferenceSync,
	models.MethodGames:             methods.HandleGames,
	models.MethodGamesGet:          methods.HandleGame,
	models.MethodGamesRemove:       methods.HandleRemoveGame,
	models.MethodGamesUpdate:       methods.HandleUpdateGame,
	models.MethodVersionsUpdate:    methods.HandleUpdateVersion,
	models.MethodMappingsNew:       methods.HandleAddMapping,
	models.MethodVersion:           methods.HandleVersion,
}

// errorObject maps a handler error onto a JSON-RPC error.
func errorObject(err error) models.ErrorObject {
	var ve *validation.Error
	switch {
	case errors.As(err, &ve),
		errors.Is(err, validation.ErrMissingParams),
		errors.Is(err, validation.ErrInvalidParams):
		return models.ErrorObject{Code: JSONRPCErrorInvalidParams.Code, Message: err.Error()}
	case errors.Is(err, database.ErrNotFound):
		return models.ErrorObject{Code: errCodeNotFound, Message: err.Error()}
	case errors.Is(err, database.ErrConflict):
		return models.ErrorObject{Code: errCodeConflict, Message: err.Error()}
	case errors.Is(err, libraryscanner.ErrScanInProgress),
		errors.Is(err, importer.ErrImportInProgress),
		errors.Is(err, refsync.ErrSyncInProgress),
		database.IsRetryable(err):
		return models.ErrorObject{Code: errCodeBusy, Message: err.Error()}
	default:
		return models.ErrorObject{Code: errCodeServer, Message: err.Error()}
	}
}

func marshalError(id models.RPCID, obj models.ErrorObject) []byte {
	data, err := json.Marshal(models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &obj,
	})
	if err != nil {
		log.Error().Err(err).Msg("error marshalling error response")
		return nil
	}
	return data
}

// processRequest runs one JSON-RPC message and returns the encoded reply,
// or nil when the message was a notification and needs none.
func processRequest(env requests.RequestEnv, msg []byte) []byte {
	if !json.Valid(msg) {
		log.Warn().Msg("request is not valid json")
		return marshalError(models.NullRPCID, JSONRPCErrorParseError)
	}

	var req models.RequestObject
	if err := json.Unmarshal(msg, &req); err != nil {
		log.Warn().Err(err).Msg("malformed request")
		return marshalError(models.NullRPCID, JSONRPCErrorInvalidRequest)
	}

	id := models.NullRPCID
	if !req.ID.IsAbsent() {
		id = *req.ID
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		log.Warn().Str("jsonrpc", req.JSONRPC).Str("method", req.Method).Msg("invalid request")
		return marshalError(id, JSONRPCErrorInvalidRequest)
	}

	if req.ID.IsAbsent() {
		log.Debug().Str("method", req.Method).Msg("received notification, ignoring")
		return nil
	}

	fn, ok := methodMap[strings.ToLower(req.Method)]
	if !ok {
		log.Warn().Str("method", req.Method).Msg("unknown method")
		return marshalError(id, JSONRPCErrorMethodNotFound)
	}

	log.Debug().Str("method", req.Method).Str("id", id.String()).Msg("received request")

	ctx, cancel := context.WithTimeout(env.State.GetContext(), config.APIRequestTimeout)
	defer cancel()
	env.Context = ctx
	env.ID = id
	env.Params = req.Params

	result, err := fn(env)
	if err != nil {
		log.Warn().Err(err).Str("method", req.Method).Msg("request failed")
		return marshalError(id, errorObject(err))
	}

	data, err := json.Marshal(models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
	if err != nil {
		log.Error().Err(err).Msg("error marshalling response")
		return marshalError(id, models.ErrorObject{Code: errCodeServer, Message: "error encoding result"})
	}
	return data
}

func handleWSMessage(base requests.RequestEnv) func(*melody.Session, []byte) {
	return func(session *melody.Session, msg []byte) {
		// heartbeat
		if bytes.Equal(msg, []byte("ping")) {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		env := base
		env.IsLocal = apimiddleware.IsLoopbackAddr(session.Request.RemoteAddr)
		resp := processRequest(env, msg)
		if resp == nil {
			return
		}
		if err := session.Write(resp); err != nil {
			log.Error().Err(err).Msg("error sending response")
		}
	}
}

func handlePost(base requests.RequestEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			http.Error(w, "error reading request", http.StatusBadRequest)
			return
		}

		env := base
		env.IsLocal = apimiddleware.IsLoopbackAddr(r.RemoteAddr)
		resp := processRequest(env, body)
		if resp == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(resp); err != nil {
			log.Error().Err(err).Msg("error writing response")
		}
	}
}

func broadcastNotifications(
	ctx context.Context,
	session *melody.Melody,
	notifications <-chan models.Notification,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			data, err := json.Marshal(models.NotificationObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			})
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}
			// a slow client must not hold up draining the channel
			go func() {
				if err := session.Broadcast(data); err != nil && !errors.Is(err, melody.ErrClosed) {
					log.Error().Err(err).Msg("broadcasting notification")
				}
			}()
		}
	}
}

func originAllowed(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// NewRouter builds the HTTP handler and starts broadcasting notifications
// until the state's context is cancelled.
func NewRouter(
	base requests.RequestEnv,
	notifications <-chan models.Notification,
	clock clockwork.Clock,
) http.Handler {
	ctx := base.State.GetContext()

	limiter := apimiddleware.NewIPRateLimiter(clock)
	limiter.StartCleanup(ctx)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(apimiddleware.HTTPRateLimitMiddleware(limiter))

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}
	if origins := base.Config.AllowedOrigins(); len(origins) > 0 {
		corsOpts.AllowedOrigins = origins
	}
	r.Use(cors.Handler(corsOpts))

	session := melody.New()
	session.Config.MaxMessageSize = maxRequestBytes
	session.Upgrader.CheckOrigin = originAllowed(base.Config.AllowedOrigins())
	session.HandleMessage(apimiddleware.WebSocketRateLimitHandler(limiter, handleWSMessage(base)))
	go broadcastNotifications(ctx, session, notifications)
	go func() {
		<-ctx.Done()
		if err := session.Close(); err != nil && !errors.Is(err, melody.ErrClosed) {
			log.Debug().Err(err).Msg("closing websocket sessions")
		}
	}()

	r.Get("/api", func(w http.ResponseWriter, r *http.Request) {
		if err := session.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})
	r.Post("/api", handlePost(base))

	return r
}

// Start serves the API on the configured address until the state's context
// is cancelled.
func Start(
	base requests.RequestEnv,
	notifications <-chan models.Notification,
) error {
	ctx := base.State.GetContext()
	srv := &http.Server{
		Addr:              base.Config.APIListen(),
		Handler:           NewRouter(base, notifications, clockwork.NewRealClock()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown: %w", err)
		}
		log.Info().Msg("API server stopped")
		return nil
	}
}
