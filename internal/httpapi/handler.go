// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/logging"
	"github.com/holomush/accountd/internal/observability"
	"github.com/holomush/accountd/internal/session"
	"github.com/holomush/accountd/pkg/errutil"
)

// DefaultCookieName is the session cookie name used when none is configured.
const DefaultCookieName = "ACCOUNTD_SESSION"

// RequestIDHeader carries the request id back to the client.
const RequestIDHeader = "X-Request-Id"

const tracerName = "github.com/holomush/accountd/internal/httpapi"

// Options configures a Handler.
type Options struct {
	Service  *account.Service
	Sessions *session.Manager
	// Metrics may be nil.
	Metrics *observability.Metrics
	// Logger defaults to discard.
	Logger       *slog.Logger
	CookieName   string
	SecureCookie bool
}

// Handler serves the account API.
type Handler struct {
	svc          *account.Service
	sessions     *session.Manager
	metrics      *observability.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
	cookieName   string
	secureCookie bool
	router       *httprouter.Router
}

// New creates a Handler with all routes registered.
func New(opts Options) (*Handler, error) {
	if opts.Service == nil {
		return nil, oops.Errorf("account service is required")
	}
	if opts.Sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}

	h := &Handler{
		svc:          opts.Service,
		sessions:     opts.Sessions,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		tracer:       otel.Tracer(tracerName),
		cookieName:   opts.CookieName,
		secureCookie: opts.SecureCookie,
		router:       httprouter.New(),
	}

	h.router.POST("/api/accounts/register", h.route("register", h.register))
	h.router.POST("/api/accounts/login", h.route("login", h.login))
	h.router.POST("/api/accounts/logout", h.route("logout", h.logout))
	h.router.GET("/api/accounts/current", h.route("current", h.current))
	h.router.GET("/api/accounts/search", h.route("search", h.search))
	h.router.POST("/api/accounts/delete", h.route("delete", h.delete))

	h.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Envelope{Code: "ROUTE_NOT_FOUND", Message: http.StatusText(http.StatusNotFound)})
	})
	h.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		err := oops.Code(CodeInternal).Errorf("panic: %v", v)
		errutil.LogErrorContext(r.Context(), h.logger, slog.LevelError, "request panicked", err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope(err, http.StatusInternalServerError))
	}
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// action is a route body. The returned value becomes the envelope data.
type action func(ctx context.Context, r *http.Request, sess *session.Session) (any, error)

// route wraps fn with tracing, the request id, session load/save, the
// response envelope, logging and metrics.
func (h *Handler) route(name string, fn action) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		start := time.Now()
		requestID := ulid.Make().String()

		ctx := logging.WithRequestID(r.Context(), requestID)
		ctx, span := h.tracer.Start(ctx, "accounts."+name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.route", name),
				attribute.String("request.id", requestID),
			))
		defer span.End()

		w.Header().Set(RequestIDHeader, requestID)

		status, env, err := h.serve(ctx, w, r.WithContext(ctx), fn)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, env.Code)
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			errutil.LogErrorContext(ctx, h.logger, level, "request failed", err)
		}
		span.SetAttributes(attribute.Int("http.status_code", status))

		writeJSON(w, status, env)

		if h.metrics != nil {
			h.metrics.ObserveRequest(name, status, time.Since(start))
			switch name {
			case "login":
				h.metrics.RecordLogin(outcome(status))
			case "register":
				h.metrics.RecordRegistration(outcome(status))
			}
		}
	}
}

func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request, fn action) (int, Envelope, error) {
	var token string
	if c, err := r.Cookie(h.cookieName); err == nil {
		token = c.Value
	}

	sess, err := h.sessions.Load(ctx, token)
	if err != nil {
		return h.failure(err)
	}

	data, actionErr := fn(ctx, r, sess)

	// The session is saved even when the action fails; CurrentAccount drops
	// stale login state on its failure path.
	newToken, expiresAt, err := h.sessions.Save(ctx, sess)
	if err != nil {
		return h.failure(err)
	}
	switch {
	case newToken != "":
		h.setCookie(w, newToken, expiresAt)
	case token != "":
		h.clearCookie(w)
	}

	if actionErr != nil {
		return h.failure(actionErr)
	}
	return http.StatusOK, Envelope{Code: CodeOK, Data: data}, nil
}

func (h *Handler) failure(err error) (int, Envelope, error) {
	status := StatusFor(err)
	return status, errorEnvelope(err, status), err
}

func (h *Handler) setCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func outcome(status int) string {
	switch {
	case status < http.StatusBadRequest:
		return observability.OutcomeSuccess
	case status < http.StatusInternalServerError:
		return observability.OutcomeRejected
	default:
		return observability.OutcomeError
	}
}

type registerRequest struct {
	AccountName     string `json:"accountName"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	GroupCode       string `json:"groupCode"`
}

func (h *Handler) register(ctx context.Context, r *http.Request, _ *session.Session) (any, error) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return h.svc.Register(ctx, req.AccountName, req.Password, req.ConfirmPassword, req.GroupCode)
}

type loginRequest struct {
	AccountName string `json:"accountName"`
	Password    string `json:"password"`
}

func (h *Handler) login(ctx context.Context, r *http.Request, sess *session.Session) (any, error) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	safe, err := h.svc.Login(ctx, sess, req.AccountName, req.Password)
	if err != nil {
		return nil, err
	}
	if err := h.sessions.Renew(ctx, sess); err != nil {
		return nil, err
	}
	return safe, nil
}

func (h *Handler) logout(ctx context.Context, _ *http.Request, sess *session.Session) (any, error) {
	return h.svc.Logout(ctx, sess), nil
}

func (h *Handler) current(ctx context.Context, _ *http.Request, sess *session.Session) (any, error) {
	return h.svc.CurrentAccount(ctx, sess)
}

func (h *Handler) search(ctx context.Context, r *http.Request, sess *session.Session) (any, error) {
	return h.svc.Search(ctx, sess, r.URL.Query().Get("displayName"))
}

type deleteRequest struct {
	ID json.Number `json:"id"`
}

func (h *Handler) delete(ctx context.Context, r *http.Request, sess *session.Session) (any, error) {
	var req deleteRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(req.ID.String(), 10, 64)
	if err != nil {
		return nil, oops.Code(account.CodeValidationFailed).
			With("field", "id").
			Wrapf(err, "account id must be an integer")
	}
	return h.svc.Delete(ctx, sess, id)
}
