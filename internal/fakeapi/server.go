// Package fakeapi is an in-process Ech0 backend speaking the
// {code, msg, data} envelope. Tests and local development run the client
// against it.
package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/okian/ech0client/internal/domain/model"
	"github.com/okian/ech0client/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie carries the token for callers that send credentials.
const SessionCookie = "ech0_session"

const (
	corsMaxAge    = 300
	maxUploadSize = 8 << 20
)

type viewerKey struct{}

// Server is the fake backend. Its zero value is not usable; call New.
type Server struct {
	store   *store
	log     logger.Logger
	origins []string
	router  chi.Router

	uploadsMu sync.RWMutex
	uploads   map[string][]byte
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	cost    int
	now     func() time.Time
	log     logger.Logger
	origins []string
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(o *serverOptions) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			o.cost = cost
		}
	}
}

// WithClock sets the time source for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithAllowedOrigins sets the CORS origins allowed to send credentials.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *serverOptions) {
		if len(origins) > 0 {
			o.origins = origins
		}
	}
}

// New creates a fake backend with its routes mounted under /api.
func New(opts ...Option) *Server {
	o := serverOptions{
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
		log:     logger.Nop(),
		origins: []string{"http://localhost:3000"},
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		store:   newStore(o.cost, o.now),
		log:     o.log,
		origins: o.origins,
		uploads: make(map[string][]byte),
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(s.requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Cache-Control", "Pragma", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}))
	r.Use(s.identify)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Get("/status", s.handleStatus)
		r.Get("/openapi.yaml", handleOpenAPI)

		r.Get("/messages/page", s.handleMessagePage)
		r.Get("/messages/tags/{tag}", s.handleMessagesByTag)
		r.Get("/messages/{id}", s.handleMessage)
		r.Get("/tags", s.handleTags)
		r.Get("/images", s.handleImages)
		r.Get("/images/{name}", s.handleImageFile)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/user/info", s.handleUserInfo)
			r.Put("/user/update", s.handleUpdateUser)
			r.Put("/user/change_password", s.handleChangePassword)
			r.Post("/messages", s.handleCreateMessage)
			r.Delete("/messages/{id}", s.handleDeleteMessage)
			r.Put("/messages/{id}/pin", s.handleTogglePin)
			r.Post("/images/upload", s.handleUpload)
		})
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug(r.Context(), "fakeapi request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.String("request_id", r.Header.Get("X-Request-Id")),
			logger.Duration("duration", time.Since(start)))
	})
}

// identify resolves the caller from the Authorization header, falling back
// to the session cookie. "null" and unknown tokens leave the caller anonymous.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		user, ok := s.store.authenticate(token)
		if !ok {
			if ck, err := r.Cookie(SessionCookie); err == nil {
				user, ok = s.store.authenticate(ck.Value)
			}
		}
		if ok {
			r = r.WithContext(context.WithValue(r.Context(), viewerKey{}, &user))
		}
		next.ServeHTTP(w, r)
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if viewer(r) == nil {
			writeJSON(w, http.StatusUnauthorized, envelope{Code: model.CodeFailure, Msg: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func viewer(r *http.Request) *model.User {
	u, _ := r.Context().Value(viewerKey{}).(*model.User)
	return u
}

type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Code: model.CodeSuccess, Msg: "success", Data: data})
}

// fail answers HTTP 200 with a failure code, the way the backend reports
// business errors.
func fail(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, envelope{Code: model.CodeFailure, Msg: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Code: model.CodeFailure, Msg: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		badRequest(w, "invalid message id")
		return 0, false
	}
	return uint(id), true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in model.UserToLogin
	if !decode(w, r, &in) {
		return
	}
	user, err := s.store.login(in.Username, in.Password)
	if err != nil {
		fail(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    user.Token,
		Path:     "/",
		HttpOnly: true,
	})
	ok(w, user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in model.UserToRegister
	if !decode(w, r, &in) {
		return
	}
	if _, err := s.store.register(in.Username, in.Password); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ok(w, s.store.status(viewer(r)))
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	ok(w, viewer(r))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
	}
	if !decode(w, r, &in) {
		return
	}
	if err := s.store.rename(*viewer(r), in.Username); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in model.UserToLogin
	if !decode(w, r, &in) {
		return
	}
	me := viewer(r)
	if in.Username != me.Username {
		fail(w, ErrPermissionDenied)
		return
	}
	if err := s.store.changePassword(*me, in.Password); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

func (s *Server) handleMessagePage(w http.ResponseWriter, r *http.Request) {
	page, err1 := strconv.Atoi(r.URL.Query().Get("page"))
	size, err2 := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if err1 != nil || err2 != nil {
		badRequest(w, "page and pageSize must be integers")
		return
	}
	ok(w, s.store.page(model.PageQuery{Page: page, PageSize: size}, viewer(r)))
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r)
	if !valid {
		return
	}
	msg, err := s.store.message(id, viewer(r))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, msg)
}

func (s *Server) handleMessagesByTag(w http.ResponseWriter, r *http.Request) {
	filter := model.TagQuery{Username: r.URL.Query().Get("username")}
	// An unparsable authorId is ignored.
	if id, err := strconv.ParseUint(r.URL.Query().Get("authorId"), 10, 64); err == nil {
		filter.AuthorID = uint(id)
	}
	ok(w, s.store.byTag(chi.URLParam(r, "tag"), filter))
}

func (s *Server) handleTags(w http.ResponseWriter, _ *http.Request) {
	ok(w, s.store.tags())
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	ok(w, s.store.images(viewer(r)))
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var in model.MessageToSave
	if !decode(w, r, &in) {
		return
	}
	msg, err := s.store.createMessage(*viewer(r), in)
	if err != nil {
		fail(w, err)
		return
	}
	if in.Notify {
		s.log.Info(r.Context(), "message published", logger.Int("id", int(msg.ID)))
	}
	ok(w, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r)
	if !valid {
		return
	}
	if err := s.store.deleteMessage(*viewer(r), id); err != nil {
		fail(w, err)
		return
	}
	ok(w, nil)
}

func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	id, valid := idParam(w, r)
	if !valid {
		return
	}
	msg, err := s.store.togglePin(*viewer(r), id)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, msg)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		fail(w, errors.New("missing image file"))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "unreadable image file")
		return
	}
	name := uuid.NewString() + path.Ext(header.Filename)
	s.uploadsMu.Lock()
	s.uploads[name] = data
	s.uploadsMu.Unlock()

	ok(w, "images/"+name)
}

func (s *Server) handleImageFile(w http.ResponseWriter, r *http.Request) {
	s.uploadsMu.RLock()
	data, found := s.uploads[chi.URLParam(r, "name")]
	s.uploadsMu.RUnlock()
	if !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}
