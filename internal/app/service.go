// Package service exposes the Ech0 endpoints as typed calls over the
// request layer and keeps the login session in step with them.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/okian/ech0client/internal/client"
	"github.com/okian/ech0client/internal/domain/model"
	"github.com/okian/ech0client/internal/session"
	"github.com/okian/ech0client/pkg/logger"
)

// ErrNoClient is returned by New when no client is configured.
var ErrNoClient = errors.New("service: client is required")

// Service wraps one Client and one session Store.
type Service struct {
	client      *client.Client
	session     *session.Store
	logger      logger.Logger
	credentials bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClient sets the request layer. Required.
func WithClient(c *client.Client) Option {
	return func(s *Service) {
		s.client = c
	}
}

// WithSession sets the store that login and logout update.
func WithSession(st *session.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.session = st
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCredentials makes every call send and store cookies.
func WithCredentials(enabled bool) Option {
	return func(s *Service) {
		s.credentials = enabled
	}
}

// New constructs a Service.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		session: session.New(),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		return nil, ErrNoClient
	}
	return s, nil
}

// Session returns the store the service keeps logged in.
func (s *Service) Session() *session.Store {
	return s.session
}

func (s *Service) callOpts() []client.CallOption {
	if s.credentials {
		return []client.CallOption{client.IncludeCredentials()}
	}
	return nil
}

// Login authenticates and, on success, stores the returned user and token.
func (s *Service) Login(ctx context.Context, in model.UserToLogin) (*model.Response[model.User], error) {
	res, err := client.Post[model.User](ctx, s.client, "login", in, s.callOpts()...)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if res.OK() {
		s.session.Set(ctx, res.Data)
		s.logger.Info(ctx, "logged in", logger.String("username", res.Data.Username))
	}
	return res, nil
}

// Register creates an account. It does not log in.
func (s *Service) Register(ctx context.Context, in model.UserToRegister) (*model.Response[any], error) {
	res, err := client.Post[any](ctx, s.client, "register", in, s.callOpts()...)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return res, nil
}

// Logout forgets the session locally. The backend keeps no logout endpoint.
func (s *Service) Logout(ctx context.Context) {
	s.session.Clear(ctx)
}

// Me returns the logged-in user. Without a valid session the envelope is
// the synthesized Unauthorized one.
func (s *Service) Me(ctx context.Context) (*model.Response[model.User], error) {
	return client.Get[model.User](ctx, s.client, "user/info", nil, s.callOpts()...)
}

// Status returns the board status with its embedded first page.
func (s *Service) Status(ctx context.Context) (*model.Response[model.Status], error) {
	return client.Get[model.Status](ctx, s.client, "status", nil, s.callOpts()...)
}

// Messages returns one page of messages.
func (s *Service) Messages(ctx context.Context, q model.PageQuery) (*model.Response[model.PageQueryResult], error) {
	return client.Get[model.PageQueryResult](ctx, s.client, "messages/page", client.P(q.Pairs()...), s.callOpts()...)
}

// Message returns a single message.
func (s *Service) Message(ctx context.Context, id uint) (*model.Response[model.Message], error) {
	return client.Get[model.Message](ctx, s.client, messagePath(id), nil, s.callOpts()...)
}

// CreateMessage publishes a message.
func (s *Service) CreateMessage(ctx context.Context, in model.MessageToSave) (*model.Response[model.Message], error) {
	return client.Post[model.Message](ctx, s.client, "messages", in, s.callOpts()...)
}

// DeleteMessage removes a message.
func (s *Service) DeleteMessage(ctx context.Context, id uint) (*model.Response[any], error) {
	return client.Delete[any](ctx, s.client, messagePath(id), nil, s.callOpts()...)
}

// TogglePin flips the pinned flag. A failure code raises a toast and
// returns nil, nil.
func (s *Service) TogglePin(ctx context.Context, id uint) (*model.Response[model.Message], error) {
	return client.Put[model.Message](ctx, s.client, messagePath(id)+"/pin", nil, s.callOpts()...)
}

// Tags lists hashtags, most used first.
func (s *Service) Tags(ctx context.Context) (*model.Response[[]model.Tag], error) {
	return client.Get[[]model.Tag](ctx, s.client, "tags", nil, s.callOpts()...)
}

// MessagesByTag lists public messages carrying tag, optionally from one
// author.
func (s *Service) MessagesByTag(ctx context.Context, tag string, q model.TagQuery) (*model.Response[[]model.Message], error) {
	path := "messages/tags/" + url.PathEscape(tag)
	return client.Get[[]model.Message](ctx, s.client, path, client.P(q.Pairs()...), s.callOpts()...)
}

// Images lists images attached to or embedded in visible messages.
func (s *Service) Images(ctx context.Context) (*model.Response[[]model.ImageInfo], error) {
	return client.Get[[]model.ImageInfo](ctx, s.client, "images", nil, s.callOpts()...)
}

// UploadImage uploads data as a multipart "image" field and returns the
// stored path.
func (s *Service) UploadImage(ctx context.Context, filename string, data []byte) (*model.Response[string], error) {
	form := client.NewForm().File("image", filename, data)
	return client.Post[string](ctx, s.client, "images/upload", form, s.callOpts()...)
}

// UpdateUsername renames the logged-in user. On success the stored session
// follows the new name.
func (s *Service) UpdateUsername(ctx context.Context, username string) (*model.Response[any], error) {
	res, err := client.Put[any](ctx, s.client, "user/update", map[string]string{"username": username}, s.callOpts()...)
	if err != nil || res == nil {
		return res, err
	}
	if u, ok := s.session.User(); ok && res.OK() {
		u.Username = username
		s.session.Set(ctx, u)
	}
	return res, nil
}

// ChangePassword sets a new password for the logged-in user.
func (s *Service) ChangePassword(ctx context.Context, in model.UserToLogin) (*model.Response[any], error) {
	return client.Put[any](ctx, s.client, "user/change_password", in, s.callOpts()...)
}

func messagePath(id uint) string {
	return "messages/" + strconv.FormatUint(uint64(id), 10)
}
