package fakeapi

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ech0client/internal/domain/model"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel kinds for store errors. Handlers map them to failure envelopes.
var (
	ErrUserExists       = errors.New("user already exists")
	ErrBadCredentials   = errors.New("wrong username or password")
	ErrMessageNotFound  = errors.New("message not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrEmptyContent     = errors.New("content must not be empty")
	ErrInvalidUsername  = errors.New("username must be 3 to 32 characters")
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	statusPageSize = 10
)

var (
	tagPattern        = regexp.MustCompile(`#([^\s#]+)`)
	invalidTagPattern = regexp.MustCompile(`[/?=&]`)
	markdownImage     = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)
)

type account struct {
	user     model.User
	password []byte
}

// store is the in-memory board state.
type store struct {
	mu       sync.RWMutex
	accounts map[string]*account
	tokens   map[string]string // token -> username
	messages []model.Message   // newest last
	nextMsg  uint
	nextUser uint
	adminID  uint
	cost     int
	now      func() time.Time
}

func newStore(cost int, now func() time.Time) *store {
	return &store{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		nextMsg:  1,
		nextUser: 1,
		cost:     cost,
		now:      now,
	}
}

// register creates an account. The first account becomes the admin.
func (s *store) register(username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return model.User{}, ErrInvalidUsername
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; ok {
		return model.User{}, ErrUserExists
	}
	u := model.User{UserID: s.nextUser, Username: username, IsAdmin: len(s.accounts) == 0}
	if u.IsAdmin {
		s.adminID = u.UserID
	}
	s.nextUser++
	s.accounts[username] = &account{user: u, password: hash}
	return u, nil
}

func (s *store) login(username, password string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok || bcrypt.CompareHashAndPassword(acc.password, []byte(password)) != nil {
		return model.User{}, ErrBadCredentials
	}
	token := uuid.NewString()
	s.tokens[token] = username
	u := s.userLocked(acc)
	u.Token = token
	return u, nil
}

// authenticate resolves a token. The literal "null" never matches.
func (s *store) authenticate(token string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.tokens[token]
	if !ok {
		return model.User{}, false
	}
	return s.userLocked(s.accounts[name]), true
}

func (s *store) userLocked(acc *account) model.User {
	u := acc.user
	u.TotalMessages = 0
	for _, m := range s.messages {
		if m.Username == u.Username {
			u.TotalMessages++
		}
	}
	return u
}

func (s *store) rename(user model.User, newName string) error {
	newName = strings.TrimSpace(newName)
	if len(newName) < minUsernameLen || len(newName) > maxUsernameLen {
		return ErrInvalidUsername
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accountLocked(user.UserID)
	if acc == nil {
		return ErrPermissionDenied
	}
	if _, taken := s.accounts[newName]; taken {
		return ErrUserExists
	}
	oldName := acc.user.Username
	delete(s.accounts, oldName)
	acc.user.Username = newName
	s.accounts[newName] = acc
	for tok, name := range s.tokens {
		if name == oldName {
			s.tokens[tok] = newName
		}
	}
	for i := range s.messages {
		if s.messages[i].Username == oldName {
			s.messages[i].Username = newName
		}
	}
	return nil
}

// accountLocked finds an account by id, which survives renames.
func (s *store) accountLocked(id uint) *account {
	for _, acc := range s.accounts {
		if acc.user.UserID == id {
			return acc
		}
	}
	return nil
}

func (s *store) changePassword(user model.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accountLocked(user.UserID)
	if acc == nil {
		return ErrPermissionDenied
	}
	acc.password = hash
	return nil
}

func (s *store) createMessage(user model.User, in model.MessageToSave) (model.Message, error) {
	if strings.TrimSpace(in.Content) == "" && in.ImageURL == "" {
		return model.Message{}, ErrEmptyContent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := model.Message{
		ID:        s.nextMsg,
		Content:   in.Content,
		Username:  user.Username,
		ImageURL:  in.ImageURL,
		Private:   in.Private,
		CreatedAt: s.now().UTC(),
	}
	s.nextMsg++
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *store) deleteMessage(user model.User, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.ID != id {
			continue
		}
		if m.Username != user.Username && !user.IsAdmin {
			return ErrPermissionDenied
		}
		s.messages = append(s.messages[:i], s.messages[i+1:]...)
		return nil
	}
	return ErrMessageNotFound
}

func (s *store) togglePin(user model.User, id uint) (model.Message, error) {
	if !user.IsAdmin {
		return model.Message{}, ErrPermissionDenied
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			pinned := !s.messages[i].IsPinned()
			s.messages[i].Pinned = &pinned
			return s.messages[i], nil
		}
	}
	return model.Message{}, ErrMessageNotFound
}

func (s *store) message(id uint, viewer *model.User) (model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id && visible(m, viewer) {
			return m, nil
		}
	}
	return model.Message{}, ErrMessageNotFound
}

// page returns a 1-indexed page, pinned first then newest first.
func (s *store) page(q model.PageQuery, viewer *model.User) model.PageQueryResult {
	all := s.visible(viewer)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].IsPinned() != all[j].IsPinned() {
			return all[i].IsPinned()
		}
		return all[i].ID > all[j].ID
	})

	res := model.PageQueryResult{Total: int64(len(all)), Items: []model.Message{}}
	if q.Page < 1 || q.PageSize < 1 {
		return res
	}
	start := (q.Page - 1) * q.PageSize
	if start >= len(all) {
		return res
	}
	end := min(start+q.PageSize, len(all))
	res.Items = all[start:end]
	return res
}

func (s *store) visible(viewer *model.User) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if visible(m, viewer) {
			out = append(out, m)
		}
	}
	return out
}

func visible(m model.Message, viewer *model.User) bool {
	return !m.Private || (viewer != nil && (viewer.IsAdmin || viewer.Username == m.Username))
}

// tags counts hashtags across public messages, most used first.
func (s *store) tags() []model.Tag {
	counts := make(map[string]int)
	for _, m := range s.visible(nil) {
		for _, match := range tagPattern.FindAllStringSubmatch(m.Content, -1) {
			tag := strings.TrimRight(match[1], ",.!?")
			if tag != "" && !invalidTagPattern.MatchString(tag) {
				counts[tag]++
			}
		}
	}
	out := make([]model.Tag, 0, len(counts))
	for name, n := range counts {
		out = append(out, model.Tag{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// byTag returns public messages carrying #tag, newest first. Non-zero
// filter fields restrict the author; an unknown author id matches nothing.
func (s *store) byTag(tag string, filter model.TagQuery) []model.Message {
	re := regexp.MustCompile(`#` + regexp.QuoteMeta(tag) + `(?:[\s,.!?]|$)`)
	out := []model.Message{}

	author := ""
	if filter.AuthorID != 0 {
		s.mu.RLock()
		if acc := s.accountLocked(filter.AuthorID); acc != nil {
			author = acc.user.Username
		}
		s.mu.RUnlock()
		if author == "" {
			return out
		}
	}

	all := s.visible(nil)
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if author != "" && m.Username != author {
			continue
		}
		if filter.Username != "" && m.Username != filter.Username {
			continue
		}
		if re.MatchString(m.Content) {
			out = append(out, m)
		}
	}
	return out
}

// images lists attached and markdown-embedded images, newest first.
func (s *store) images(viewer *model.User) []model.ImageInfo {
	out := []model.ImageInfo{}
	all := s.visible(viewer)
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if m.ImageURL != "" {
			out = append(out, model.ImageInfo{ID: m.ID, ImageURL: m.ImageURL, CreatedAt: m.CreatedAt})
		}
		for _, match := range markdownImage.FindAllStringSubmatch(m.Content, -1) {
			out = append(out, model.ImageInfo{ID: m.ID, ImageURL: match[1], CreatedAt: m.CreatedAt})
		}
	}
	return out
}

// status embeds the first page of messages in the canonical items/total
// fields.
func (s *store) status(viewer *model.User) model.Status {
	first := s.page(model.PageQuery{Page: 1, PageSize: statusPageSize}, viewer)

	s.mu.RLock()
	defer s.mu.RUnlock()
	st := model.Status{
		Status:        "ok",
		SysAdminID:    s.adminID,
		Users:         make([]model.UserStatus, 0, len(s.accounts)),
		TotalMessages: int64(len(s.messages)),
		Items:         first.Items,
		Total:         &first.Total,
	}
	if viewer != nil {
		st.Username = viewer.Username
		st.IsAdmin = viewer.IsAdmin
	}
	for _, acc := range s.accounts {
		st.Users = append(st.Users, model.UserStatus{
			UserID:   acc.user.UserID,
			Username: acc.user.Username,
			IsAdmin:  acc.user.IsAdmin,
		})
	}
	sort.Slice(st.Users, func(i, j int) bool { return st.Users[i].UserID < st.Users[j].UserID })
	return st
}
