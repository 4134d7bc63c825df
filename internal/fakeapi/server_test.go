package fakeapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/ech0client/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
)

type rawEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newTestServer() *Server {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return New(WithBcryptCost(bcrypt.MinCost), WithClock(func() time.Time { return fixed }))
}

func do(s *Server, method, target, token string, body any) (*httptest.ResponseRecorder, rawEnvelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if token == "" {
		token = "null"
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var env rawEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func signUp(s *Server, name string) string {
	do(s, http.MethodPost, "/api/register", "", model.UserToRegister{Username: name, Password: "secret"})
	_, env := do(s, http.MethodPost, "/api/login", "", model.UserToLogin{Username: name, Password: "secret"})
	var u model.User
	_ = json.Unmarshal(env.Data, &u)
	return u.Token
}

func TestAccounts(t *testing.T) {
	Convey("Given a fresh backend", t, func() {
		s := newTestServer()

		Convey("When the first user registers and logs in", func() {
			_, reg := do(s, http.MethodPost, "/api/register", "", model.UserToRegister{Username: "ann", Password: "pw"})
			rec, env := do(s, http.MethodPost, "/api/login", "", model.UserToLogin{Username: "ann", Password: "pw"})

			Convey("Then a token and a session cookie are issued", func() {
				So(reg.Code, ShouldEqual, model.CodeSuccess)
				So(env.Code, ShouldEqual, model.CodeSuccess)
				var u model.User
				So(json.Unmarshal(env.Data, &u), ShouldBeNil)
				So(u.Token, ShouldNotBeEmpty)
				So(u.IsAdmin, ShouldBeTrue)
				So(rec.Header().Get("Set-Cookie"), ShouldContainSubstring, SessionCookie+"="+u.Token)
			})
		})

		Convey("When a duplicate username registers", func() {
			signUp(s, "ann")
			rec, env := do(s, http.MethodPost, "/api/register", "", model.UserToRegister{Username: "ann", Password: "x"})

			Convey("Then HTTP 200 carries a failure code", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(env.Code, ShouldEqual, model.CodeFailure)
				So(env.Msg, ShouldEqual, ErrUserExists.Error())
			})
		})

		Convey("When the password is wrong", func() {
			signUp(s, "ann")
			_, env := do(s, http.MethodPost, "/api/login", "", model.UserToLogin{Username: "ann", Password: "nope"})
			So(env.Code, ShouldEqual, model.CodeFailure)
			So(env.Msg, ShouldEqual, ErrBadCredentials.Error())
		})

		Convey("When a protected route is called with the null token", func() {
			rec, env := do(s, http.MethodGet, "/api/user/info", "null", nil)

			Convey("Then it answers HTTP 401", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
				So(env.Code, ShouldEqual, model.CodeFailure)
			})
		})

		Convey("When the session cookie is sent instead of a token", func() {
			tok := signUp(s, "ann")
			req := httptest.NewRequest(http.MethodGet, "/api/user/info", nil)
			req.Header.Set("Authorization", "null")
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When a user renames themselves", func() {
			tok := signUp(s, "ann")
			_, env := do(s, http.MethodPut, "/api/user/update", tok, map[string]string{"username": "anna"})
			_, info := do(s, http.MethodGet, "/api/user/info", tok, nil)

			Convey("Then the token follows the new name", func() {
				So(env.Code, ShouldEqual, model.CodeSuccess)
				var u model.User
				So(json.Unmarshal(info.Data, &u), ShouldBeNil)
				So(u.Username, ShouldEqual, "anna")
			})
		})

		Convey("When a user changes someone else's password", func() {
			signUp(s, "ann")
			tok := signUp(s, "bob")
			_, env := do(s, http.MethodPut, "/api/user/change_password", tok, model.UserToLogin{Username: "ann", Password: "x"})
			So(env.Code, ShouldEqual, model.CodeFailure)
			So(env.Msg, ShouldEqual, ErrPermissionDenied.Error())
		})
	})
}

func TestMessages(t *testing.T) {
	Convey("Given an admin and a regular user", t, func() {
		s := newTestServer()
		admin := signUp(s, "ann")
		user := signUp(s, "bob")

		post := func(tok, content string, private bool) model.Message {
			_, env := do(s, http.MethodPost, "/api/messages", tok, model.MessageToSave{Content: content, Private: private})
			var m model.Message
			_ = json.Unmarshal(env.Data, &m)
			return m
		}

		first := post(user, "hello #go", false)
		post(user, "again #go #chi", false)
		secret := post(user, "diary", true)

		Convey("When an anonymous caller pages messages", func() {
			_, env := do(s, http.MethodGet, "/api/messages/page?page=1&pageSize=20", "", nil)
			var page model.PageQueryResult
			So(json.Unmarshal(env.Data, &page), ShouldBeNil)

			Convey("Then private messages are hidden and newest comes first", func() {
				So(page.Total, ShouldEqual, int64(2))
				So(page.Items[0].Content, ShouldEqual, "again #go #chi")
			})
		})

		Convey("When page parameters are not numbers", func() {
			rec, _ := do(s, http.MethodGet, "/api/messages/page?page=x&pageSize=1", "", nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the admin pins the oldest message", func() {
			_, env := do(s, http.MethodPut, "/api/messages/1/pin", admin, nil)
			So(env.Code, ShouldEqual, model.CodeSuccess)
			_, pageEnv := do(s, http.MethodGet, "/api/messages/page?page=1&pageSize=1", "", nil)
			var page model.PageQueryResult
			So(json.Unmarshal(pageEnv.Data, &page), ShouldBeNil)

			Convey("Then it leads the first page", func() {
				So(page.Items[0].ID, ShouldEqual, first.ID)
				So(page.Items[0].IsPinned(), ShouldBeTrue)
			})
		})

		Convey("When a regular user tries to pin", func() {
			_, env := do(s, http.MethodPut, "/api/messages/1/pin", user, nil)
			So(env.Msg, ShouldEqual, ErrPermissionDenied.Error())
		})

		Convey("When tags are listed", func() {
			_, env := do(s, http.MethodGet, "/api/tags", "", nil)
			var tags []model.Tag
			So(json.Unmarshal(env.Data, &tags), ShouldBeNil)

			So(tags, ShouldResemble, []model.Tag{{Name: "go", Count: 2}, {Name: "chi", Count: 1}})
		})

		Convey("When messages are filtered by tag", func() {
			_, env := do(s, http.MethodGet, "/api/messages/tags/chi", "", nil)
			var msgs []model.Message
			So(json.Unmarshal(env.Data, &msgs), ShouldBeNil)
			So(msgs, ShouldHaveLength, 1)
		})

		Convey("When messages by tag are narrowed to an author", func() {
			post(admin, "admin says #go", false)
			_, byName := do(s, http.MethodGet, "/api/messages/tags/go?username=ann", "", nil)
			_, byID := do(s, http.MethodGet, "/api/messages/tags/go?authorId=2", "", nil)
			_, badID := do(s, http.MethodGet, "/api/messages/tags/go?authorId=x", "", nil)

			var named, ided, all []model.Message
			So(json.Unmarshal(byName.Data, &named), ShouldBeNil)
			So(json.Unmarshal(byID.Data, &ided), ShouldBeNil)
			So(json.Unmarshal(badID.Data, &all), ShouldBeNil)

			So(named, ShouldHaveLength, 1)
			So(named[0].Username, ShouldEqual, "ann")
			So(ided, ShouldHaveLength, 2)
			So(all, ShouldHaveLength, 3)
		})

		Convey("When the owner reads and deletes the private message", func() {
			_, anon := do(s, http.MethodGet, "/api/messages/3", "", nil)
			_, own := do(s, http.MethodGet, "/api/messages/3", user, nil)
			_, del := do(s, http.MethodDelete, "/api/messages/3", user, nil)
			_, gone := do(s, http.MethodGet, "/api/messages/3", user, nil)

			So(secret.ID, ShouldEqual, uint(3))
			So(anon.Code, ShouldEqual, model.CodeFailure)
			So(own.Code, ShouldEqual, model.CodeSuccess)
			So(del.Code, ShouldEqual, model.CodeSuccess)
			So(gone.Msg, ShouldEqual, ErrMessageNotFound.Error())
		})

		Convey("When status is read", func() {
			_, env := do(s, http.MethodGet, "/api/status", admin, nil)
			var st model.Status
			So(json.Unmarshal(env.Data, &st), ShouldBeNil)
			page, ok := st.Page()

			Convey("Then the first page is embedded in items and total", func() {
				So(ok, ShouldBeTrue)
				So(page.Total, ShouldEqual, int64(3))
				So(st.Users, ShouldHaveLength, 2)
				So(st.SysAdminID, ShouldEqual, uint(1))
				So(st.IsAdmin, ShouldBeTrue)
			})
		})
	})
}

func TestUpload(t *testing.T) {
	Convey("Given a logged in user", t, func() {
		s := newTestServer()
		tok := signUp(s, "ann")

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("image", "cat.png")
		So(err, ShouldBeNil)
		_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\nfake"))
		So(mw.Close(), ShouldBeNil)

		req := httptest.NewRequest(http.MethodPost, "/api/images/upload", &buf)
		req.Header.Set("Authorization", tok)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		Convey("When an image is uploaded", func() {
			var env rawEnvelope
			So(json.Unmarshal(rec.Body.Bytes(), &env), ShouldBeNil)
			var path string
			So(json.Unmarshal(env.Data, &path), ShouldBeNil)

			Convey("Then it can be fetched back", func() {
				So(path, ShouldStartWith, "images/")
				So(path, ShouldEndWith, ".png")

				get := httptest.NewRecorder()
				s.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/"+path, nil))
				So(get.Code, ShouldEqual, http.StatusOK)
				So(get.Header().Get("Content-Type"), ShouldEqual, "image/png")
			})
		})
	})
}
