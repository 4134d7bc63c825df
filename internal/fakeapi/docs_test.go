package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

func TestOpenAPI(t *testing.T) {
	Convey("Given the embedded OpenAPI document", t, func() {
		var doc struct {
			Paths map[string]map[string]any `yaml:"paths"`
		}
		So(yaml.Unmarshal(OpenAPI, &doc), ShouldBeNil)

		Convey("When it is fetched over HTTP", func() {
			rec := httptest.NewRecorder()
			newTestServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.yaml", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldEqual, "application/yaml; charset=utf-8")
			So(rec.Body.Len(), ShouldEqual, len(OpenAPI))
		})

		Convey("Then every mounted route is documented", func() {
			s := newTestServer()
			var missing []string
			err := chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
				path := strings.TrimPrefix(route, "/api")
				ops, ok := doc.Paths[path]
				if !ok {
					missing = append(missing, route)
					return nil
				}
				if _, ok := ops[strings.ToLower(method)]; !ok {
					missing = append(missing, method+" "+route)
				}
				return nil
			})
			So(err, ShouldBeNil)
			So(missing, ShouldBeEmpty)
		})
	})
}
