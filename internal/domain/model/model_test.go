package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/ech0client/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestResponse(t *testing.T) {
	convey.Convey("Given envelopes from the backend", t, func() {
		convey.Convey("When the code is 1", func() {
			var resp model.Response[model.PageQueryResult]
			err := json.Unmarshal([]byte(`{"code":1,"msg":"ok","data":{"total":42,"items":[
				{"id":7,"content":"hello #go","private":false,"created_at":"2025-03-01T10:00:00Z","pinned":true}]}}`), &resp)

			convey.Convey("Then it decodes as a successful page", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(resp.OK(), convey.ShouldBeTrue)
				convey.So(resp.Data.Total, convey.ShouldEqual, int64(42))
				convey.So(resp.Data.Items, convey.ShouldHaveLength, 1)
				convey.So(resp.Data.Items[0].ID, convey.ShouldEqual, uint(7))
				convey.So(resp.Data.Items[0].IsPinned(), convey.ShouldBeTrue)
				convey.So(resp.Data.Items[0].CreatedAt.Year(), convey.ShouldEqual, 2025)
			})
		})

		convey.Convey("When the code is 0 but data is present", func() {
			var resp model.Response[model.User]
			err := json.Unmarshal([]byte(`{"code":0,"msg":"bad password","data":{"userid":3,"username":"ann"}}`), &resp)

			convey.Convey("Then it is still a failure", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(resp.OK(), convey.ShouldBeFalse)
				convey.So(resp.Data.Username, convey.ShouldEqual, "ann")
			})
		})

		convey.Convey("When the envelope is nil", func() {
			var resp *model.Response[any]
			convey.So(resp.OK(), convey.ShouldBeFalse)
		})
	})
}

func TestMessage(t *testing.T) {
	convey.Convey("Given a message without a pinned flag", t, func() {
		var msg model.Message
		err := json.Unmarshal([]byte(`{"id":1,"content":"x","private":true,"created_at":"2025-03-01T10:00:00Z"}`), &msg)

		convey.So(err, convey.ShouldBeNil)
		convey.So(msg.Pinned, convey.ShouldBeNil)
		convey.So(msg.IsPinned(), convey.ShouldBeFalse)
		convey.So(msg.Private, convey.ShouldBeTrue)
	})

	convey.Convey("Given a message to save", t, func() {
		body, err := json.Marshal(model.MessageToSave{Content: "hi", Notify: true})

		convey.Convey("Then optional fields are omitted", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(body), convey.ShouldEqual, `{"content":"hi","private":false,"notify":true}`)
		})
	})
}

func TestPageQuery(t *testing.T) {
	convey.Convey("Given a page query", t, func() {
		q := model.PageQuery{Page: 1, PageSize: 20}

		convey.Convey("Then its pairs keep page before pageSize", func() {
			convey.So(q.Pairs(), convey.ShouldResemble, []string{"page", "1", "pageSize", "20"})
		})
	})
}

func TestStatusPage(t *testing.T) {
	convey.Convey("Given status snapshots", t, func() {
		convey.Convey("When items and total are present", func() {
			var st model.Status
			err := json.Unmarshal([]byte(`{"username":"ann","status":"ok","is_admin":true,"sys_admin_id":1,
				"users":[{"user_id":1,"username":"ann","is_admin":true}],"total_messages":9,
				"items":[{"id":2,"content":"a","private":false,"created_at":"2025-03-01T10:00:00Z"}],"total":5,
				"messages":[{"id":3,"content":"b","private":false,"created_at":"2025-03-01T10:00:00Z"}]}`), &st)
			convey.So(err, convey.ShouldBeNil)

			page, ok := st.Page()

			convey.Convey("Then items win over the deprecated messages field", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(page.Total, convey.ShouldEqual, int64(5))
				convey.So(page.Items, convey.ShouldHaveLength, 1)
				convey.So(page.Items[0].ID, convey.ShouldEqual, uint(2))
				convey.So(st.Users[0].Username, convey.ShouldEqual, "ann")
			})
		})

		convey.Convey("When only the deprecated messages field is present", func() {
			st := model.Status{
				TotalMessages: 9,
				Messages:      []model.Message{{ID: 3}},
			}

			page, ok := st.Page()

			convey.Convey("Then it is used with the lifetime count as total", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(page.Items[0].ID, convey.ShouldEqual, uint(3))
				convey.So(page.Total, convey.ShouldEqual, int64(9))
			})
		})

		convey.Convey("When no page is embedded", func() {
			_, ok := model.Status{Username: "ann"}.Page()
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestTagQuery(t *testing.T) {
	convey.Convey("Given tag filters", t, func() {
		convey.Convey("Then unset fields produce no pairs", func() {
			convey.So(model.TagQuery{}.Pairs(), convey.ShouldBeEmpty)
		})

		convey.Convey("Then set fields keep authorId before username", func() {
			q := model.TagQuery{AuthorID: 3, Username: "ann"}
			convey.So(q.Pairs(), convey.ShouldResemble, []string{"authorId", "3", "username", "ann"})
		})
	})
}
