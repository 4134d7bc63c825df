package model

import "strconv"

// PageQuery selects one page of a listing. Whether pages start at 0 or 1
// is decided by the backend.
type PageQuery struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Pairs returns the query as ordered key/value pairs: page, then pageSize.
func (q PageQuery) Pairs() []string {
	return []string{
		"page", strconv.Itoa(q.Page),
		"pageSize", strconv.Itoa(q.PageSize),
	}
}

// PageQueryResult is one page of messages. Total counts the whole
// collection, not len(Items).
type PageQueryResult struct {
	Total int64     `json:"total"`
	Items []Message `json:"items"`
}

// TagQuery narrows a tag listing to one author. Zero fields are not sent.
type TagQuery struct {
	AuthorID uint   `json:"authorId,omitempty"`
	Username string `json:"username,omitempty"`
}

// Pairs returns the set filters as ordered key/value pairs: authorId, then
// username.
func (q TagQuery) Pairs() []string {
	var out []string
	if q.AuthorID != 0 {
		out = append(out, "authorId", strconv.FormatUint(uint64(q.AuthorID), 10))
	}
	if q.Username != "" {
		out = append(out, "username", q.Username)
	}
	return out
}
