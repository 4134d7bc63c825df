package model

// Status is the board's current state as seen by the caller.
//
// Items and Total are the canonical embedded page. Messages is a
// deprecated alias kept for older backends and is read only when Items
// is absent.
type Status struct {
	Username      string       `json:"username"`
	Status        string       `json:"status"`
	IsAdmin       bool         `json:"is_admin"`
	SysAdminID    uint         `json:"sys_admin_id"`
	Users         []UserStatus `json:"users"`
	TotalMessages int64        `json:"total_messages"`

	Items    []Message `json:"items,omitempty"`
	Total    *int64    `json:"total,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// Page returns the embedded page of messages, if any.
func (s Status) Page() (PageQueryResult, bool) {
	items := s.Items
	if items == nil {
		items = s.Messages
	}
	if items == nil {
		return PageQueryResult{}, false
	}

	total := s.TotalMessages
	if s.Total != nil {
		total = *s.Total
	}
	return PageQueryResult{Total: total, Items: items}, true
}
