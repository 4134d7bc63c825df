package model

// Envelope codes used by the backend.
const (
	CodeFailure = 0
	CodeSuccess = 1
)

// Response is the envelope every backend call answers with. Code is the
// only success discriminant; a populated Data does not imply success.
type Response[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

// OK reports whether the envelope carries the success code.
func (r *Response[T]) OK() bool {
	return r != nil && r.Code == CodeSuccess
}
