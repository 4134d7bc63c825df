package client

import (
	"net/url"
	"strings"
)

// Param is one query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of query parameters. Encoding keeps the order.
type Params []Param

// P builds Params from alternating keys and values. A trailing key without
// a value gets an empty value.
func P(kv ...string) Params {
	p := make(Params, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		param := Param{Key: kv[i]}
		if i+1 < len(kv) {
			param.Value = kv[i+1]
		}
		p = append(p, param)
	}
	return p
}

// Add returns a copy of p with key=value appended. p is left untouched, so
// several calls may branch off the same base.
func (p Params) Add(key, value string) Params {
	out := make(Params, len(p), len(p)+1)
	copy(out, p)
	return append(out, Param{Key: key, Value: value})
}

// Encode joins key=value pairs with '&', escaping both sides.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, param := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(param.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(param.Value))
	}
	return b.String()
}
