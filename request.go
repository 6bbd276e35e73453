package httpd

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformedRequest 请求报文不符合最小语法
var ErrMalformedRequest = errors.New("malformed request")

type Request struct {
	Method     string            // 请求方法
	Path       string            // 路径，不含query
	Query      map[string]string // query参数
	Proto      string            // 协议及版本
	Header     Header            // 请求头
	Body       string            // 请求主体
	RemoteAddr string            // 客户端地址
	cookies    map[string]string // cookie，首次使用时解析
}

// QueryValue 获取指定的query参数
func (r *Request) QueryValue(name string) string {
	return r.Query[name]
}

// Cookie 获取指定cookie值
func (r *Request) Cookie(name string) string {
	// 将cookie解析置后，使用时才解析
	if r.cookies == nil {
		r.parseCookies()
	}
	return r.cookies[name]
}

// parseCookies 解析Cookie头，例: uuid=123456; HOME=1
func (r *Request) parseCookies() {
	r.cookies = make(map[string]string)
	for _, kv := range strings.Split(r.Header.Get("Cookie"), ";") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		r.cookies[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRequest, fmt.Sprintf(format, args...))
}

// ParseRequest 将原始字节解析为请求，失败时不返回部分结果
func ParseRequest(raw []byte) (*Request, error) {
	if !utf8.Valid(raw) {
		return nil, malformed("invalid utf-8")
	}
	text := string(raw)

	// 第一行: 请求方法，路径，协议
	line, rest, ok := strings.Cut(text, "\r\n")
	if !ok {
		return nil, malformed("missing request line terminator")
	}
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, malformed("request line has %d fields", len(parts))
	}
	r := &Request{
		Method: parts[0],
		Path:   parts[1],
		Proto:  parts[2],
	}

	var err error
	if path, rawQuery, found := strings.Cut(r.Path, "?"); found {
		r.Path = path
		if r.Query, err = parseQuery(rawQuery); err != nil {
			return nil, err
		}
	} else {
		r.Query = map[string]string{}
	}

	// 第一个空行就是头部和主体的分界，请求行后直接是空行表示没有请求头
	var block string
	if body, found := strings.CutPrefix(rest, "\r\n"); found {
		r.Body = body
	} else {
		block, r.Body, found = strings.Cut(rest, "\r\n\r\n")
		if !found {
			return nil, malformed("missing blank line after headers")
		}
	}
	if r.Header, err = parseHeader(block); err != nil {
		return nil, err
	}
	return r, nil
}

// parseQuery 解析query参数，忽略空段，重复的键后者覆盖前者
func parseQuery(rawQuery string) (map[string]string, error) {
	queries := make(map[string]string)
	for _, sp := range strings.Split(rawQuery, "&") {
		if sp == "" {
			continue
		}
		k, v, _ := strings.Cut(sp, "=")
		if k == "" {
			return nil, malformed("query segment %q has no key", sp)
		}
		queries[k] = v
	}
	return queries, nil
}

// parseHeader 解析请求头，每行必须包含 ": "
func parseHeader(block string) (Header, error) {
	var header Header
	if block == "" {
		return header, nil
	}
	for _, line := range strings.Split(block, "\r\n") {
		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			return Header{}, malformed("header line %q has no separator", line)
		}
		header.Set(k, v)
	}
	return header, nil
}
