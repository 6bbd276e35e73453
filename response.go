package httpd

import (
	"bufio"
	"io"
	"strconv"
)

// Response 处理函数返回的响应描述
type Response struct {
	Status        int    // 状态码，0 表示 200
	StatusMessage string // 状态描述，空时为 OK
	Payload       string // 响应主体
	Header        Header // 响应头，按插入顺序发送
}

// defaultResponse 处理函数没有返回响应时使用
func defaultResponse() *Response {
	return &Response{Status: 200, StatusMessage: "OK", Payload: "200 OK"}
}

// NewResponse 创建指定状态码的响应
func NewResponse(status int, payload string) *Response {
	return &Response{Status: status, Payload: payload}
}

// SetHeader 设置响应头并返回自身，便于链式调用
func (r *Response) SetHeader(key, value string) *Response {
	r.Header.Set(key, value)
	return r
}

func (r *Response) statusLine() (int, string) {
	status := r.Status
	if status == 0 {
		status = 200
	}
	msg := r.StatusMessage
	if msg == "" {
		msg = "OK"
	}
	return status, msg
}

// WriteResponse 按 HTTP/1.0 格式写出响应，不自动补充任何头部
func WriteResponse(w io.Writer, resp *Response) error {
	if resp == nil {
		resp = defaultResponse()
	}
	bw := bufio.NewWriter(w)
	status, msg := resp.statusLine()
	bw.WriteString("HTTP/1.0 ")
	bw.WriteString(strconv.Itoa(status))
	bw.WriteByte(' ')
	bw.WriteString(msg)
	bw.WriteString("\r\n")
	resp.Header.Each(func(key, value string) {
		bw.WriteString(key)
		bw.WriteString(": ")
		bw.WriteString(value)
		bw.WriteString("\r\n")
	})
	bw.WriteString("\r\n")
	bw.WriteString(resp.Payload)
	// bufio.Writer 记住第一个写错误，Flush 时返回
	return bw.Flush()
}
