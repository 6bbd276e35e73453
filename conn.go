package httpd

import (
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog"
)

// MaxRequestSize 每个连接只读取一次，最多这么多字节
const MaxRequestSize = 1024

type conn struct {
	svc *Server        // server对象
	rwc net.Conn       // tcp 连接
	log zerolog.Logger // 带客户端地址的日志
}

func newConn(svc *Server, rwc net.Conn) *conn {
	return &conn{
		svc: svc,
		rwc: rwc,
		log: svc.logger().With().Str("remote", rwc.RemoteAddr().String()).Logger(),
	}
}

// serve 处理一个连接上的唯一请求，任何错误都不会传到accept循环
func (c *conn) serve() {
	defer func() {
		if err := recover(); err != nil {
			c.log.Error().Interface("panic", err).Msg("http: panic serving connection")
		}
		// 所有路径上都关闭连接
		c.close()
	}()

	buf := make([]byte, MaxRequestSize)
	n, err := c.rwc.Read(buf)
	if n == 0 {
		// 客户端没有发送数据就关闭了
		if err != nil && !errors.Is(err, io.EOF) {
			c.log.Debug().Err(err).Msg("read failed")
		}
		return
	}

	req, err := ParseRequest(buf[:n])
	if err != nil {
		c.log.Warn().Err(err).Msg("bad request")
		c.write(&Response{Status: 400, StatusMessage: "Bad Request", Payload: "400 Bad Request"})
		return
	}
	req.RemoteAddr = c.rwc.RemoteAddr().String()
	c.log.Debug().Str("method", req.Method).Str("path", req.Path).Msg("request")

	c.write(c.invoke(req))
}

// invoke 调用路由处理函数，panic 转为 500
func (c *conn) invoke(req *Request) (resp *Response) {
	defer func() {
		if err := recover(); err != nil {
			c.log.Error().Interface("panic", err).Str("method", req.Method).Str("path", req.Path).Msg("http: panic serving")
			resp = &Response{Status: 500, StatusMessage: "Internal Server Error", Payload: "500 Internal Server Error"}
		}
	}()
	return c.svc.router.Dispatch(req).Serve(req)
}

// write 写出响应，传输错误只记录
func (c *conn) write(resp *Response) {
	if err := WriteResponse(c.rwc, resp); err != nil {
		c.log.Debug().Err(err).Msg("write failed")
	}
}

// close 关闭连接
func (c *conn) close() {
	// 关闭tcp连接
	_ = c.rwc.Close()
}
