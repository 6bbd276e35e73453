//go:build !unix

package httpd

import "net"

// listen 非unix平台无法指定 backlog，使用系统默认值
func listen(addr string, _ int) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
