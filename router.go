package httpd

import "sync"

type Handler interface {
	Serve(r *Request) *Response
}

// HandlerFunc 将普通函数适配为 Handler
type HandlerFunc func(r *Request) *Response

func (f HandlerFunc) Serve(r *Request) *Response {
	return f(r)
}

// notFound 默认的 404 处理函数
func notFound(*Request) *Response {
	return &Response{Status: 404, StatusMessage: "Not Found", Payload: "404 Not Found"}
}

// Router 路径 -> 方法 -> 处理函数，只做精确匹配
type Router struct {
	mu       sync.RWMutex
	routes   map[string]map[string]Handler
	notFound Handler
}

// Handle 注册路由，重复注册会覆盖，method 为空时为 GET
func (rt *Router) Handle(path, method string, h Handler) {
	if method == "" {
		method = "GET"
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.routes == nil {
		rt.routes = make(map[string]map[string]Handler)
	}
	methods, ok := rt.routes[path]
	if !ok {
		methods = make(map[string]Handler)
		rt.routes[path] = methods
	}
	methods[method] = h
}

func (rt *Router) HandleFunc(path, method string, f func(*Request) *Response) {
	rt.Handle(path, method, HandlerFunc(f))
}

// Lookup 查找路由
func (rt *Router) Lookup(path, method string) (Handler, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	h, ok := rt.routes[path][method]
	return h, ok
}

// NotFound 替换未匹配时的处理函数
func (rt *Router) NotFound(h Handler) {
	rt.mu.Lock()
	rt.notFound = h
	rt.mu.Unlock()
}

// Dispatch 返回处理该请求的函数，未知路径和未知方法都落到 NotFound
func (rt *Router) Dispatch(r *Request) Handler {
	if h, ok := rt.Lookup(r.Path, r.Method); ok {
		return h
	}
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.notFound != nil {
		return rt.notFound
	}
	return HandlerFunc(notFound)
}
