package httpd

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultAddr          = "0.0.0.0:80"
	DefaultBacklog       = 5
	DefaultPollInterval  = time.Second
	DefaultYieldInterval = 10 * time.Millisecond

	// drainWait 轮询模式下判断是否还有就绪连接的等待时间
	drainWait = time.Millisecond

	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Mode 连接的调度方式
type Mode int

const (
	// ModeConcurrent 每个连接一个协程
	ModeConcurrent Mode = iota
	// ModePoll 带超时地轮询监听socket，同步处理就绪的连接后让出
	ModePoll
)

func (m Mode) String() string {
	switch m {
	case ModeConcurrent:
		return "concurrent"
	case ModePoll:
		return "poll"
	}
	return "unknown"
}

// State 服务器生命周期
type State int32

const (
	StateCreated State = iota
	StateBound
	StateListening
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateBound:
		return "bound"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Task 与请求处理并发运行的后台任务
type Task func()

// Server 零值可用，路由应在 ListenAndServe 之前注册
type Server struct {
	Addr          string          // 监听地址，默认 0.0.0.0:80
	Backlog       int             // 监听队列长度，默认 5
	Mode          Mode            // 调度方式
	PollInterval  time.Duration   // 轮询模式下 accept 的最长等待
	YieldInterval time.Duration   // 轮询模式下每轮结束后的让出时间
	Logger        *zerolog.Logger // 为空时使用默认日志

	router     Router
	background Task
	state      atomic.Int32
	logOnce    sync.Once
	log        zerolog.Logger
}

// Handle 注册路由
func (svc *Server) Handle(path, method string, h Handler) {
	svc.router.Handle(path, method, h)
}

// HandleFunc 注册路由函数
func (svc *Server) HandleFunc(path, method string, f func(*Request) *Response) {
	svc.router.HandleFunc(path, method, f)
}

// NotFound 替换未匹配路由时的处理函数
func (svc *Server) NotFound(h Handler) {
	svc.router.NotFound(h)
}

// Background 设置后台任务，后设置的覆盖先设置的
func (svc *Server) Background(task Task) {
	svc.background = task
}

func (svc *Server) State() State {
	return State(svc.state.Load())
}

func (svc *Server) logger() *zerolog.Logger {
	svc.logOnce.Do(func() {
		if svc.Logger != nil {
			svc.log = *svc.Logger
		} else {
			svc.log = newLogger()
		}
	})
	return &svc.log
}

// ListenAndServe 绑定地址并开始服务，只在监听socket失效时返回
func (svc *Server) ListenAndServe() error {
	addr := svc.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	backlog := svc.Backlog
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	// 创建tcp连接
	l, err := listen(addr, backlog)
	if err != nil {
		return err
	}
	svc.state.Store(int32(StateBound))
	return svc.Serve(l)
}

// Serve 在已绑定的 listener 上服务，启动后台任务后进入 accept 循环
func (svc *Server) Serve(l net.Listener) error {
	defer l.Close()
	log := svc.logger()
	svc.state.Store(int32(StateListening))
	log.Info().Str("addr", l.Addr().String()).Stringer("mode", svc.Mode).Msg("listening")

	if svc.background != nil {
		go svc.runBackground(svc.background)
	}

	var err error
	if svc.Mode == ModePoll {
		err = svc.poll(l)
	} else {
		err = svc.accept(l)
	}
	svc.state.Store(int32(StateStopped))
	log.Error().Err(err).Msg("accept failed, server stopped")
	return err
}

// accept 阻塞 accept，每个连接开一个协程
func (svc *Server) accept(l net.Listener) error {
	var delay time.Duration
	for {
		// 不断的监听新的连接
		rwc, err := l.Accept()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if delay = svc.backoff(err, delay); delay > 0 {
				continue
			}
			return err
		}
		delay = 0
		svc.logger().Debug().Str("remote", rwc.RemoteAddr().String()).Msg("accepted")
		// 开启一个新协程处理连接
		c := newConn(svc, rwc)
		go c.serve()
	}
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// poll 带超时等待连接，处理完所有就绪连接后让出给后台任务
func (svc *Server) poll(l net.Listener) error {
	dl, ok := l.(deadliner)
	if !ok {
		svc.logger().Warn().Msg("listener has no deadline support, falling back to blocking accept")
	}
	wait := svc.PollInterval
	if wait <= 0 {
		wait = DefaultPollInterval
	}
	yield := svc.YieldInterval
	if yield <= 0 {
		yield = DefaultYieldInterval
	}
	var delay time.Duration
	for {
		timeout := wait
		for {
			if ok {
				if err := dl.SetDeadline(time.Now().Add(timeout)); err != nil {
					return err
				}
			}
			rwc, err := l.Accept()
			if err != nil {
				if isTimeout(err) {
					break
				}
				if delay = svc.backoff(err, delay); delay > 0 {
					break
				}
				return err
			}
			delay = 0
			svc.logger().Debug().Str("remote", rwc.RemoteAddr().String()).Msg("accepted")
			// 同步处理，读超时防止不发数据的客户端卡住accept循环
			if err := rwc.SetReadDeadline(time.Now().Add(wait)); err != nil {
				rwc.Close()
				continue
			}
			newConn(svc, rwc).serve()
			// 继续取出已经就绪的连接
			timeout = drainWait
		}
		time.Sleep(yield)
	}
}

// runBackground 运行后台任务，panic 不影响 accept 循环
func (svc *Server) runBackground(task Task) {
	log := svc.logger()
	defer func() {
		if err := recover(); err != nil {
			log.Error().Interface("panic", err).Msg("background task panicked")
		}
	}()
	log.Debug().Msg("background task started")
	task()
	log.Debug().Msg("background task returned")
}

// backoff 资源耗尽时等待后重试，返回本次等待时间，0 表示错误不可恢复
func (svc *Server) backoff(err error, delay time.Duration) time.Duration {
	if !isExhausted(err) {
		return 0
	}
	if delay == 0 {
		delay = minAcceptDelay
	} else if delay *= 2; delay > maxAcceptDelay {
		delay = maxAcceptDelay
	}
	svc.logger().Warn().Err(err).Dur("retry", delay).Msg("accept failed")
	time.Sleep(delay)
	return delay
}

// isExhausted 文件描述符或内存不足，以及握手阶段被客户端中止
func isExhausted(err error) bool {
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOBUFS) || errors.Is(err, syscall.ENOMEM) ||
		errors.Is(err, syscall.ECONNABORTED)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
