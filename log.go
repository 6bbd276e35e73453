package httpd

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// newLogger 默认日志输出到 stderr，非终端时关闭颜色
func newLogger() zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
	return zerolog.New(out).Level(zerolog.InfoLevel).With().Timestamp().Str("component", "httpd").Logger()
}
