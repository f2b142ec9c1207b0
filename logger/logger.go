// Package logger 按配置初始化 logrus。
package logger

import (
	"io"
	"os"
	"strings"

	"smartbudget/config"

	"github.com/sirupsen/logrus"
)

// Setup 配置标准 logger 并返回它，level 非法时回退到 info
func Setup(cfg config.LogConfig) *logrus.Logger {
	return configure(logrus.StandardLogger(), cfg, os.Stdout)
}

func configure(l *logrus.Logger, cfg config.LogConfig, out io.Writer) *logrus.Logger {
	l.SetOutput(out)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	return l
}
