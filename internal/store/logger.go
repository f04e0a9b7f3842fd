package store

import (
	"context"
	"fmt"
	"time"

	glog "gorm.io/gorm/logger"

	"go.bryk.io/mediator/internal/xlog"
)

// gormLogger adapts a Logger to gorm's logger.Interface, tagging
// operations slower than the configured threshold.
type gormLogger struct {
	ll   xlog.Logger
	slow time.Duration
}

// newGormLogger returns a gorm log handler backed by ll. A zero slow
// threshold defaults to 200ms.
func newGormLogger(ll xlog.Logger, slow time.Duration) glog.Interface {
	if slow == 0 {
		slow = 200 * time.Millisecond
	}
	return &gormLogger{ll: ll, slow: slow}
}

func (gl *gormLogger) LogMode(glog.LogLevel) glog.Interface {
	return gl
}

func (gl *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	gl.ll.Infof("%s: %+v", msg, data)
}

func (gl *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	gl.ll.Warningf("%s: %+v", msg, data)
}

func (gl *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	gl.ll.Errorf("%s: %+v", msg, data)
}

func (gl *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := xlog.Fields{
		"sql.statement":  sql,
		"sql.rows":       rows,
		"sql.elapsed_ms": elapsed.Milliseconds(),
	}
	switch {
	case err != nil:
		gl.ll.WithFields(fields).Error(err.Error())
	case elapsed > gl.slow:
		gl.ll.WithFields(fields).Warning(fmt.Sprintf("slow SQL >= %v", gl.slow))
	default:
		gl.ll.WithFields(fields).Debug("SQL operation")
	}
}
