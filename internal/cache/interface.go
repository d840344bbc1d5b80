package cache

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
)

// Ensure BadgerCache implements domain.Cache
var _ domain.Cache = (*BadgerCache)(nil)

// Options contains cache configuration options
type Options struct {
	Directory string
	InMemory  bool
	// Logger receives badger's own messages; nil silences them
	Logger *utils.Logger
}

// DefaultOptions returns default cache options
func DefaultOptions() Options {
	return Options{}
}

// badgerLogger forwards badger's printf style logging to zerolog. Info is
// demoted to debug since badger reports every table and compaction there.
type badgerLogger struct {
	logger *utils.Logger
}

var _ badger.Logger = badgerLogger{}

func newBadgerLogger(logger *utils.Logger) badgerLogger {
	return badgerLogger{logger: logger.WithComponent("cache")}
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msg(trimMsg(format, args))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msg(trimMsg(format, args))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msg(trimMsg(format, args))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msg(trimMsg(format, args))
}

func trimMsg(format string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
