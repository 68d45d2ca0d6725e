package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/admissions/core"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelCritical
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "CRITICAL"}

func (lvl level) String() string { return levelNames[lvl] }

// RollbarLogger prints every event to a std logger & reports warnings and above to Rollbar.
// Debug events are dropped unless the app runs in debug mode.
type RollbarLogger struct {
	std      *log.Logger
	minLevel level
	reportAt level
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "")

	l := &RollbarLogger{std: std, minLevel: levelInfo, reportAt: levelWarn}
	if conf.Debug {
		l.minLevel = levelDebug
	}
	return l
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Person
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var personSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		p, ok := arg.(core.Person)
		if !ok {
			newArgs = append(newArgs, arg)
			continue
		}
		if !personSet { // the first person wins
			rollbar.SetPerson(p.ID, p.Username, p.Email)
			personSet = true
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) report(lvl level, msg string, args []interface{}) {
	items := l.prepare(msg, args)
	switch lvl {
	case levelWarn:
		rollbar.Warning(items...)
	case levelError:
		rollbar.Error(items...)
	case levelCritical:
		rollbar.Critical(items...)
	}
}

func (l RollbarLogger) log(lvl level, msg string, args []interface{}) {
	if lvl < l.minLevel {
		return
	}
	if lvl >= l.reportAt {
		l.report(lvl, msg, args)
	}
	l.std.Printf("%s: %s", lvl, msg)
	for _, arg := range args {
		if p, ok := arg.(core.Person); ok {
			l.std.Printf("  person: %s (%s)", p.Username, p.ID)
			continue
		}
		l.std.Printf("  %+v", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(levelDebug, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(levelInfo, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(levelWarn, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelCritical, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
