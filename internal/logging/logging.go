// Package logging installs the process-wide seelog logger.
package logging

import (
	"fmt"
	"testing"

	log "github.com/cihub/seelog"
)

var appConfig = `
<seelog type="sync" minlevel="%s">
  <outputs formatid="qryeval">
    <console />
  </outputs>
  <formats>
    <format id="qryeval" format="qryeval: %%Date %%Time [%%LEV] %%Msg%%n" />
  </formats>
</seelog>
`

// Level maps a verbosity count to a seelog level name.
func Level(verbosity int) string {
	switch {
	case verbosity <= 1:
		return "warn"
	case verbosity == 2:
		return "info"
	case verbosity == 3:
		return "debug"
	default:
		return "trace"
	}
}

// Setup replaces the global logger with a console logger at the given verbosity.
func Setup(verbosity int) error {
	logger, err := log.LoggerFromConfigAsBytes([]byte(fmt.Sprintf(appConfig, Level(verbosity))))
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	return log.ReplaceLogger(logger)
}

// SetupTest installs a logger suited to go test output.
func SetupTest() {
	testConfig := `
<seelog type="sync" minlevel="%s">
  <outputs formatid="test">
    <filter levels="critical,error,warn,info">
      <console formatid="test" />
    </filter>
    <filter levels="trace,debug">
      <console formatid="debug" />
    </filter>
  </outputs>
  <formats>
    <format id="test" format="test: [%%LEV] %%Msg%%n" />
    <format id="debug" format="test: [%%LEV] %%Func :: %%Msg%%n" />
  </formats>
</seelog>
`
	level := "warn"
	if testing.Verbose() {
		level = "debug"
	}
	logger, err := log.LoggerFromConfigAsBytes([]byte(fmt.Sprintf(testConfig, level)))
	if err != nil {
		fmt.Println(err)
		return
	}
	log.ReplaceLogger(logger)
}

// Flush drains buffered log output.
func Flush() {
	log.Flush()
}
