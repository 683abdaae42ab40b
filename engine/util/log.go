package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var GLOBAL_LOG_LEVEL = LogLevelInfo
var GLOBAL_LOG_CATEGORIES = LogVoxel | LogGeneration | LogIO | LogSystem

var (
	logMutex  sync.Mutex
	logOutput io.Writer = os.Stderr
)

type LogLevel int

const (
	LogLevelError LogLevel = 1 << iota
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

type LogCategory int

const (
	LogVoxel LogCategory = 1 << iota
	LogGeneration
	LogCollision
	LogIO
	LogSystem
)

const LogAllCategories = LogVoxel | LogGeneration | LogCollision | LogIO | LogSystem

var levelNames = map[string]LogLevel{
	"error":   LogLevelError,
	"warning": LogLevelWarning,
	"info":    LogLevelInfo,
	"debug":   LogLevelDebug,
}

var categoryNames = map[string]LogCategory{
	"voxel":      LogVoxel,
	"generation": LogGeneration,
	"collision":  LogCollision,
	"io":         LogIO,
	"system":     LogSystem,
	"all":        LogAllCategories,
}

// SetLogOutput redirects all log lines and returns the previous writer.
func SetLogOutput(w io.Writer) io.Writer {
	logMutex.Lock()
	defer logMutex.Unlock()
	previous := logOutput
	logOutput = w
	return previous
}

func ParseLogLevel(name string) (LogLevel, error) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

func ParseLogCategories(names []string) (LogCategory, error) {
	var cats LogCategory
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		cat, ok := categoryNames[name]
		if !ok {
			return 0, errors.Errorf("unknown log category %q", name)
		}
		cats |= cat
	}
	return cats, nil
}

func log(cat LogCategory, lvl LogLevel, txt string) {
	if lvl > GLOBAL_LOG_LEVEL {
		return
	}
	if GLOBAL_LOG_CATEGORIES&cat == 0 {
		return
	}
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Fprintln(logOutput, txt)
}

func LogVoxelInfo(txt string) {
	log(LogVoxel, LogLevelInfo, txt)
}

func LogVoxelDebug(txt string) {
	log(LogVoxel, LogLevelDebug, txt)
}

func LogGenerationInfo(txt string) {
	log(LogGeneration, LogLevelInfo, txt)
}

func LogGenerationDebug(txt string) {
	log(LogGeneration, LogLevelDebug, txt)
}

func LogGenerationWarning(txt string) {
	log(LogGeneration, LogLevelWarning, txt)
}

func LogGenerationError(txt string) {
	log(LogGeneration, LogLevelError, txt)
}

func LogCollisionDebug(txt string) {
	log(LogCollision, LogLevelDebug, txt)
}

func LogIOInfo(txt string) {
	log(LogIO, LogLevelInfo, txt)
}

func LogIOError(txt string) {
	log(LogIO, LogLevelError, txt)
}

func LogSystemInfo(txt string) {
	log(LogSystem, LogLevelInfo, txt)
}

func LogSystemWarning(txt string) {
	log(LogSystem, LogLevelWarning, txt)
}
