package utils

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	activityTimestampLayoutConstant          = "2006-01-02 15:04:05"
	activityTimestampTemplateConstant        = "[%s]"
	activityMessageKeyConstant               = "msg"
	activityTimeKeyConstant                  = "ts"
	activityConsoleSeparatorConstant         = " "
	activityLogFileOpenErrorTemplateConstant = "failed to open activity log file %s: %w"
	activityLogFilePermissionsConstant       = 0o644
)

// ActivityLogFileOpenError reports an activity log file that could not be opened for appending.
type ActivityLogFileOpenError struct {
	Path  string
	Cause error
}

// Error describes the failed open.
func (openError ActivityLogFileOpenError) Error() string {
	return fmt.Errorf(activityLogFileOpenErrorTemplateConstant, openError.Path, openError.Cause).Error()
}

// Unwrap exposes the underlying cause.
func (openError ActivityLogFileOpenError) Unwrap() error {
	return openError.Cause
}

// CreateActivityLogger builds a logger emitting bracket-timestamped lines to standard output
// and appending the same lines to the file at logFilePath.
//
// A usable logger is always returned. When the log file cannot be opened the logger writes to
// standard output only and the returned error carries an ActivityLogFileOpenError so callers
// can surface the degradation.
func (factory *LoggerFactory) CreateActivityLogger(logFilePath string) (*zap.Logger, error) {
	encoder := zapcore.NewConsoleEncoder(activityEncoderConfiguration())

	writeSyncers := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}

	var openError error
	if len(logFilePath) > 0 {
		logFile, fileError := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, activityLogFilePermissionsConstant)
		if fileError != nil {
			openError = ActivityLogFileOpenError{Path: logFilePath, Cause: fileError}
		} else {
			writeSyncers = append(writeSyncers, zapcore.Lock(zapcore.AddSync(logFile)))
		}
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writeSyncers...), zapcore.InfoLevel)
	return zap.New(core), openError
}

func activityEncoderConfiguration() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:       activityMessageKeyConstant,
		TimeKey:          activityTimeKeyConstant,
		LevelKey:         zapcore.OmitKey,
		NameKey:          zapcore.OmitKey,
		CallerKey:        zapcore.OmitKey,
		StacktraceKey:    zapcore.OmitKey,
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       encodeActivityTimestamp,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: activityConsoleSeparatorConstant,
	}
}

func encodeActivityTimestamp(timestamp time.Time, encoder zapcore.PrimitiveArrayEncoder) {
	encoder.AppendString(fmt.Sprintf(activityTimestampTemplateConstant, timestamp.Format(activityTimestampLayoutConstant)))
}
