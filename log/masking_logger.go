/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/ssgreg/logf"
)

// StringMasker hides secrets in a string.
type StringMasker interface {
	Mask(s string) string
}

// MaskingLogger masks secrets in messages and string-like fields before passing them to the underlying logger.
// Crawl targets and transport errors may carry credentials, so the application logger is wrapped with it.
type MaskingLogger struct {
	log    FieldLogger
	masker StringMasker
}

var _ FieldLogger = MaskingLogger{}

// NewMaskingLogger wraps l.
func NewMaskingLogger(l FieldLogger, m StringMasker) FieldLogger {
	return MaskingLogger{l, m}
}

// With returns a new logger with the given additional (masked) fields.
func (l MaskingLogger) With(fs ...Field) FieldLogger {
	return MaskingLogger{l.log.With(l.maskFields(fs)...), l.masker}
}

// Debug logs message at "debug" level.
func (l MaskingLogger) Debug(text string, fs ...Field) {
	l.log.Debug(l.masker.Mask(text), l.maskFields(fs)...)
}

// Info logs message at "info" level.
func (l MaskingLogger) Info(text string, fs ...Field) {
	l.log.Info(l.masker.Mask(text), l.maskFields(fs)...)
}

// Warn logs message at "warn" level.
func (l MaskingLogger) Warn(text string, fs ...Field) {
	l.log.Warn(l.masker.Mask(text), l.maskFields(fs)...)
}

// Error logs message at "error" level.
func (l MaskingLogger) Error(text string, fs ...Field) {
	l.log.Error(l.masker.Mask(text), l.maskFields(fs)...)
}

// Debugf logs a formatted message at "debug" level.
func (l MaskingLogger) Debugf(format string, args ...interface{}) {
	l.atLevelf(LevelDebug, format, args...)
}

// Infof logs a formatted message at "info" level.
func (l MaskingLogger) Infof(format string, args ...interface{}) {
	l.atLevelf(LevelInfo, format, args...)
}

// Warnf logs a formatted message at "warn" level.
func (l MaskingLogger) Warnf(format string, args ...interface{}) {
	l.atLevelf(LevelWarn, format, args...)
}

// Errorf logs a formatted message at "error" level.
func (l MaskingLogger) Errorf(format string, args ...interface{}) {
	l.atLevelf(LevelError, format, args...)
}

func (l MaskingLogger) atLevelf(level Level, format string, args ...interface{}) {
	l.AtLevel(level, func(logFunc LogFunc) {
		logFunc(fmt.Sprintf(format, args...))
	})
}

// AtLevel calls fn if logging at the level is enabled. Everything logged through the passed LogFunc is masked.
func (l MaskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		fn(func(msg string, fs ...Field) {
			logFunc(l.masker.Mask(msg), l.maskFields(fs)...)
		})
	})
}

// WithLevel returns a new logger with additional level check.
func (l MaskingLogger) WithLevel(level Level) FieldLogger {
	return MaskingLogger{l.log.WithLevel(level), l.masker}
}

var stringSliceType = reflect.TypeOf([]string{})

// maskFields returns fs itself when nothing was masked, otherwise a copy with masked fields replaced.
func (l MaskingLogger) maskFields(fs []Field) []Field {
	var masked []Field
	for i := range fs {
		f, changed := l.maskField(fs[i])
		if !changed {
			continue
		}
		if masked == nil {
			masked = make([]Field, len(fs))
			copy(masked, fs)
		}
		masked[i] = f
	}
	if masked == nil {
		return fs
	}
	return masked
}

func (l MaskingLogger) maskField(f Field) (Field, bool) {
	switch f.Type {
	case logf.FieldTypeBytesToString:
		s := string(f.Bytes)
		if m := l.masker.Mask(s); m != s {
			return String(f.Key, m), true
		}
	case logf.FieldTypeBytes, logf.FieldTypeRawBytes:
		if f.Bytes == nil {
			break
		}
		s := string(f.Bytes)
		if m := l.masker.Mask(s); m != s {
			return logf.ConstBytes(f.Key, []byte(m)), true
		}
	case logf.FieldTypeError:
		err, ok := f.Any.(error)
		if !ok || err == nil {
			break
		}
		s := err.Error()
		if m := l.masker.Mask(s); m != s {
			return NamedError(f.Key, newMaskedError(err, l.masker, m)), true
		}
	case logf.FieldTypeArray:
		if f.Any == nil {
			break
		}
		v := reflect.ValueOf(f.Any)
		if !v.CanConvert(stringSliceType) {
			break
		}
		ss := v.Convert(stringSliceType).Interface().([]string)
		var changed bool
		ms := make([]string, len(ss))
		for i, s := range ss {
			ms[i] = l.masker.Mask(s)
			changed = changed || ms[i] != s
		}
		if changed {
			return Strings(f.Key, ms), true
		}
	}
	return f, false
}

func newMaskedError(err error, m StringMasker, masked string) error {
	if _, ok := err.(fmt.Formatter); ok {
		return maskedError{s: masked, verbose: m.Mask(fmt.Sprintf("%+v", err))}
	}
	return errors.New(masked)
}

// maskedError keeps the masked verbose form for the "error_verbose" field.
type maskedError struct {
	s       string
	verbose string
}

func (e maskedError) Error() string {
	return e.s
}

func (e maskedError) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, e.verbose)
}
