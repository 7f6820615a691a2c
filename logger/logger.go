// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger is the process-wide logging sink, exposed as
// package-level Tracef/Debugf/Infof/Warnf/Errorf calls over a single
// logrus instance. It is the one deliberate process global besides the
// panic sink; everything else travels through explicit per-vproc
// context. SetLevel/SetOutput cover init and test teardown.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the minimum level emitted. Valid names: "trace",
// "debug", "info", "warn", "error".
func SetLevel(name string) {
	if lvl, err := logrus.ParseLevel(name); err == nil {
		std.SetLevel(lvl)
	}
}

// SetOutput redirects log output, used by tests to capture or silence it.
func SetOutput(w io.Writer) { std.SetOutput(w) }

func init() {
	if os.Getenv("FUNEX_DEBUG") != "" {
		std.SetLevel(logrus.DebugLevel)
	}
}

func Tracef(format string, args ...interface{}) { std.Tracef(format, args...) }
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { std.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { std.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }

// Fields lets a caller attach structured key/value context, mirroring
// logrus.Fields directly so call sites can pass ordinary maps.
type Fields = logrus.Fields

// WithFields returns an entry that accepts the same Tracef/.../Errorf
// calls, scoped to the given structured fields.
func WithFields(f Fields) *logrus.Entry {
	return std.WithFields(f)
}
