// Copyright 2024 Intel Corporation. All Rights Reserved.
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

package dirtytrack

import (
	"fmt"
	"time"

	goxrate "golang.org/x/time/rate"
	"k8s.io/klog/v2"
)

// Logger is the logging interface of this package. The default
// implementation writes through klog; tests and embedding programs can
// replace it with SetLogger.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

const logPrefix = "dirtytrack: "

var log Logger = klogLogger{}
var logDebugMessages bool = false

// SetLogger replaces the logger used by this package.
func SetLogger(l Logger) {
	log = l
}

// SetLogDebug enables or disables debug messages.
func SetLogDebug(debug bool) {
	logDebugMessages = debug
}

// pkgLogger forwards to the current package logger, so wrappers built
// around it keep working when SetLogger replaces the logger.
type pkgLogger struct{}

func (pkgLogger) Debugf(format string, v ...interface{}) { log.Debugf(format, v...) }
func (pkgLogger) Infof(format string, v ...interface{})  { log.Infof(format, v...) }
func (pkgLogger) Warnf(format string, v ...interface{})  { log.Warnf(format, v...) }
func (pkgLogger) Errorf(format string, v ...interface{}) { log.Errorf(format, v...) }

type klogLogger struct{}

func (klogLogger) Debugf(format string, v ...interface{}) {
	if logDebugMessages {
		klog.InfoDepth(1, fmt.Sprintf("DEBUG: "+logPrefix+format, v...))
	}
}

func (klogLogger) Infof(format string, v ...interface{}) {
	klog.InfoDepth(1, fmt.Sprintf(logPrefix+format, v...))
}

func (klogLogger) Warnf(format string, v ...interface{}) {
	klog.WarningDepth(1, fmt.Sprintf(logPrefix+format, v...))
}

func (klogLogger) Errorf(format string, v ...interface{}) {
	klog.ErrorDepth(1, fmt.Sprintf(logPrefix+format, v...))
}

// ratelimited drops messages that repeat faster than the given
// interval. Scan failures of a racing region would otherwise repeat on
// every tick.
type ratelimited struct {
	Logger
	limit    goxrate.Limit
	burst    int
	limiters map[string]*goxrate.Limiter
}

// maxRatelimitedMessages bounds the per-message limiter table.
const maxRatelimitedMessages = 256

// rateLimit returns a logger that passes each distinct message through
// at most once per interval.
func rateLimit(l Logger, interval time.Duration) Logger {
	return &ratelimited{
		Logger:   l,
		limit:    goxrate.Every(interval),
		burst:    1,
		limiters: make(map[string]*goxrate.Limiter),
	}
}

func (rl *ratelimited) Warnf(format string, v ...interface{}) {
	if msg := rl.filter(format, v...); msg != "" {
		rl.Logger.Warnf("%s", msg)
	}
}

func (rl *ratelimited) Errorf(format string, v ...interface{}) {
	if msg := rl.filter(format, v...); msg != "" {
		rl.Logger.Errorf("%s", msg)
	}
}

func (rl *ratelimited) filter(format string, v ...interface{}) string {
	msg := fmt.Sprintf(format, v...)
	lim, ok := rl.limiters[msg]
	if !ok {
		if len(rl.limiters) >= maxRatelimitedMessages {
			rl.limiters = make(map[string]*goxrate.Limiter)
		}
		lim = goxrate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[msg] = lim
	}
	if !lim.Allow() {
		return ""
	}
	return msg
}
