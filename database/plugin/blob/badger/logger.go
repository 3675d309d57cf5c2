// Copyright 2025 Blink Labs Software
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

package badger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// BadgerLogger forwards badger's printf-style log calls to slog
type BadgerLogger struct {
	logger *slog.Logger
}

func NewBadgerLogger(logger *slog.Logger) *BadgerLogger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &BadgerLogger{
		logger: logger.With("component", "database", "store", "journal"),
	}
}

func (b *BadgerLogger) logf(level slog.Level, format string, args []any) {
	ctx := context.Background()
	if !b.logger.Enabled(ctx, level) {
		return
	}
	b.logger.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (b *BadgerLogger) Errorf(format string, args ...any) {
	b.logf(slog.LevelError, format, args)
}

func (b *BadgerLogger) Warningf(format string, args ...any) {
	b.logf(slog.LevelWarn, format, args)
}

func (b *BadgerLogger) Infof(format string, args ...any) {
	b.logf(slog.LevelInfo, format, args)
}

func (b *BadgerLogger) Debugf(format string, args ...any) {
	b.logf(slog.LevelDebug, format, args)
}
