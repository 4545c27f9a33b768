// Copyright 2025 Tom Barlow
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

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads configPath on every write event and calls onChange with
// the reloaded Config. Only the WorkerConfig fields are meant to be
// changed this way in practice (concurrency, batch size, poll interval);
// Postgres.DSN and Log are read once at process start in every binary
// that uses this package, but Watch doesn't special-case that — it hands
// back whatever Load produces and leaves it to the caller to decide what
// to apply live. It blocks until ctx is canceled.
func Watch(ctx context.Context, configPath string, logger *slog.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(configPath)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watching config directory %s: %w", dir, err)
	}

	logger.Info("watching config file for changes", "path", configPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(configPath)
			if err != nil {
				logger.Error("config reload failed, keeping previous configuration", "error", err)
				continue
			}
			logger.Info("config reloaded")
			onChange(cfg)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher error", "error", err)
		}
	}
}
