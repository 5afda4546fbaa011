package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch starts watching config.toml for external writes (e.g. a second
// relay process calling SetConfigValue, or the file being hand-edited) and
// invokes onChange with the freshly reloaded config after each one. It is
// meant for long-running shells; `relay run` and the other one-shot
// commands have no use for it.
//
// The returned stop function closes the underlying watcher. Errors
// encountered while reloading are swallowed; watch is a convenience for
// picking up external edits, not a source of truth the caller depends on
// for correctness.
func (c *Configer) Watch(onChange func(*Config)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting config watcher: %w", err)
	}

	if err := watcher.Add(c.targetPath); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching config: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := c.LoadConfig()
				if err != nil {
					continue
				}
				onChange(cfg)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Close, nil
}
