package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// RulesWatcher reloads a rules file into a Validator whenever it changes on
// disk. A file that fails to parse is logged and the previous table stays
// active.
type RulesWatcher struct {
	path      string
	validator *Validator
	log       zerolog.Logger
	watcher   *fsnotify.Watcher
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewRulesWatcher(path string, v *Validator, log zerolog.Logger) *RulesWatcher {
	return &RulesWatcher{
		path:      filepath.Clean(path),
		validator: v,
		log:       log.With().Str("component", "rules_watcher").Logger(),
		done:      make(chan struct{}),
	}
}

// Start watches the file's directory so that editors which replace the file
// by rename are picked up too. The loop exits when ctx is cancelled or Stop
// is called.
func (w *RulesWatcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		close(w.done)
		return fmt.Errorf("rules watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		close(w.done)
		return fmt.Errorf("rules watcher: watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = fw

	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)

	w.log.Info().Str("path", w.path).Msg("watching rules file")
	return nil
}

// Stop signals the watcher to exit and waits for it to finish. It is a
// no-op on a watcher that was never started.
func (w *RulesWatcher) Stop() {
	if w.watcher == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *RulesWatcher) loop(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("rules watcher error")
		}
	}
}

func (w *RulesWatcher) reload() {
	rs, err := LoadRulesFile(w.path)
	if err != nil {
		w.log.Error().Err(err).Msg("rules reload failed; keeping previous rules")
		return
	}
	w.validator.Swap(rs)
	w.log.Info().Int("edges", len(rs.Rules())).Msg("rules reloaded")
}
