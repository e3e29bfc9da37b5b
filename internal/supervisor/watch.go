package supervisor

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WaitForApprovals blocks until every pending approval for the iteration
// has been decided, watching approvals.json for changes instead of
// polling. It returns immediately when nothing is pending.
func (s *Supervisor) WaitForApprovals(ctx context.Context, iterID string) error {
	allDecided := func() (bool, error) {
		store, err := s.approvals(iterID)
		if err != nil {
			return false, err
		}
		return len(store.Pending()) == 0, nil
	}
	if decided, err := allDecided(); err != nil || decided {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: atomic rename-replacement swaps
	// the inode out from under a file-level watch.
	approvalsPath := s.Store.ApprovalsPath(iterID)
	if err := watcher.Add(filepath.Dir(approvalsPath)); err != nil {
		return err
	}

	target := filepath.Base(approvalsPath)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if decided, err := allDecided(); err != nil || decided {
				return err
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}
