package pluginorder

import (
	"fmt"
	"strings"

	"github.com/r3labs/diff/v3"
)

// Change describes one unsaved edit relative to the last load or save.
type Change struct {
	Stage Stage
	Text  string
}

// Dirty reports whether local state differs from the server's last known state.
func (e *Editor) Dirty() bool {
	changes, err := e.Changes()
	return err == nil && len(changes) > 0
}

// Changes lists the unsaved edits per stage.
func (e *Editor) Changes() ([]Change, error) {
	e.mu.Lock()
	from := e.synced
	to := e.snapshot()
	e.mu.Unlock()

	changelog, err := diff.Diff(from, to, diff.SliceOrdering(true))
	if err != nil {
		return nil, fmt.Errorf("failed to diff: %w", err)
	}

	changes := make([]Change, 0, len(changelog))
	for _, change := range changelog {
		if len(change.Path) == 0 {
			continue
		}
		stage := Request
		if strings.EqualFold(change.Path[0], "Response") {
			stage = Response
		}
		changes = append(changes, Change{Stage: stage, Text: formatChange(change)})
	}
	return changes, nil
}

func formatChange(change diff.Change) string {
	position := strings.Join(change.Path[1:], ".")
	switch change.Type {
	case diff.CREATE:
		return fmt.Sprintf("position %s now holds %v", position, change.To)
	case diff.UPDATE:
		return fmt.Sprintf("position %s changed from %v to %v", position, change.From, change.To)
	case diff.DELETE:
		return fmt.Sprintf("position %s no longer holds %v", position, change.From)
	}
	return ""
}
