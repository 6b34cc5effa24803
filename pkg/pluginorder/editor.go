// Package pluginorder edits the execution order of the request and response
// plugin stages locally and pushes both stages to the settings API on save.
package pluginorder

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mitchellh/copystructure"

	"filterdesk/pkg/settingsapi"
)

// Stage names one of the two plugin sequences.
type Stage string

const (
	// Request plugins run on the client's request.
	Request Stage = "request"
	// Response plugins run on the upstream response.
	Response Stage = "response"
)

// ParseStage maps a form value to a Stage.
func ParseStage(raw string) (Stage, bool) {
	switch Stage(raw) {
	case Request, Response:
		return Stage(raw), true
	default:
		return "", false
	}
}

// Store is the part of the settings API the editor needs.
type Store interface {
	Plugins(ctx context.Context) (settingsapi.PluginLists, error)
	SavePluginOrder(ctx context.Context, lists settingsapi.PluginLists) error
}

// Lists is the editor's view of both stages.
type Lists struct {
	Request  []string
	Response []string
}

// Editor holds both stages. Reorder and Delete only touch local state; Save
// overwrites the server with both stages at once.
type Editor struct {
	store Store
	log   *slog.Logger

	mu     sync.Mutex
	lists  Lists
	synced Lists
}

// NewEditor creates an Editor with empty stages.
func NewEditor(store Store, log *slog.Logger) *Editor {
	if log == nil {
		log = slog.Default()
	}
	return &Editor{
		store:  store,
		log:    log,
		lists:  Lists{Request: []string{}, Response: []string{}},
		synced: Lists{Request: []string{}, Response: []string{}},
	}
}

// Load replaces local state with the server's stages. On failure both stages
// become empty and the error is returned after being logged.
func (e *Editor) Load(ctx context.Context) error {
	fetched, err := e.store.Plugins(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.log.Error("failed to fetch plugin lists", "error", err)
		e.lists = Lists{Request: []string{}, Response: []string{}}
		e.synced = e.snapshot()
		return fmt.Errorf("load plugin order: %w", err)
	}

	e.lists = Lists{
		Request:  nonNil(slices.Clone(fetched.Request)),
		Response: nonNil(slices.Clone(fetched.Response)),
	}
	e.synced = e.snapshot()
	return nil
}

// Reorder moves the element at from to index to within one stage, shifting
// the elements in between. Out-of-range indices and unknown stages are a
// no-op. It reports whether the stage changed.
func (e *Editor) Reorder(stage Stage, from, to int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	list, ok := e.stage(stage)
	if !ok {
		return false
	}
	if from < 0 || from >= len(*list) || to < 0 || to >= len(*list) {
		return false
	}
	if from == to {
		return false
	}

	item := (*list)[from]
	moved := slices.Delete(slices.Clone(*list), from, from+1)
	moved = slices.Insert(moved, to, item)
	*list = moved
	return true
}

// Move is the drag-and-drop entry point. Dropping onto the other stage is
// ignored.
func (e *Editor) Move(fromStage Stage, from int, toStage Stage, to int) bool {
	if fromStage != toStage {
		e.log.Debug("ignoring cross-stage plugin move", "from", fromStage, "to", toStage)
		return false
	}
	return e.Reorder(fromStage, from, to)
}

// Delete removes the element at index from one stage. Out-of-range indices
// are a no-op. It reports whether the stage changed.
func (e *Editor) Delete(stage Stage, index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	list, ok := e.stage(stage)
	if !ok {
		return false
	}
	if index < 0 || index >= len(*list) {
		return false
	}
	*list = slices.Delete(slices.Clone(*list), index, index+1)
	return true
}

// Save sends both stages in one request. Local state is left untouched when
// the request fails.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	lists := e.snapshot()
	e.mu.Unlock()

	err := e.store.SavePluginOrder(ctx, settingsapi.PluginLists{
		Request:  lists.Request,
		Response: lists.Response,
	})
	if err != nil {
		e.log.Error("failed to send new plugin order", "error", err)
		return fmt.Errorf("save plugin order: %w", err)
	}

	e.mu.Lock()
	e.synced = lists
	e.mu.Unlock()
	e.log.Info("plugin order saved", "request", len(lists.Request), "response", len(lists.Response))
	return nil
}

// Stages returns a copy of both stages.
func (e *Editor) Stages() Lists {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Editor) stage(stage Stage) (*[]string, bool) {
	switch stage {
	case Request:
		return &e.lists.Request, true
	case Response:
		return &e.lists.Response, true
	default:
		return nil, false
	}
}

func (e *Editor) snapshot() Lists {
	copied, err := copystructure.Copy(e.lists)
	if err != nil {
		// copystructure only fails on unsupported kinds; Lists holds slices of strings.
		return Lists{Request: slices.Clone(e.lists.Request), Response: slices.Clone(e.lists.Response)}
	}
	return copied.(Lists)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
