package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"filterdesk/pkg/settingsapi"
)

// PluginAPI is the part of the settings API behind the plugin manager.
type PluginAPI interface {
	Plugins(ctx context.Context) (settingsapi.PluginLists, error)
	UploadPlugin(ctx context.Context, filename string, src io.Reader) error
	DeletePlugin(ctx context.Context, name string) error
}

// Alert is a message the operator has to acknowledge.
type Alert struct {
	Message string
	Failed  bool
}

// PluginFiles is the plugin manager screen: every known plugin once,
// request stage first.
type PluginFiles struct {
	api PluginAPI
	log *slog.Logger

	mu      sync.Mutex
	plugins []string
}

// NewPluginFiles creates an empty PluginFiles.
func NewPluginFiles(api PluginAPI, log *slog.Logger) *PluginFiles {
	if log == nil {
		log = slog.Default()
	}
	return &PluginFiles{api: api, log: log, plugins: []string{}}
}

// Reload refetches both stages and keeps their deduplicated union. A listing
// missing one stage still yields the other.
func (p *PluginFiles) Reload(ctx context.Context) error {
	lists, err := p.api.Plugins(ctx)
	if err != nil && !errors.Is(err, settingsapi.ErrIncompleteLists) {
		p.log.Error("failed to fetch plugins", "error", err)
		return fmt.Errorf("fetch plugins: %w", err)
	}
	union := Union(lists.Request, lists.Response)
	p.mu.Lock()
	p.plugins = union
	p.mu.Unlock()
	return nil
}

// Plugins returns a copy of the current union.
func (p *PluginFiles) Plugins() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.plugins)
}

// Upload sends a plugin file and reloads the list on success.
func (p *PluginFiles) Upload(ctx context.Context, filename string, src io.Reader) Alert {
	if err := p.api.UploadPlugin(ctx, filename, src); err != nil {
		p.log.Error("failed to upload file", "file", filename, "error", err)
		return Alert{Message: "Failed to upload file", Failed: true}
	}
	if err := p.Reload(ctx); err != nil {
		p.log.Warn("plugin list is stale after upload", "error", err)
	}
	return Alert{Message: "File uploaded successfully"}
}

// Delete removes a plugin file and reloads the list on success.
func (p *PluginFiles) Delete(ctx context.Context, name string) Alert {
	if err := p.api.DeletePlugin(ctx, name); err != nil {
		p.log.Error("failed to delete plugin", "plugin", name, "error", err)
		return Alert{Message: "Failed to delete plugin", Failed: true}
	}
	if err := p.Reload(ctx); err != nil {
		p.log.Warn("plugin list is stale after delete", "error", err)
	}
	return Alert{Message: "Plugin removed successfully"}
}

// Union concatenates the lists and drops repeats, keeping first occurrences.
func Union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, item := range list {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
