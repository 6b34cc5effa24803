package console

import (
	"context"
	"log/slog"
	"sync"

	"filterdesk/pkg/pluginorder"
	"filterdesk/pkg/session"
	"filterdesk/pkg/settingsapi"
	"filterdesk/pkg/views"
)

// Browser is the console state of one operator's browser. It owns its own
// settings API client so the API session cookie is never shared.
type Browser struct {
	ID string

	// mu serialises the handlers of one browser.
	mu sync.Mutex

	holder   *session.Holder
	gate     *session.Gate
	editor   *pluginorder.Editor
	domains  *views.DomainList
	contents *views.ContentList
	plugins  *views.PluginFiles

	editorLoaded bool
	alert        *views.Alert
	notice       string
	check        *hostCheck
}

func newBrowser(id string, client *settingsapi.Client, log *slog.Logger) *Browser {
	log = log.With("browser", id)
	holder := session.NewHolder(client, log)
	return &Browser{
		ID:       id,
		holder:   holder,
		gate:     session.NewGate(holder),
		editor:   pluginorder.NewEditor(client, log),
		domains:  views.NewDomainList(client, log),
		contents: views.NewContentList(client, log),
		plugins:  views.NewPluginFiles(client, log),
	}
}

// resolve runs the startup checks. Failures are already logged by the holder.
func (b *Browser) resolve(ctx context.Context) {
	_ = b.holder.Resolve(ctx)
}

// page starts the data of a page and consumes the pending alert and notice.
func (b *Browser) page(title, active string) pageData {
	data := pageData{
		Title:  title,
		Active: active,
		Nav:    active != "",
		Alert:  b.alert,
		Notice: b.notice,
	}
	b.alert, b.notice = nil, ""
	return data
}
