package console

import (
	"errors"
	"net/http"
	"strconv"

	"filterdesk/pkg/pluginorder"
	"filterdesk/pkg/views"
)

func (s *Server) pluginsListPage(w http.ResponseWriter, r *http.Request, b *Browser) {
	data := b.page("Plugins List", "plugins-list")
	if !b.editorLoaded {
		if err := b.editor.Load(r.Context()); err != nil {
			data.Notice = "Plugins could not be loaded."
		}
		b.editorLoaded = true
	}

	lists := b.editor.Stages()
	data.Stages = []stageView{
		newStageView(pluginorder.Request, "Request Plugins", lists.Request),
		newStageView(pluginorder.Response, "Response Plugins", lists.Response),
	}
	changes, err := b.editor.Changes()
	if err != nil {
		s.log.Warn("failed to compute unsaved changes", "browser", b.ID, "error", err)
	}
	data.Changes = changes
	s.render(w, "plugins-list", data)
}

func newStageView(stage pluginorder.Stage, title string, plugins []string) stageView {
	return stageView{Stage: stage, Title: title, Plugins: plugins, Last: len(plugins) - 1}
}

func (s *Server) movePlugin(w http.ResponseWriter, r *http.Request, b *Browser) {
	fromStage, okFrom := pluginorder.ParseStage(formValue(r, "stage"))
	toStage, okTo := pluginorder.ParseStage(formValue(r, "to_stage"))
	from, errFrom := strconv.Atoi(formValue(r, "from"))
	to, errTo := strconv.Atoi(formValue(r, "to"))
	if !okFrom || !okTo || errFrom != nil || errTo != nil {
		http.Error(w, "invalid move", http.StatusBadRequest)
		return
	}
	if !b.editor.Move(fromStage, from, toStage, to) {
		s.log.Debug("plugin move ignored", "browser", b.ID, "stage", fromStage, "from", from, "to_stage", toStage, "to", to)
	}
	redirect(w, r, "/plugins-list")
}

func (s *Server) removePlugin(w http.ResponseWriter, r *http.Request, b *Browser) {
	stage, ok := pluginorder.ParseStage(formValue(r, "stage"))
	index, err := strconv.Atoi(formValue(r, "index"))
	if !ok || err != nil {
		http.Error(w, "invalid plugin", http.StatusBadRequest)
		return
	}
	b.editor.Delete(stage, index)
	redirect(w, r, "/plugins-list")
}

func (s *Server) savePlugins(w http.ResponseWriter, r *http.Request, b *Browser) {
	err := b.editor.Save(r.Context())
	s.audit.Record(b.ID, "plugins.save", "", err)
	if err != nil {
		b.notice = "Failed to save the plugin order."
	} else {
		b.notice = "Plugin order saved."
	}
	redirect(w, r, "/plugins-list")
}

func (s *Server) reloadPlugins(w http.ResponseWriter, r *http.Request, b *Browser) {
	if err := b.editor.Load(r.Context()); err != nil {
		b.notice = "Plugins could not be loaded."
	}
	b.editorLoaded = true
	redirect(w, r, "/plugins-list")
}

func (s *Server) pluginsManagerPage(w http.ResponseWriter, r *http.Request, b *Browser) {
	data := b.page("Plugins Manager", "plugins-manager")
	if err := b.plugins.Reload(r.Context()); err != nil {
		data.Notice = "Plugins could not be loaded."
	}
	data.Plugins = b.plugins.Plugins()
	s.render(w, "plugins-manager", data)
}

func (s *Server) uploadPlugin(w http.ResponseWriter, r *http.Request, b *Browser) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.log.Error("failed to read uploaded file", "browser", b.ID, "error", err)
		b.alert = &views.Alert{Message: "Failed to upload file", Failed: true}
		redirect(w, r, "/plugins-manager")
		return
	}
	defer file.Close()

	alert := b.plugins.Upload(r.Context(), header.Filename, file)
	s.audit.Record(b.ID, "plugin.upload", header.Filename, alertErr(alert))
	b.alert = &alert
	b.editorLoaded = false
	redirect(w, r, "/plugins-manager")
}

func (s *Server) deletePluginFile(w http.ResponseWriter, r *http.Request, b *Browser) {
	name := formValue(r, "plugin")
	alert := b.plugins.Delete(r.Context(), name)
	s.audit.Record(b.ID, "plugin.delete", name, alertErr(alert))
	b.alert = &alert
	b.editorLoaded = false
	redirect(w, r, "/plugins-manager")
}

func alertErr(alert views.Alert) error {
	if alert.Failed {
		return errors.New(alert.Message)
	}
	return nil
}
