package console

import (
	"net/http"
	"strings"

	"filterdesk/pkg/views"
)

func (s *Server) whiteListPage(w http.ResponseWriter, r *http.Request, b *Browser) {
	data := b.page("White List", "white-list")
	if err := b.domains.Reload(r.Context()); err != nil {
		data.Notice = "Approved domains could not be loaded."
	}
	data.Domains = b.domains.Domains()
	data.Check, b.check = b.check, nil
	s.render(w, "white-list", data)
}

func (s *Server) addDomain(w http.ResponseWriter, r *http.Request, b *Browser) {
	domain := formValue(r, "domain")
	err := b.domains.Add(r.Context(), domain)
	s.audit.Record(b.ID, "domain.add", domain, err)
	if err != nil {
		b.notice = "Could not add domain " + domain + "."
	}
	redirect(w, r, "/white-list")
}

func (s *Server) deleteDomain(w http.ResponseWriter, r *http.Request, b *Browser) {
	domain := formValue(r, "domain")
	err := b.domains.Delete(r.Context(), domain)
	s.audit.Record(b.ID, "domain.delete", domain, err)
	if err != nil {
		b.notice = "Could not delete domain " + domain + "."
	}
	redirect(w, r, "/white-list")
}

func (s *Server) checkHost(w http.ResponseWriter, r *http.Request, b *Browser) {
	host := formValue(r, "host")
	if host != "" {
		if err := b.domains.Reload(r.Context()); err != nil {
			b.notice = "Approved domains could not be loaded, the check used the last known list."
		}
		b.check = &hostCheck{Host: host, Allowed: b.domains.Allows(host)}
	}
	redirect(w, r, "/white-list")
}

func (s *Server) contentPage(w http.ResponseWriter, r *http.Request, b *Browser) {
	data := b.page("Filter Content", "filter-content")
	if err := b.contents.Reload(r.Context()); err != nil {
		data.Notice = "Content policies could not be loaded."
	}
	data.Contents = b.contents.Entries()
	data.Form = b.contents.Form(r.Context())
	s.render(w, "filter-content", data)
}

func (s *Server) addContent(w http.ResponseWriter, r *http.Request, b *Browser) {
	domain, content := formValue(r, "domain"), formValue(r, "content")
	if !views.IsContentType(content) {
		b.notice = "Unknown content type " + content + "."
		redirect(w, r, "/filter-content")
		return
	}
	err := b.contents.Add(r.Context(), domain, content)
	s.audit.Record(b.ID, "content.add", domain+" "+content, err)
	if err != nil {
		b.notice = "Could not allow " + content + " for " + domain + "."
	}
	redirect(w, r, "/filter-content")
}

func (s *Server) deleteContent(w http.ResponseWriter, r *http.Request, b *Browser) {
	domain, content := formValue(r, "domain"), formValue(r, "content")
	err := b.contents.Delete(r.Context(), domain, content)
	s.audit.Record(b.ID, "content.delete", domain+" "+content, err)
	if err != nil {
		b.notice = "Could not remove " + content + " for " + domain + "."
	}
	redirect(w, r, "/filter-content")
}

func formValue(r *http.Request, key string) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}
	return strings.TrimSpace(r.PostForm.Get(key))
}
