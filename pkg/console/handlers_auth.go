package console

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"filterdesk/pkg/session"
)

func (s *Server) loginPage(w http.ResponseWriter, _ *http.Request, b *Browser) {
	s.render(w, "login", b.page("Login", ""))
}

func (s *Server) registerPage(w http.ResponseWriter, _ *http.Request, b *Browser) {
	s.render(w, "register", b.page("Register", ""))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, b *Browser) {
	username, password, ok := credentialsFrom(r)
	if !ok {
		b.notice = "Username and password are required."
		redirect(w, r, session.RouteLogin)
		return
	}
	s.awaitResolve(r.Context(), b)

	err := b.holder.Login(r.Context(), username, password)
	s.audit.Record(b.ID, "login", username, err)
	if err != nil {
		if errors.Is(err, session.ErrLoginRejected) {
			b.notice = "Invalid username or password."
		} else {
			b.notice = "Login failed, the settings API is unreachable."
		}
		redirect(w, r, session.RouteLogin)
		return
	}
	redirect(w, r, "/white-list")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, b *Browser) {
	username, password, ok := credentialsFrom(r)
	if !ok {
		b.notice = "Username and password are required."
		redirect(w, r, session.RouteRegister)
		return
	}
	s.awaitResolve(r.Context(), b)

	err := b.holder.Register(r.Context(), username, password)
	s.audit.Record(b.ID, "register", username, err)
	if err != nil {
		b.notice = "Registration failed."
		redirect(w, r, session.RouteRegister)
		return
	}
	redirect(w, r, session.RouteLogin)
}

// awaitResolve keeps the startup checks from overwriting the outcome of a
// login or registration submitted while they are still running.
func (s *Server) awaitResolve(ctx context.Context, b *Browser) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Console.ResolveWait)
	defer cancel()
	if !b.holder.Wait(ctx) {
		s.log.Warn("session still resolving", "browser", b.ID)
	}
}

func credentialsFrom(r *http.Request) (string, string, bool) {
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	return username, password, username != "" && password != ""
}
