package console

import (
	"context"
	"net/http"

	"filterdesk/pkg/session"
)

type browserKey struct{}

func browserFrom(ctx context.Context) *Browser {
	b, _ := ctx.Value(browserKey{}).(*Browser)
	return b
}

// withBrowser attaches the caller's Browser to the request, creating one
// and setting its cookie when the caller has none or it expired.
func (s *Server) withBrowser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var browser *Browser
		if cookie, err := r.Cookie(cookieName); err == nil {
			browser, _ = s.store.Get(cookie.Value)
		}
		if browser == nil {
			created, err := s.store.Create()
			if err != nil {
				s.log.Error("failed to create browser session", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			browser = created
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    browser.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.Console.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), browserKey{}, browser)))
	})
}

// requireAccess applies the access gate. It waits a little for the startup
// checks and renders the loading placeholder if they are still running.
func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		browser := browserFrom(r.Context())
		if browser == nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.opts.Console.ResolveWait)
		browser.holder.Wait(ctx)
		cancel()

		decision := browser.gate.Decide()
		switch decision.Outcome {
		case session.Allow:
			next.ServeHTTP(w, r)
		case session.Redirect:
			s.log.Debug("gate redirect", "browser", browser.ID, "path", r.URL.Path, "target", decision.Target)
			http.Redirect(w, r, decision.Target, http.StatusSeeOther)
		default:
			s.render(w, "loading", pageData{Title: "Loading", Refresh: true})
		}
	})
}

type browserHandler func(w http.ResponseWriter, r *http.Request, b *Browser)

// handle runs h holding the browser's lock.
func (s *Server) handle(h browserHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		browser := browserFrom(r.Context())
		if browser == nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		browser.mu.Lock()
		defer browser.mu.Unlock()
		h(w, r, browser)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
