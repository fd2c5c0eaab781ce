package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/transformer/internal/core"
	"github.com/JonMunkholm/transformer/internal/logging"
	mw "github.com/JonMunkholm/transformer/internal/web/middleware"
	"github.com/JonMunkholm/transformer/internal/web/templates"
)

// SessionHeader lets API clients carry the session without cookies.
const SessionHeader = "X-Session-ID"

const flashCookie = "flash"

const (
	maxFlashes       = 10
	maxFlashMessage  = 200
	flashKindSuccess = "success"
	flashKindError   = "error"
	flashKindInfo    = "info"
	flashKindWarning = "warning"
)

type ctxKey int

const sessionCtxKey ctxKey = iota

// sessionMiddleware resolves the caller's session from the X-Session-ID
// header or the session cookie, creating one when neither names a live
// session. The ID is echoed in both so either client style can keep it.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
				id = c.Value
			}
		}

		sess, created := s.service.SessionOrNew(id)
		if created {
			logging.FromContext(r.Context()).Debug("session created", "session_id", sess.ID, "replaced", id != "")
		}

		http.SetCookie(w, &http.Cookie{
			Name:     s.cfg.Session.CookieName,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   int(s.cfg.Session.TTL.Seconds()),
			HttpOnly: true,
			Secure:   s.cfg.Session.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set(SessionHeader, sess.ID)

		ctx := context.WithValue(r.Context(), sessionCtxKey, sess)
		ctx = logging.WithSessionID(ctx, sess.ID)
		ctx = core.WithRequestMeta(ctx, core.RequestMeta{
			IPAddress: mw.ClientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session attached by sessionMiddleware.
func sessionFrom(r *http.Request) *core.Session {
	sess, _ := r.Context().Value(sessionCtxKey).(*core.Session)
	return sess
}

// redirectHome finishes a form post: queue flashes and send the browser back
// to the page, anchored at fragment when given.
func redirectHome(w http.ResponseWriter, r *http.Request, fragment string, flashes ...templates.Flash) {
	setFlashes(w, flashes)
	target := "/"
	if fragment != "" {
		target += "#" + fragment
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func setFlashes(w http.ResponseWriter, flashes []templates.Flash) {
	if len(flashes) == 0 {
		return
	}
	if len(flashes) > maxFlashes {
		flashes = flashes[:maxFlashes]
	}
	for i := range flashes {
		if m := flashes[i].Message; len(m) > maxFlashMessage {
			flashes[i].Message = m[:maxFlashMessage] + "…"
		}
	}

	data, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes reads and clears queued flashes.
func popFlashes(w http.ResponseWriter, r *http.Request) []templates.Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []templates.Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}

func errorFlash(err error) templates.Flash {
	return templates.Flash{Kind: flashKindError, Message: core.FormatUserError(err)}
}
