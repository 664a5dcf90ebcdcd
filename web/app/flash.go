package app

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const flashKey = "_flash"

// NewSessionStore creates the signed cookie store that carries flash messages
// across the post-redirect-get cycle.
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (a *App) addFlash(w http.ResponseWriter, r *http.Request, msg string) error {
	session, _ := a.sessions.Get(r, a.sessionName)
	session.AddFlash(msg, flashKey)
	return session.Save(r, w)
}

// flashes pops pending messages. A tampered or stale cookie yields none.
func (a *App) flashes(w http.ResponseWriter, r *http.Request) []string {
	session, err := a.sessions.Get(r, a.sessionName)
	if err != nil {
		return nil
	}

	pending := session.Flashes(flashKey)
	if len(pending) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(pending))
	for _, f := range pending {
		if s, ok := f.(string); ok {
			msgs = append(msgs, s)
		}
	}

	if err := session.Save(r, w); err != nil {
		a.logger.Warn("clear flashes failed", "error", err)
	}
	return msgs
}
