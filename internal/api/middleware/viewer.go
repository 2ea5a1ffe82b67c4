package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"hanru_board/internal/app/service"
	"hanru_board/internal/preference"
)

const (
	ViewerIDCookie  = "viewer_id"
	viewerCookieAge = 365 * 24 * time.Hour
)

// ViewerContext resolves who is asking and which display mode applies, and
// stores a service.Viewer in the request context. It must run after
// OptionalAuth or Authenticator.
func ViewerContext(prefs *service.PreferenceService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			v := service.Viewer{}

			if userID, ok := GetUserIDFromContext(ctx); ok {
				v.UserID = userID
				v.ID = userID
				v.Role, _ = GetUserRoleFromContext(ctx)
			} else {
				v.ID = anonymousViewerID(w, r)
			}

			v.Mode, v.ModeExplicit = modeFromQuery(r)
			if !v.ModeExplicit {
				v.Mode = storedMode(ctx, prefs, r, v.ID)
			}
			v.ForceOriginal, _ = strconv.ParseBool(r.URL.Query().Get("original"))

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ViewerCtxKey, v)))
		})
	}
}

func storedMode(ctx context.Context, prefs *service.PreferenceService, r *http.Request, viewerID string) preference.Mode {
	if c, err := r.Cookie(preference.StorageKey); err == nil {
		if m, ok := preference.ParseMode(c.Value); ok {
			return m
		}
	}
	if prefs != nil {
		if m, ok := prefs.Stored(ctx, viewerID); ok {
			return m
		}
	}
	return modeFromAcceptLanguage(r.Header.Get("Accept-Language"))
}

// anonymousViewerID returns the viewer_id cookie, issuing a new one when it
// is missing or not a uuid.
func anonymousViewerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ViewerIDCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ViewerIDCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(viewerCookieAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// GetViewer returns the request's viewer. Without ViewerContext it is an
// anonymous viewer in the default mode.
func GetViewer(ctx context.Context) service.Viewer {
	if v, ok := ctx.Value(ViewerCtxKey).(service.Viewer); ok {
		return v
	}
	v := service.Viewer{Mode: preference.DefaultMode}
	if userID, ok := GetUserIDFromContext(ctx); ok {
		v.UserID = userID
		v.ID = userID
		v.Role, _ = GetUserRoleFromContext(ctx)
	}
	return v
}
