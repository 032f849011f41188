package web

import (
	"context"
	"net/http"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/cvsubs74/dm-consent/pkg/projector"
	"github.com/cvsubs74/dm-consent/pkg/pubsub"
	"github.com/cvsubs74/dm-consent/pkg/session"
)

type sessionKey struct{}

// withSession resolves the dm_session cookie, creating a session (and cookie)
// when it is missing or expired.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(session.CookieName); err == nil {
			id = c.Value
		}

		sess, created := s.sessions.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			s.metrics.SetActiveSessions(s.sessions.Len())
		}

		if rec, ok := w.(logging.SessionRecorder); ok {
			rec.RecordSession(sess.ID)
		}
		ctx := logging.WithSessionID(r.Context(), sess.ID)
		ctx = context.WithValue(ctx, sessionKey{}, sess)
		next(w, r.WithContext(ctx))
	}
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey{}).(*session.Session)
}

// view runs a read-only fn under the session lock
func view(r *http.Request, fn func(in *datamap.Integrations)) {
	_ = sessionFrom(r).Do(func(in *datamap.Integrations) error {
		fn(in)
		return nil
	})
}

// NewSessionFactory builds a fresh Data Map per session whose changes are
// published as graph_updated events on the session's graph topic.
func NewSessionFactory(publisher pubsub.Publisher, opts ...datamap.Option) session.Factory {
	return func(id string) *datamap.Integrations {
		store := datamap.NewStore()
		topic := pubsub.GraphTopic(id)

		onChange := func(ctx context.Context, op string) {
			// runs inside Session.Do, so the store is not changing underneath
			update := pubsub.GraphUpdate{Operation: op, Graph: projector.Project(store)}
			if err := publisher.Publish(topic, pubsub.EventGraphUpdated, update); err != nil {
				logging.WarnContext(ctx, "failed to publish graph", "topic", topic, "error", err)
			}
		}

		all := append([]datamap.Option{datamap.WithOnChange(onChange)}, opts...)
		return datamap.NewIntegrations(store, all...)
	}
}
