package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SessionCookie = "cart_session"
	SessionHeader = "X-Session-ID"
)

type cartKey struct{}

// CartFromContext returns the cart loaded by Session.
func CartFromContext(ctx context.Context) (*cart.Cart, bool) {
	c, ok := ctx.Value(cartKey{}).(*cart.Cart)
	return c, ok
}

// WithCart stores c in ctx, for handlers tested without Session.
func WithCart(ctx context.Context, c *cart.Cart) context.Context {
	return context.WithValue(ctx, cartKey{}, c)
}

func sessionID(r *http.Request) string {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			id = cookie.Value
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

// Session loads the caller's cart before the handler runs and saves it
// afterwards if the handler changed it; a cart left empty is deleted. Callers without a valid session
// id get a fresh one, echoed in both the cookie and X-Session-ID.
func Session(store session.Store, ttl time.Duration, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sessionID(r)
			if id == "" {
				id = uuid.NewString()
			}

			c, err := store.Load(r.Context(), id)
			if err != nil {
				logger.Error("failed to load cart", zap.String("session_id", id), zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "Cart is temporarily unavailable", "session_unavailable")
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(SessionHeader, id)

			sw := &sessionWriter{ResponseWriter: w}
			sw.persist = func() {
				if !c.Dirty() {
					return
				}
				ctx := context.WithoutCancel(r.Context())
				// emptied by a clear or a checkout
				if c.IsEmpty() {
					if err := store.Delete(ctx, id); err != nil {
						logger.Error("failed to delete cart", zap.String("session_id", id), zap.Error(err))
						return
					}
					c.MarkClean()
					return
				}
				if err := store.Save(ctx, c); err != nil {
					logger.Error("failed to save cart", zap.String("session_id", id), zap.Error(err))
				}
			}

			next.ServeHTTP(sw, r.WithContext(WithCart(r.Context(), c)))
			sw.flush()
		})
	}
}

// sessionWriter saves the cart just before the first byte of the response
// goes out, so a client's next request sees the change.
type sessionWriter struct {
	http.ResponseWriter
	persist func()
	done    bool
}

func (sw *sessionWriter) flush() {
	if !sw.done {
		sw.done = true
		sw.persist()
	}
}

func (sw *sessionWriter) WriteHeader(code int) {
	sw.flush()
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.flush()
	return sw.ResponseWriter.Write(b)
}

func (sw *sessionWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
