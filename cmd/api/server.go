package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"cartflow/pkg/cart"
	"cartflow/pkg/logger"
	cfotel "cartflow/pkg/otel"
	"cartflow/pkg/session"
)

const sessionCookie = "cart_session"

type sessionKey struct{}

type server struct {
	carts      *cart.Registry
	sessions   session.Store
	log        *logger.Logger
	tracer     trace.Tracer
	sessionTTL time.Duration
	secure     bool
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.traceMiddleware)
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/cart").Subrouter()
	api.Use(s.sessionMiddleware)
	api.HandleFunc("", s.getCartHandler).Methods(http.MethodGet)
	api.HandleFunc("", s.clearCartHandler).Methods(http.MethodDelete)
	api.HandleFunc("/items", s.addItemHandler).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}", s.updateItemHandler).Methods(http.MethodPut)
	api.HandleFunc("/items/{id}", s.removeItemHandler).Methods(http.MethodDelete)
	api.HandleFunc("/retry", s.retryHandler).Methods(http.MethodPost)
	api.HandleFunc("/error", s.clearErrorHandler).Methods(http.MethodDelete)
	api.HandleFunc("/open", s.setOpenHandler).Methods(http.MethodPut)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return r
}

// cartResponse is the cart state returned by every cart endpoint.
type cartResponse struct {
	Success    bool        `json:"success"`
	Items      []cart.Item `json:"items"`
	IsLoading  bool        `json:"isLoading"`
	Error      *cart.Error `json:"error,omitempty"`
	LastAction string      `json:"lastAction,omitempty"`
	IsCartOpen bool        `json:"isCartOpen"`
	Total      string      `json:"total"`
	ItemCount  int         `json:"itemCount"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

type openRequest struct {
	Open bool `json:"open"`
}

// getCartHandler returns the session's cart.
// @Summary Get cart
// @Produce json
// @Success 200 {object} cartResponse
// @Router /cart [get]
func (s *server) getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := cfotel.AddSpan(r.Context(), "getCartHandler")
	defer span.End()

	s.respond(ctx, w, s.store(ctx).State(), true)
}

// addItemHandler adds one unit of an item.
// @Summary Add item
// @Accept json
// @Produce json
// @Param item body cart.NewItem true "Item"
// @Success 200 {object} cartResponse
// @Failure 422 {object} cartResponse
// @Router /cart/items [post]
func (s *server) addItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := cfotel.AddSpan(r.Context(), "addItemHandler")
	defer span.End()

	var item cart.NewItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	span.SetAttributes(attribute.String("cart.item_id", item.ID))
	st := s.store(ctx)
	ok := st.AddToCart(ctx, item)
	s.respond(ctx, w, st.State(), ok)
}

// updateItemHandler sets an item's quantity. Zero or less removes it.
// @Summary Update quantity
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param body body quantityRequest true "Quantity"
// @Success 200 {object} cartResponse
// @Router /cart/items/{id} [put]
func (s *server) updateItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := cfotel.AddSpan(r.Context(), "updateItemHandler")
	defer span.End()

	id := mux.Vars(r)["id"]
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	span.SetAttributes(attribute.String("cart.item_id", id), attribute.Int("cart.quantity", *req.Quantity))
	st := s.store(ctx)
	ok := st.UpdateQuantity(ctx, id, *req.Quantity)
	s.respond(ctx, w, st.State(), ok)
}

// removeItemHandler removes an item.
// @Summary Remove item
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} cartResponse
// @Router /cart/items/{id} [delete]
func (s *server) removeItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := cfotel.AddSpan(r.Context(), "removeItemHandler")
	defer span.End()

	id := mux.Vars(r)["id"]
	st := s.store(ctx)
	ok := st.RemoveItem(ctx, id)
	s.respond(ctx, w, st.State(), ok)
}

// clearCartHandler empties the cart.
// @Summary Clear cart
// @Produce json
// @Success 200 {object} cartResponse
// @Router /cart [delete]
func (s *server) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := cfotel.AddSpan(r.Context(), "clearCartHandler")
	defer span.End()

	st := s.store(ctx)
	ok := st.ClearCart(ctx)
	s.respond(ctx, w, st.State(), ok)
}

// retryHandler re-runs the last failed action.
// @Summary Retry last action
// @Produce json
// @Success 200 {object} cartResponse
// @Failure 409 {object} map[string]string
// @Router /cart/retry [post]
func (s *server) retryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := cfotel.AddSpan(r.Context(), "retryHandler")
	defer span.End()

	st := s.store(ctx)
	cmd, ok := st.LastFailed()
	if !ok {
		writeError(w, http.StatusConflict, "nothing to retry")
		return
	}
	span.SetAttributes(attribute.String("cart.op", string(cmd.Op)))
	ok = st.RetryLastAction(ctx)
	s.respond(ctx, w, st.State(), ok)
}

// clearErrorHandler dismisses the current error.
// @Summary Clear error
// @Produce json
// @Success 200 {object} cartResponse
// @Router /cart/error [delete]
func (s *server) clearErrorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := cfotel.AddSpan(r.Context(), "clearErrorHandler")
	defer span.End()

	st := s.store(ctx)
	st.ClearError()
	s.respond(ctx, w, st.State(), true)
}

// setOpenHandler sets the cart drawer visibility.
// @Summary Set cart visibility
// @Accept json
// @Produce json
// @Param body body openRequest true "Visibility"
// @Success 200 {object} cartResponse
// @Router /cart/open [put]
func (s *server) setOpenHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := cfotel.AddSpan(r.Context(), "setOpenHandler")
	defer span.End()

	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	st := s.store(ctx)
	st.SetCartOpen(req.Open)
	s.respond(ctx, w, st.State(), true)
}

// healthHandler reports liveness.
// @Summary Health
// @Success 200
// @Router /healthz [get]
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionMiddleware resolves the cart session cookie, issuing a new
// session when it is missing or expired.
func (s *server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var sid string
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			switch err := s.sessions.Touch(ctx, c.Value); {
			case err == nil:
				sid = c.Value
			case errors.Is(err, session.ErrNotFound):
				if err := s.carts.Evict(ctx, c.Value); err != nil {
					s.log.Warn(ctx, "evict expired cart", "error", err)
				}
			default:
				s.log.Error(ctx, "touch session", "error", err)
				writeError(w, http.StatusServiceUnavailable, "session error")
				return
			}
		}
		if sid == "" {
			id, err := s.sessions.Create(ctx)
			if err != nil {
				s.log.Error(ctx, "create session", "error", err)
				writeError(w, http.StatusServiceUnavailable, "session error")
				return
			}
			sid = id
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sid,
			Path:     "/",
			Expires:  time.Now().Add(s.sessionTTL),
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionKey{}, sid)))
	})
}

func (s *server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = cfotel.InjectTracing(ctx, s.tracer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) store(ctx context.Context) *cart.Store {
	sid, _ := ctx.Value(sessionKey{}).(string)
	return s.carts.Get(ctx, sid)
}

func (s *server) respond(ctx context.Context, w http.ResponseWriter, st cart.State, ok bool) {
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
		if st.Error != nil && st.Error.Type == cart.ErrorValidation {
			status = http.StatusUnprocessableEntity
		}
	}
	if status >= http.StatusInternalServerError {
		msg := ""
		if st.Error != nil {
			msg = st.Error.Message
		}
		s.log.Error(ctx, "cart action failed", "error", msg)
	}
	writeJSON(w, status, cartResponse{
		Success:    ok,
		Items:      st.Items,
		IsLoading:  st.IsLoading,
		Error:      st.Error,
		LastAction: st.LastAction,
		IsCartOpen: st.IsCartOpen,
		Total:      cart.Total(st.Items),
		ItemCount:  cart.ItemCount(st.Items),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
