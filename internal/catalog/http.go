package catalog

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniCatalog/internal/auth"
	"MiniCatalog/pkg/kit"
)

const (
	msgNotFound       = "Product not found"
	msgInternal       = "Internal Server Error"
	msgInvalidProduct = "invalid product"

	readyTimeout = 1 * time.Second
)

// Server is the HTTP adapter over a Store. Auth is optional: when nil only
// the read endpoints are mounted.
type Server struct {
	Store Store
	Log   *zap.Logger
	Auth  *auth.Server
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Get("/products", s.list)
	r.Get("/products/{id}", s.get)

	if s.Auth != nil {
		r.Mount("/auth", s.Auth.Routes())

		r.Group(func(wr chi.Router) {
			wr.Use(auth.RequireAdmin(s.Auth.JWT))
			wr.Post("/products", s.create)
			wr.Put("/products/{id}", s.update)
			wr.Patch("/products/{id}", s.update)
			wr.Delete("/products/{id}", s.remove)
			wr.Delete("/products", s.clear)
		})
	}

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		s.writeStoreError(w, r, "list products failed", err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	kit.WriteJSONPretty(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}

	p, found, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, "get product failed", err, zap.Int64("id", id))
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}
	kit.WriteJSONPretty(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in Product
	if err := kit.DecodeJSON(w, r, &in, false); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if in == nil {
		in = Product{}
	}

	p, err := s.Store.Add(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, "add product failed", err)
		return
	}
	kit.WriteJSONPretty(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}

	var patch Product
	if err := kit.DecodeJSON(w, r, &patch, false); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Store.Update(r.Context(), id, patch)
	if err != nil {
		s.writeStoreError(w, r, "update product failed", err, zap.Int64("id", id))
		return
	}
	kit.WriteJSONPretty(w, http.StatusOK, p)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}

	if err := s.Store.Remove(r.Context(), id); err != nil {
		s.writeStoreError(w, r, "remove product failed", err, zap.Int64("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Clear(r.Context()); err != nil {
		s.writeStoreError(w, r, "clear products failed", err)
		return
	}

	sub, _ := auth.SubjectFromContext(r.Context())
	s.logger().Info("catalog cleared", zap.String("by", sub))
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps store errors onto status codes: not found 404,
// validation 400, everything else 500 with the cause logged.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
	case errors.As(err, &ve):
		kit.WriteError(w, r, http.StatusBadRequest, msgInvalidProduct, ve.Findings)
	default:
		s.logger().Error(msg, append(fields, zap.Error(err))...)
		kit.WriteError(w, r, http.StatusInternalServerError, msgInternal, nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// parseLimit treats a missing, malformed or non-positive limit as "no limit".
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}
