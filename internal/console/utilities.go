package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Adapted from: github.com/go-chi/render

// ctxKeyStatus is a context key to record a future HTTP response status code.
var ctxKeyStatus = &struct{}{}

// withStatus sets a HTTP response status code hint into request context at any point
// during the request life-cycle. Before the Responder sends its response header
// it will check the StatusCtxKey
func withStatus(r *http.Request, status int) {
	*r = *r.WithContext(context.WithValue(r.Context(), ctxKeyStatus, status))
}

// renderJSON marshals 'v' to JSON, automatically escaping HTML and setting the
// Content-Type as application/json.
func renderJSON(w http.ResponseWriter, r *http.Request, document any) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(document); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if status, ok := r.Context().Value(ctxKeyStatus).(int); ok {
		w.WriteHeader(status)
	}
	w.Write(buf.Bytes()) //nolint:errcheck
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	withStatus(r, status)
	renderJSON(w, r, map[string]string{"error": message})
}

// decodeJSON reads the request body into v. The body size is capped to keep a
// single client from holding a handler hostage.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// requireJSON rejects write requests that do not declare a JSON body.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut:
			contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || contentType != "application/json" {
				renderError(w, r, http.StatusUnsupportedMediaType, "expected application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type pagination struct {
	Page     int64
	PageSize int64
}

func (p pagination) Limit() int64  { return p.PageSize }
func (p pagination) Offset() int64 { return (p.Page - 1) * p.PageSize }

func parsePagination(r *http.Request) pagination {
	p := pagination{Page: 1, PageSize: defaultPageSize}
	if v, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("pageSize"), 10, 64); err == nil && v > 0 {
		p.PageSize = min(v, maxPageSize)
	}
	return p
}

// setLinkHeader writes an RFC 5988 Link header with first, last, and when
// applicable prev and next relations, preserving the other query parameters.
func setLinkHeader(w http.ResponseWriter, r *http.Request, p pagination, total int64) {
	lastPage := total / p.PageSize
	if total%p.PageSize != 0 || lastPage == 0 {
		lastPage++
	}

	pageURL := func(page int64) string {
		u := url.URL{Path: r.URL.Path}
		q := r.URL.Query()
		q.Set("page", strconv.FormatInt(page, 10))
		q.Set("pageSize", strconv.FormatInt(p.PageSize, 10))
		u.RawQuery = q.Encode()
		return u.String()
	}

	var links []string
	links = append(links, fmt.Sprintf(`<%s>; rel="first"`, pageURL(1)))
	if p.Page > 1 {
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, pageURL(p.Page-1)))
	}
	if p.Page < lastPage {
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, pageURL(p.Page+1)))
	}
	links = append(links, fmt.Sprintf(`<%s>; rel="last"`, pageURL(lastPage)))

	w.Header().Set("Link", strings.Join(links, ", "))
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
}
