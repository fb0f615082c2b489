package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/relay-dashboard/internal/dashboard"
	"github.com/DoyleJ11/relay-dashboard/internal/render"
	"github.com/DoyleJ11/relay-dashboard/internal/types"
)

const maxBody = 64 << 10

// Configure accepts {"url","url_2"} as JSON or as form values. An empty body
// reconnects to the saved URLs.
func Configure(c Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, empty, err := decodeConfigure(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if empty {
			act(w, c.ConfigureSaved(r.Context()))
			return
		}
		act(w, c.Configure(r.Context(), req.URL, req.URL2))
	}
}

func decodeConfigure(r *http.Request) (req types.ConfigureRequest, empty bool, err error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			return req, false, err
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			return req, true, nil
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, false, errors.New("bad json")
		}
		return req, false, nil
	}

	r.Body = io.NopCloser(io.LimitReader(r.Body, maxBody))
	if err := r.ParseForm(); err != nil {
		return req, false, err
	}
	if _, ok := r.PostForm["url"]; !ok {
		if _, ok := r.PostForm["url_2"]; !ok {
			return req, true, nil
		}
	}
	req.URL = r.PostForm.Get("url")
	req.URL2 = r.PostForm.Get("url_2")
	return req, false, nil
}

func Disconnect(c Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act(w, c.DisconnectAll(r.Context()))
	}
}

func ResetAll(c Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act(w, c.ResetAllMax(r.Context()))
	}
}

func ResetTag(c Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act(w, c.ResetOneMax(r.Context(), chi.URLParam(r, "tag")))
	}
}

func Refresh(c Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act(w, c.FetchStatus(r.Context()))
	}
}

func GetView(c Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := c.View(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GetTable writes the sorted player table as aligned text.
func GetTable(c Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := c.View(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = render.WriteText(w, v.Rows)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// act answers an action: 204 on success, the mapped status otherwise.
func act(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrNoURL):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrAlreadyConnected),
		errors.Is(err, dashboard.ErrNotConnected),
		errors.Is(err, dashboard.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
