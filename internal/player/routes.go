package player

import (
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gfb107/plex-nmt-bridge/internal/api"
	"github.com/gfb107/plex-nmt-bridge/internal/apperrors"
	"github.com/gfb107/plex-nmt-bridge/internal/plex"
)

const clientIDHeader = "X-Plex-Client-Identifier"

// RegisterRoutes wires the player control surface to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/resources", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteXML(w, http.StatusOK, service.Resources())
	}))

	router.Method(http.MethodGet, "/player/timeline/subscribe", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		clientID, err := requireHeader(r, clientIDHeader)
		if err != nil {
			return err
		}
		port, err := requireQueryInt(r, "port")
		if err != nil {
			return err
		}
		host := clientHost(r)
		service.Subscribe(clientID, host, port, r.URL.Query().Get("commandID"))
		return api.WriteSuccess(w)
	}))

	router.Method(http.MethodGet, "/player/timeline/unsubscribe", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		clientID, err := requireHeader(r, clientIDHeader)
		if err != nil {
			return err
		}
		service.Unsubscribe(clientID)
		return api.WriteSuccess(w)
	}))

	router.Method(http.MethodGet, "/player/application/playMedia", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		viewOffset, err := requireQueryInt(r, "viewOffset")
		if err != nil {
			return err
		}
		key, err := requireQuery(r, "path")
		if err != nil {
			return err
		}
		if err := service.PlayMediaWeb(r.Context(), viewOffset, key); err != nil {
			return err
		}
		return api.WriteSuccess(w)
	}))

	router.Method(http.MethodGet, "/player/playback/playMedia", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		offset, err := requireQueryInt(r, "offset")
		if err != nil {
			return err
		}
		key, err := requireQuery(r, "key")
		if err != nil {
			return err
		}
		mediaType := plex.MediaType(r.URL.Query().Get("type"))
		containerKey := r.URL.Query().Get("containerKey")
		if mediaType == plex.TypeMusic && containerKey == "" {
			return apperrors.NewMissingParameterError("containerKey")
		}

		service.UpdateCommandID(r.Header.Get(clientIDHeader), r.URL.Query().Get("commandID"))

		if err := service.PlayMediaMobile(r.Context(), mediaType, offset, containerKey, key); err != nil {
			return err
		}
		return api.WriteSuccess(w)
	}))

	router.Method(http.MethodGet, "/player/playback/{verb}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		verb := chi.URLParam(r, "verb")
		service.UpdateCommandID(r.Header.Get(clientIDHeader), r.URL.Query().Get("commandID"))

		if verb == "seekTo" {
			offset, err := requireQueryInt(r, "offset")
			if err != nil {
				return err
			}
			if err := service.Seek(r.Context(), offset/1000); err != nil {
				return err
			}
			return api.WriteSuccess(w)
		}

		if err := service.Playback(r.Context(), verb); err != nil {
			return err
		}
		return api.WriteSuccess(w)
	}))

	router.Method(http.MethodGet, "/player/navigation/{verb}", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		body, err := service.Navigate(r.Context(), chi.URLParam(r, "verb"))
		if err != nil {
			return err
		}
		if body == "" {
			return api.WriteSuccess(w)
		}
		// Device responses pass through verbatim.
		return api.WriteRawXML(w, http.StatusOK, body)
	}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("player: don't know what to do for %s", r.URL.Path)
		api.WriteError(w, r, apperrors.NewNotImplementedError(r.URL.Path))
	})
}

func requireQuery(r *http.Request, name string) (string, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return "", apperrors.NewMissingParameterError(name)
	}
	return value, nil
}

func requireQueryInt(r *http.Request, name string) (int, error) {
	value, err := requireQuery(r, name)
	if err != nil {
		return 0, err
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperrors.NewMissingParameterError(name)
	}
	return parsed, nil
}

func requireHeader(r *http.Request, name string) (string, error) {
	value := r.Header.Get(name)
	if value == "" {
		return "", apperrors.NewMissingParameterError(name)
	}
	return value, nil
}

// clientHost extracts the remote client's address for push delivery.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
