// Package fetch loads the tiles the globe wants: bounded, cancellable
// requests against a tile service whose decoded results land in the cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"globe/tile"
)

//ErrInvalidTemplate tile url template without {z}, {x} and {y}
var ErrInvalidTemplate = errors.New("invalid tile url template")

//Source loads the raw payload of a tile. A tile without content yields an
//empty payload and no error.
type Source interface {
	Fetch(ctx context.Context, id tile.ID) ([]byte, error)
}

//TransportError network or service failure while loading a tile.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

//IsCancelled reports whether err only says the tile left the desired set.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// cancelled maps a failure to the context's cancellation when the caller
// gave up, so callers never see a transport error for an aborted transfer.
func cancelled(ctx context.Context) error {
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

//HTTPSource tile service reached over HTTP, e.g.
//https://api.mapbox.com/v4/mapbox.mapbox-streets-v8/{z}/{x}/{y}.mvt
type HTTPSource struct {
	URL    string
	Token  string
	Client *http.Client
}

//NewHTTPSource validates the url template; a nil client means http.DefaultClient.
func NewHTTPSource(template, token string, client *http.Client) (*HTTPSource, error) {
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(template, p) {
			return nil, fmt.Errorf("%w: placeholder %v not found in %q", ErrInvalidTemplate, p, template)
		}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{URL: template, Token: token, Client: client}, nil
}

// tileURL returns the request url and a token-free form for errors and logs.
func (s *HTTPSource) tileURL(id tile.ID) (string, string, error) {
	raw := strings.Replace(s.URL, "{x}", strconv.Itoa(int(id.X)), -1)
	raw = strings.Replace(raw, "{y}", strconv.Itoa(int(id.Y)), -1)
	raw = strings.Replace(raw, "{z}", strconv.Itoa(int(id.Z)), -1)
	if s.Token == "" {
		return raw, raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw, err
	}
	q := u.Query()
	q.Set("access_token", s.Token)
	u.RawQuery = q.Encode()
	return u.String(), raw, nil
}

//Fetch GETs one tile. 204 No Content is an empty tile; any other status but
//200 is a TransportError.
func (s *HTTPSource) Fetch(ctx context.Context, id tile.ID) ([]byte, error) {
	target, redacted, err := s.tileURL(id)
	if err != nil {
		return nil, &TransportError{URL: redacted, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{URL: redacted, Err: err}
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		if c := cancelled(ctx); c != nil {
			return nil, c
		}
		return nil, &TransportError{URL: redacted, Err: stripURL(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, &TransportError{URL: redacted, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if c := cancelled(ctx); c != nil {
			return nil, c
		}
		return nil, &TransportError{URL: redacted, Err: err}
	}
	return body, nil
}

// stripURL drops the *url.Error wrapper, whose message carries the token.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
