// Package httpdocs is a remote.Backend that talks to a `tempo serve` instance.
package httpdocs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/remote"
	"github.com/sadopc/tempo/internal/server"
)

const defaultTimeout = 15 * time.Second

// Client is safe for concurrent use. Document calls carry the token of the
// most recent SignUp, Login or Session call; the server scopes them to that
// user.
type Client struct {
	base string
	http *http.Client

	mu    sync.RWMutex
	token string
}

var _ remote.Backend = (*Client)(nil)

func New(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}, nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	return c.credentials(ctx, "/v1/auth/signup", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	return c.credentials(ctx, "/v1/auth/login", email, password)
}

func (c *Client) credentials(ctx context.Context, path, email, password string) (models.Session, error) {
	var sess models.Session
	err := c.do(ctx, http.MethodPost, path, "", server.Credentials{Email: email, Password: password}, &sess)
	if errors.Is(err, remote.ErrUnauthorized) {
		return models.Session{}, remote.ErrInvalidCredentials
	}
	if err != nil {
		return models.Session{}, err
	}
	c.setToken(sess.Token)
	return sess, nil
}

func (c *Client) Session(ctx context.Context, token string) (models.Session, error) {
	var sess models.Session
	if err := c.do(ctx, http.MethodGet, "/v1/auth/session", token, nil, &sess); err != nil {
		return models.Session{}, err
	}
	sess.Token = token
	c.setToken(token)
	return sess, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/auth/session", token, nil, nil); err != nil {
		return err
	}
	if c.currentToken() == token {
		c.setToken("")
	}
	return nil
}

func collectionPath(coll remote.Collection, id string) string {
	p := "/v1/collections/" + url.PathEscape(string(coll))
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (c *Client) Create(ctx context.Context, coll remote.Collection, doc remote.Document) (remote.Document, error) {
	var out remote.Document
	body := server.CreateRequest{Year: doc.Year, Fields: doc.Fields}
	if err := c.do(ctx, http.MethodPost, collectionPath(coll, ""), c.currentToken(), body, &out); err != nil {
		return remote.Document{}, err
	}
	return out, nil
}

func (c *Client) List(ctx context.Context, coll remote.Collection, f remote.Filter) ([]remote.Document, error) {
	path := collectionPath(coll, "")
	if f.Year != 0 {
		path += "?year=" + strconv.Itoa(f.Year)
	}
	var out server.DocumentList
	if err := c.do(ctx, http.MethodGet, path, c.currentToken(), nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *Client) Update(ctx context.Context, coll remote.Collection, _ string, id string, fields map[string]any) error {
	return c.do(ctx, http.MethodPatch, collectionPath(coll, id), c.currentToken(), fields, nil)
}

func (c *Client) Delete(ctx context.Context, coll remote.Collection, _ string, id string) error {
	return c.do(ctx, http.MethodDelete, collectionPath(coll, id), c.currentToken(), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// badRequests are the validation errors a 400 body can name.
var badRequests = []error{remote.ErrInvalidCollection, auth.ErrInvalidEmail, auth.ErrWeakPassword}

func statusError(resp *http.Response) error {
	var eb server.ErrorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", remote.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", remote.ErrExists, msg)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", remote.ErrUnauthorized, msg)
	case http.StatusBadRequest:
		for _, known := range badRequests {
			if msg == known.Error() {
				return known
			}
		}
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
}
