// Package server exposes a remote.Backend over HTTP for `tempo serve`.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/remote"
)

const sessionKey = "session"

// ShutdownTimeout bounds graceful shutdown in `tempo serve`.
const ShutdownTimeout = 5 * time.Second

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

type Server struct {
	e        *echo.Echo
	docs     remote.Documents
	accounts remote.Accounts
	log      *log.Logger
}

func New(docs remote.Documents, accounts remote.Accounts, logger *log.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{e: e, docs: docs, accounts: accounts, log: logger}
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "method", v.Method, "path", v.URIPath, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/v1")
	v1.POST("/auth/signup", s.signUp)
	v1.POST("/auth/login", s.login)

	authed := v1.Group("", s.requireSession)
	authed.GET("/auth/session", s.getSession)
	authed.DELETE("/auth/session", s.deleteSession)
	authed.GET("/collections/:collection", s.listDocuments)
	authed.POST("/collections/:collection", s.createDocument)
	authed.PATCH("/collections/:collection/:id", s.updateDocument)
	authed.DELETE("/collections/:collection/:id", s.deleteDocument)
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("listening", "addr", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		sess, err := s.accounts.Session(c.Request().Context(), token)
		if err != nil {
			return err
		}
		c.Set(sessionKey, sess)
		return next(c)
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}

func currentSession(c echo.Context) models.Session {
	sess, _ := c.Get(sessionKey).(models.Session)
	return sess
}

func (s *Server) signUp(c echo.Context) error {
	var body Credentials
	if err := c.Bind(&body); err != nil {
		return err
	}
	sess, err := s.accounts.SignUp(c.Request().Context(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

func (s *Server) login(c echo.Context) error {
	var body Credentials
	if err := c.Bind(&body); err != nil {
		return err
	}
	sess, err := s.accounts.Login(c.Request().Context(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) getSession(c echo.Context) error {
	return c.JSON(http.StatusOK, currentSession(c))
}

func (s *Server) deleteSession(c echo.Context) error {
	if err := s.accounts.Logout(c.Request().Context(), currentSession(c).Token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func collectionParam(c echo.Context) (remote.Collection, error) {
	coll := remote.Collection(c.Param("collection"))
	if !coll.Valid() {
		return "", remote.ErrInvalidCollection
	}
	return coll, nil
}

func (s *Server) listDocuments(c echo.Context) error {
	coll, err := collectionParam(c)
	if err != nil {
		return err
	}
	f := remote.Filter{UserID: currentSession(c).UserID}
	if y := c.QueryParam("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
		f.Year = year
	}
	docs, err := s.docs.List(c.Request().Context(), coll, f)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []remote.Document{}
	}
	return c.JSON(http.StatusOK, DocumentList{Documents: docs})
}

func (s *Server) createDocument(c echo.Context) error {
	coll, err := collectionParam(c)
	if err != nil {
		return err
	}
	var body CreateRequest
	if err := c.Bind(&body); err != nil {
		return err
	}
	doc, err := s.docs.Create(c.Request().Context(), coll, remote.Document{
		UserID: currentSession(c).UserID,
		Year:   body.Year,
		Fields: body.Fields,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, doc)
}

func (s *Server) updateDocument(c echo.Context) error {
	coll, err := collectionParam(c)
	if err != nil {
		return err
	}
	// Bind would copy the path params into a map target.
	fields := map[string]any{}
	if err := c.Echo().JSONSerializer.Deserialize(c, &fields); err != nil {
		return err
	}
	if err := s.docs.Update(c.Request().Context(), coll, currentSession(c).UserID, c.Param("id"), fields); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteDocument(c echo.Context) error {
	coll, err := collectionParam(c)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(c.Request().Context(), coll, currentSession(c).UserID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrExists):
		return http.StatusConflict
	case errors.Is(err, remote.ErrInvalidCredentials), errors.Is(err, remote.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, remote.ErrInvalidCollection),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := statusFor(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "err", err)
		msg = http.StatusText(code)
	}
	if err := c.JSON(code, ErrorBody{Error: msg}); err != nil {
		s.log.Error("write error response", "err", err)
	}
}
