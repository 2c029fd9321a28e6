// Package apitest runs an in-process fake of the GoBarber REST API for tests.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"gobarber/client/internal/domain"
)

// Request is one call the server received.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

type account struct {
	user     domain.User
	password string
}

type failure struct {
	status  int
	message string
}

type Server struct {
	URL string

	srv    *httptest.Server
	secret []byte

	mu           sync.Mutex
	accounts     map[string]*account // by email
	resetTokens  map[string]string   // token -> email
	availability map[string][]domain.MonthAvailabilityItem
	appointments map[domain.Date][]domain.Appointment
	failures     map[string]failure
	requests     []Request
	tokenTTL     time.Duration
}

// New starts a server that is shut down when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:       []byte("apitest-secret"),
		accounts:     make(map[string]*account),
		resetTokens:  make(map[string]string),
		availability: make(map[string][]domain.MonthAvailabilityItem),
		appointments: make(map[domain.Date][]domain.Appointment),
		failures:     make(map[string]failure),
		tokenTTL:     24 * time.Hour,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.record, s.injectFailures)

	e.POST("/sessions", s.createSession)
	e.POST("/users", s.createUser)
	e.POST("/password/forgot", s.forgotPassword)
	e.POST("/password/reset", s.resetPassword)

	e.PUT("/profile", s.updateProfile, s.requireAuth)
	e.PATCH("/users/avatar", s.updateAvatar, s.requireAuth)
	e.GET("/providers/:id/month-availability", s.monthAvailability, s.requireAuth)
	e.GET("/appointments/me", s.appointmentsOn, s.requireAuth)

	s.srv = httptest.NewServer(e)
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

// AddUser registers an account. A user without an ID gets a random one.
func (s *Server) AddUser(u domain.User, password string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.accounts[strings.ToLower(u.Email)] = &account{user: u, password: password}
	return u
}

func (s *Server) Password(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return "", false
	}
	return acc.password, true
}

func (s *Server) SetAvailability(providerID string, month domain.Month, items []domain.MonthAvailabilityItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.availability[providerID+"|"+month.String()] = items
}

func (s *Server) SetAppointments(date domain.Date, appts []domain.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[date] = appts
}

// ResetTokenFor returns the last reset token issued for email.
func (s *Server) ResetTokenFor(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, e := range s.resetTokens {
		if strings.EqualFold(e, email) {
			return tok, true
		}
	}
	return "", false
}

// Fail makes every request to method+path answer status with message until
// cleared with status 0.
func (s *Server) Fail(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = failure{status: status, message: message}
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// IssueToken signs an access token for userID the way the server does.
func (s *Server) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		s.mu.Lock()
		f, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			return errorJSON(c, f.status, f.message)
		}
		return next(c)
	}
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return errorJSON(c, http.StatusUnauthorized, "JWT token is missing")
		}
		claims := jwt.RegisteredClaims{}
		tok, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !tok.Valid {
			return errorJSON(c, http.StatusUnauthorized, "Invalid JWT token")
		}
		c.Set("user_id", claims.Subject)
		return next(c)
	}
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"status": "error", "message": message})
}

func (s *Server) accountByID(id string) *account {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc
		}
	}
	return nil
}

func (s *Server) createSession(c echo.Context) error {
	var body domain.Credentials
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(body.Email)]
	s.mu.Unlock()
	if !ok || acc.password != body.Password {
		return errorJSON(c, http.StatusUnauthorized, "Incorrect email/password combination.")
	}

	token, err := s.IssueToken(acc.user.ID)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "could not issue token")
	}
	return c.JSON(http.StatusOK, domain.Session{Token: token, User: acc.user})
}

func (s *Server) createUser(c echo.Context) error {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[strings.ToLower(body.Email)]; exists {
		return errorJSON(c, http.StatusBadRequest, "Email address already used.")
	}
	u := domain.User{ID: uuid.NewString(), Name: body.Name, Email: body.Email}
	s.accounts[strings.ToLower(body.Email)] = &account{user: u, password: body.Password}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) forgotPassword(c echo.Context) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[strings.ToLower(body.Email)]; !ok {
		return errorJSON(c, http.StatusBadRequest, "User does not exists.")
	}
	s.resetTokens[uuid.NewString()] = body.Email
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) resetPassword(c echo.Context) error {
	var body struct {
		Token                string `json:"token"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.resetTokens[body.Token]
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "User token does not exists")
	}
	if body.Password != body.PasswordConfirmation {
		return errorJSON(c, http.StatusBadRequest, "Password confirmation does not match")
	}
	delete(s.resetTokens, body.Token)
	s.accounts[strings.ToLower(email)].password = body.Password
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) updateProfile(c echo.Context) error {
	var body struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		OldPassword string `json:"old_password"`
		Password    string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accountByID(c.Get("user_id").(string))
	if acc == nil {
		return errorJSON(c, http.StatusBadRequest, "User not found")
	}
	if body.Password != "" {
		if body.OldPassword != acc.password {
			return errorJSON(c, http.StatusBadRequest, "Old password does not match.")
		}
		acc.password = body.Password
	}
	if !strings.EqualFold(body.Email, acc.user.Email) {
		delete(s.accounts, strings.ToLower(acc.user.Email))
		s.accounts[strings.ToLower(body.Email)] = acc
	}
	acc.user.Name = body.Name
	acc.user.Email = body.Email
	return c.JSON(http.StatusOK, acc.user)
}

func (s *Server) updateAvatar(c echo.Context) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "avatar file is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accountByID(c.Get("user_id").(string))
	if acc == nil {
		return errorJSON(c, http.StatusUnauthorized, "Only authenticated users can change avatar.")
	}
	acc.user.AvatarURL = s.URL + "/files/" + filepath.Base(fh.Filename)
	return c.JSON(http.StatusOK, acc.user)
}

func (s *Server) monthAvailability(c echo.Context) error {
	year, err1 := strconv.Atoi(c.QueryParam("year"))
	month, err2 := strconv.Atoi(c.QueryParam("month"))
	if err1 != nil || err2 != nil {
		return errorJSON(c, http.StatusBadRequest, "year and month are required")
	}
	m := domain.Month{Year: year, Month: time.Month(month)}

	s.mu.Lock()
	items, ok := s.availability[c.Param("id")+"|"+m.String()]
	s.mu.Unlock()
	if !ok {
		items = []domain.MonthAvailabilityItem{}
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) appointmentsOn(c echo.Context) error {
	year, err1 := strconv.Atoi(c.QueryParam("year"))
	month, err2 := strconv.Atoi(c.QueryParam("month"))
	day, err3 := strconv.Atoi(c.QueryParam("day"))
	if err1 != nil || err2 != nil || err3 != nil {
		return errorJSON(c, http.StatusBadRequest, "year, month and day are required")
	}

	s.mu.Lock()
	appts, ok := s.appointments[domain.Date{Year: year, Month: time.Month(month), Day: day}]
	s.mu.Unlock()
	if !ok {
		appts = []domain.Appointment{}
	}
	return c.JSON(http.StatusOK, appts)
}
