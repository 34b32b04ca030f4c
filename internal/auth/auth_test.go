package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/geocalc/geocalc/backend-go/internal/db/dbgen"
)

type fakeUsers struct {
	byID map[string]dbgen.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]dbgen.User)}
}

func (f *fakeUsers) CreateUser(_ context.Context, arg dbgen.CreateUserParams) (dbgen.User, error) {
	for _, u := range f.byID {
		if u.Email == arg.Email {
			return dbgen.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	u := dbgen.User{ID: arg.ID, Email: arg.Email, Password: arg.Password, DisplayName: arg.DisplayName}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (dbgen.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return dbgen.User{}, pgx.ErrNoRows
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (dbgen.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return dbgen.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func newTestService() *Service {
	s := NewService(newFakeUsers(), "test-secret")
	s.hashCost = bcrypt.MinCost
	return s
}

func TestRegisterLogin(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, "ada@example.com", "correct horse", "Ada")
	if err != nil {
		t.Fatal(err)
	}
	if reg.User.Email != "ada@example.com" || reg.Token == "" {
		t.Errorf("register = %+v", reg)
	}

	if _, err := s.Register(ctx, "ada@example.com", "another pass", "Ada 2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate register: %v", err)
	}

	login, err := s.Login(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	userID, err := s.ValidateToken(login.Token)
	if err != nil || userID != reg.User.ID {
		t.Errorf("ValidateToken = %q, %v", userID, err)
	}

	for _, tc := range []struct{ email, pass string }{
		{"ada@example.com", "wrong password"},
		{"nobody@example.com", "correct horse"},
	} {
		if _, err := s.Login(ctx, tc.email, tc.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%s) = %v", tc.email, err)
		}
	}
}

func TestValidateTokenRejects(t *testing.T) {
	s := newTestService()

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user_x", "exp": time.Now().Add(time.Hour).Unix()})
	foreign, _ := other.SignedString([]byte("other-secret"))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user_x", "exp": time.Now().Add(-time.Hour).Unix()})
	stale, _ := expired.SignedString(s.jwtSecret)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	anonymous, _ := noSub.SignedString(s.jwtSecret)

	for name, token := range map[string]string{
		"garbage":    "not.a.token",
		"foreign":    foreign,
		"expired":    stale,
		"no subject": anonymous,
	} {
		if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		url     string
		want    string
		wantErr bool
	}{
		{"bearer", "Bearer abc", "/", "abc", false},
		{"query", "", "/ws?token=xyz", "xyz", false},
		{"missing", "", "/", "", true},
		{"basic", "Basic abc", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := TokenFromRequest(r)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("got %q, %v", got, err)
			}
		})
	}
}

func TestHandlersAndMiddleware(t *testing.T) {
	s := newTestService()
	h := NewHandler(s)

	body, _ := json.Marshal(registerRequest{Email: "  Ada@Example.com ", Password: "longenough", DisplayName: "Ada"})
	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	var res AuthResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.User.Email != "ada@example.com" {
		t.Errorf("email = %q", res.User.Email)
	}

	short, _ := json.Marshal(registerRequest{Email: "b@example.com", Password: "short", DisplayName: "B"})
	rec = httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(short)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d", rec.Code)
	}

	me := s.AuthMiddleware(http.HandlerFunc(h.Me))

	rec = httptest.NewRecorder()
	me.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /api/me = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	rec = httptest.NewRecorder()
	me.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/me = %d: %s", rec.Code, rec.Body.String())
	}
	var user User
	json.NewDecoder(rec.Body).Decode(&user)
	if user.ID != res.User.ID || user.DisplayName != "Ada" {
		t.Errorf("me = %+v", user)
	}
}

func TestRegisterRules(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "x@example.com", "short", "X"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password: %v", err)
	}

	long := strings.Repeat("é", 100)
	res, err := s.Register(ctx, "y@example.com", "long enough", long)
	if err != nil {
		t.Fatal(err)
	}
	if n := len([]rune(res.User.DisplayName)); n != 80 {
		t.Errorf("display name runes = %d, want 80", n)
	}
}

func TestTokenClaims(t *testing.T) {
	s := newTestService()
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }

	token, err := s.issueToken("user_1")
	if err != nil {
		t.Fatal(err)
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		t.Fatal(err)
	}
	if claims.Issuer != "geocalc" || claims.Subject != "user_1" {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(issued.Add(24 * time.Hour)) {
		t.Errorf("expires = %v", claims.ExpiresAt.Time)
	}

	// Valid until the TTL runs out.
	s.now = func() time.Time { return issued.Add(23 * time.Hour) }
	if _, err := s.ValidateToken(token); err != nil {
		t.Errorf("fresh token rejected: %v", err)
	}
	s.now = func() time.Time { return issued.Add(25 * time.Hour) }
	if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("stale token: %v", err)
	}
}
