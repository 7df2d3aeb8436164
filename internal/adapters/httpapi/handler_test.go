package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atvirokodosprendimai/castingapi/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/castingapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/castingapi/internal/core/usecase"
	"github.com/atvirokodosprendimai/castingapi/migrations"
)

const (
	testAudience = "casting"
	testIssuer   = "https://tenant.test/"
	testKid      = "test-kid"
)

func newTestRouter(t *testing.T, auth *usecase.AuthService, loginURL string) http.Handler {
	t.Helper()

	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if err := migrations.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	schemas, err := usecase.NewSchemaService()
	if err != nil {
		t.Fatalf("schema service: %v", err)
	}

	actors := usecase.NewActorService(sqlite.NewActorRepository(db))
	movies := usecase.NewMovieService(sqlite.NewMovieRepository(db))
	return NewHandler(actors, movies, schemas, auth, loginURL).Router()
}

func doRequest(t *testing.T, router http.Handler, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	decoded := map[string]any{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, decoded
}

func createActor(t *testing.T, router http.Handler, name string) int64 {
	t.Helper()

	payload := fmt.Sprintf(`{"name":%q,"age":44,"gender":"M"}`, name)
	rr, body := doRequest(t, router, http.MethodPost, "/api/actors", payload, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create actor: status %d body %s", rr.Code, rr.Body.String())
	}
	return int64(body["created"].(float64))
}

func createMovie(t *testing.T, router http.Handler, title, releaseDate string) int64 {
	t.Helper()

	payload := fmt.Sprintf(`{"title":%q,"releaseDate":%q}`, title, releaseDate)
	rr, body := doRequest(t, router, http.MethodPost, "/api/movies", payload, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create movie: status %d body %s", rr.Code, rr.Body.String())
	}
	return int64(body["created"].(float64))
}

func assertErrorEnvelope(t *testing.T, rr *httptest.ResponseRecorder, body map[string]any, status int) {
	t.Helper()

	if rr.Code != status {
		t.Fatalf("expected status %d, got %d body %s", status, rr.Code, rr.Body.String())
	}
	if body["success"] != false {
		t.Fatalf("expected success false, got %v", body["success"])
	}
	if int(body["error"].(float64)) != status {
		t.Fatalf("expected error %d, got %v", status, body["error"])
	}
	if message, _ := body["message"].(string); message == "" {
		t.Fatal("expected a message in the error envelope")
	}
}

func TestHealthcheck(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	rr, body := doRequest(t, router, http.MethodGet, "/api/healthcheck", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if body["status"] != "online" {
		t.Fatalf("expected status online, got %v", body["status"])
	}
}

func TestLoginRedirect(t *testing.T) {
	loginURL := "https://tenant.test/authorize?client_id=abc"
	router := newTestRouter(t, usecase.NewInsecureAuthService(), loginURL)

	req := httptest.NewRequest(http.MethodGet, "/api/login", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != loginURL {
		t.Fatalf("expected redirect to %s, got %s", loginURL, got)
	}
}

func TestLoginUnconfigured(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	rr, body := doRequest(t, router, http.MethodGet, "/api/login", "", nil)
	assertErrorEnvelope(t, rr, body, http.StatusNotFound)
}

func TestCreateActorAndGetDetail(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")
	id := createActor(t, router, "Viola Davis")

	rr, body := doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/actors/%d", id), "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	actor := body["actor"].(map[string]any)
	if actor["name"] != "Viola Davis" || int(actor["age"].(float64)) != 44 || actor["gender"] != "M" {
		t.Fatalf("unexpected actor %v", actor)
	}
	if movies := actor["movies"].([]any); len(movies) != 0 {
		t.Fatalf("expected no movies, got %v", movies)
	}
}

func TestCreateActorSchemaViolations(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	cases := []struct {
		name string
		body string
	}{
		{"missing gender", `{"name":"A","age":30}`},
		{"unknown field", `{"name":"A","age":30,"gender":"F","oscar":true}`},
		{"gender outside enum", `{"name":"A","age":30,"gender":"X"}`},
		{"negative age", `{"name":"A","age":-1,"gender":"F"}`},
		{"non-object body", `[1,2,3]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, body := doRequest(t, router, http.MethodPost, "/api/actors", tc.body, nil)
			assertErrorEnvelope(t, rr, body, http.StatusBadRequest)
		})
	}
}

func TestCreateActorBrokenJSON(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	rr, body := doRequest(t, router, http.MethodPost, "/api/actors", `{"name":`, nil)
	assertErrorEnvelope(t, rr, body, http.StatusBadRequest)
	if body["message"] != "invalid json body" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestListActorsPagination(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")
	for i := 0; i < 12; i++ {
		createActor(t, router, fmt.Sprintf("Actor %02d", i))
	}

	rr, body := doRequest(t, router, http.MethodGet, "/api/actors", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if got := len(body["actors"].([]any)); got != 10 {
		t.Fatalf("expected 10 actors on page 1, got %d", got)
	}
	if total := int(body["totalActors"].(float64)); total != 12 {
		t.Fatalf("expected totalActors 12, got %d", total)
	}

	rr, body = doRequest(t, router, http.MethodGet, "/api/actors?page=2", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("page 2 status %d", rr.Code)
	}
	if got := len(body["actors"].([]any)); got != 2 {
		t.Fatalf("expected 2 actors on page 2, got %d", got)
	}

	rr, body = doRequest(t, router, http.MethodGet, "/api/actors?page=3", "", nil)
	assertErrorEnvelope(t, rr, body, http.StatusNotFound)
}

func TestListActorsEmptyFirstPage(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	rr, body := doRequest(t, router, http.MethodGet, "/api/actors", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if got := len(body["actors"].([]any)); got != 0 {
		t.Fatalf("expected empty list, got %d", got)
	}
	if total := int(body["totalActors"].(float64)); total != 0 {
		t.Fatalf("expected totalActors 0, got %d", total)
	}
}

func TestListActorsInvalidPage(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	for _, page := range []string{"0", "-2", "abc"} {
		rr, body := doRequest(t, router, http.MethodGet, "/api/actors?page="+page, "", nil)
		assertErrorEnvelope(t, rr, body, http.StatusBadRequest)
		if body["message"] != "page must be a positive integer" {
			t.Fatalf("page %s: unexpected message %v", page, body["message"])
		}
	}
}

func TestGetActorNotFound(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	rr, body := doRequest(t, router, http.MethodGet, "/api/actors/999", "", nil)
	assertErrorEnvelope(t, rr, body, http.StatusNotFound)

	rr, body = doRequest(t, router, http.MethodGet, "/api/actors/abc", "", nil)
	assertErrorEnvelope(t, rr, body, http.StatusNotFound)
}

func TestDeleteActorThenGet(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")
	id := createActor(t, router, "Gone Soon")

	rr, body := doRequest(t, router, http.MethodDelete, fmt.Sprintf("/api/actors/%d", id), "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status %d", rr.Code)
	}
	if deleted := int64(body["deleted"].(float64)); deleted != id {
		t.Fatalf("expected deleted %d, got %d", id, deleted)
	}

	rr, body = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/actors/%d", id), "", nil)
	assertErrorEnvelope(t, rr, body, http.StatusNotFound)

	rr, body = doRequest(t, router, http.MethodDelete, fmt.Sprintf("/api/actors/%d", id), "", nil)
	assertErrorEnvelope(t, rr, body, http.StatusNotFound)
}

func TestPatchActorReplacesMovies(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")
	actorID := createActor(t, router, "Linked Actor")
	movieID := createMovie(t, router, "Linked Movie", "2010-07-16")

	payload := fmt.Sprintf(`{"movies":[%d,9999]}`, movieID)
	rr, body := doRequest(t, router, http.MethodPatch, fmt.Sprintf("/api/actors/%d", actorID), payload, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status %d body %s", rr.Code, rr.Body.String())
	}

	actor := body["actor"].(map[string]any)
	movies := actor["movies"].([]any)
	if len(movies) != 1 {
		t.Fatalf("expected the one resolvable movie, got %v", movies)
	}
	linked := movies[0].(map[string]any)
	if int64(linked["id"].(float64)) != movieID || linked["releaseDate"] != "2010-07-16" {
		t.Fatalf("unexpected linked movie %v", linked)
	}
}

func TestPatchActorEmptyMovieList(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")
	actorID := createActor(t, router, "No Links")

	rr, body := doRequest(t, router, http.MethodPatch, fmt.Sprintf("/api/actors/%d", actorID), `{"movies":[]}`, nil)
	assertErrorEnvelope(t, rr, body, http.StatusUnprocessableEntity)
}

func TestPatchActorNoResolvableMovies(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")
	actorID := createActor(t, router, "Still Unlinked")

	rr, body := doRequest(t, router, http.MethodPatch, fmt.Sprintf("/api/actors/%d", actorID), `{"name":"Renamed","movies":[111,222]}`, nil)
	assertErrorEnvelope(t, rr, body, http.StatusUnprocessableEntity)

	// The whole patch rolls back, including the rename.
	rr, body = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/actors/%d", actorID), "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status %d", rr.Code)
	}
	if name := body["actor"].(map[string]any)["name"]; name != "Still Unlinked" {
		t.Fatalf("expected name unchanged, got %v", name)
	}
}

func TestPatchMovieKeepsReleaseDate(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")
	movieID := createMovie(t, router, "Old Title", "1999-03-31")

	rr, body := doRequest(t, router, http.MethodPatch, fmt.Sprintf("/api/movies/%d", movieID), `{"title":"New Title"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status %d body %s", rr.Code, rr.Body.String())
	}
	movie := body["movie"].(map[string]any)
	if movie["title"] != "New Title" || movie["releaseDate"] != "1999-03-31" {
		t.Fatalf("unexpected movie %v", movie)
	}
}

func TestPatchMovieBadReleaseDate(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")
	movieID := createMovie(t, router, "Dated", "2005-01-01")

	rr, body := doRequest(t, router, http.MethodPatch, fmt.Sprintf("/api/movies/%d", movieID), `{"releaseDate":"31-03-1999"}`, nil)
	assertErrorEnvelope(t, rr, body, http.StatusBadRequest)
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	rr, body := doRequest(t, router, http.MethodPut, "/api/actors/1", `{}`, nil)
	assertErrorEnvelope(t, rr, body, http.StatusMethodNotAllowed)
}

func TestUnknownRouteEnvelope(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	rr, body := doRequest(t, router, http.MethodGet, "/api/directors", "", nil)
	assertErrorEnvelope(t, rr, body, http.StatusNotFound)
}

func TestRequestIDEchoed(t *testing.T) {
	router := newTestRouter(t, usecase.NewInsecureAuthService(), "")

	rr, _ := doRequest(t, router, http.MethodGet, "/api/healthcheck", "", map[string]string{"X-Request-Id": "req-42"})
	if got := rr.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	rr, _ = doRequest(t, router, http.MethodGet, "/api/healthcheck", "", nil)
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a generated request id")
	}
}

type stubKeyProvider struct {
	key *rsa.PublicKey
}

func (s *stubKeyProvider) SigningKey(_ context.Context, kid string) (*rsa.PublicKey, error) {
	if kid != testKid {
		return nil, fmt.Errorf("unknown kid %s", kid)
	}
	return s.key, nil
}

func newVerifyingRouter(t *testing.T) (http.Handler, *rsa.PrivateKey) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	auth := usecase.NewAuthService(&stubKeyProvider{key: &priv.PublicKey}, testAudience, testIssuer)
	return newTestRouter(t, auth, ""), priv
}

func signToken(t *testing.T, priv *rsa.PrivateKey, permissions []string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":         testIssuer,
		"aud":         testAudience,
		"sub":         "auth0|tester",
		"exp":         time.Now().Add(time.Hour).Unix(),
		"permissions": permissions,
	})
	token.Header["kid"] = testKid

	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthRejectsBeforeBodyIsRead(t *testing.T) {
	router, priv := newVerifyingRouter(t)

	// Broken body plus no credentials: the auth failure wins.
	rr, body := doRequest(t, router, http.MethodPost, "/api/actors", `{"name":`, nil)
	assertErrorEnvelope(t, rr, body, http.StatusUnauthorized)
	if body["message"] != "Authorization header is expected." {
		t.Fatalf("unexpected message %v", body["message"])
	}

	// Nothing was persisted.
	token := signToken(t, priv, []string{"get:actors"})
	rr, body = doRequest(t, router, http.MethodGet, "/api/actors", "", map[string]string{"Authorization": "Bearer " + token})
	if rr.Code != http.StatusOK {
		t.Fatalf("list status %d body %s", rr.Code, rr.Body.String())
	}
	if total := int(body["totalActors"].(float64)); total != 0 {
		t.Fatalf("expected no actors persisted, got %d", total)
	}
}

func TestAuthForbiddenWithoutPermission(t *testing.T) {
	router, priv := newVerifyingRouter(t)
	token := signToken(t, priv, []string{"get:actors"})

	rr, body := doRequest(t, router, http.MethodDelete, "/api/actors/1", "", map[string]string{"Authorization": "Bearer " + token})
	assertErrorEnvelope(t, rr, body, http.StatusForbidden)
	if body["message"] != "Permission not found." {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestAuthAllowsWithPermission(t *testing.T) {
	router, priv := newVerifyingRouter(t)
	token := signToken(t, priv, []string{"post:actors"})

	rr, body := doRequest(t, router, http.MethodPost, "/api/actors", `{"name":"Signed In","age":50,"gender":"F"}`, map[string]string{"Authorization": "Bearer " + token})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	if body["success"] != true {
		t.Fatalf("expected success true, got %v", body["success"])
	}
}
