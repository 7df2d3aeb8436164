package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
	"github.com/atvirokodosprendimai/castingapi/internal/core/usecase"
)

const (
	dateLayout      = "2006-01-02"
	maxJSONBodySize = 1 << 20
)

type Handler struct {
	actorService  *usecase.ActorService
	movieService  *usecase.MovieService
	schemaService *usecase.SchemaService
	authService   *usecase.AuthService
	loginURL      string
}

func NewHandler(actors *usecase.ActorService, movies *usecase.MovieService, schemas *usecase.SchemaService, auth *usecase.AuthService, loginURL string) *Handler {
	return &Handler{
		actorService:  actors,
		movieService:  movies,
		schemaService: schemas,
		authService:   auth,
		loginURL:      loginURL,
	}
}

// Router wires the middleware chain in fixed order: request id, then
// permission check, then schema validation, then the handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthcheck", h.healthcheck)
		r.Get("/login", h.login)

		r.Route("/actors", func(r chi.Router) {
			r.With(h.requirePermission(domain.PermGetActors)).
				Get("/", h.listActors)
			r.With(h.requirePermission(domain.PermPostActors), h.validateSchema(usecase.SchemaCreateActor)).
				Post("/", h.createActor)
			r.With(h.requirePermission(domain.PermGetActorDetail)).
				Get("/{id}", h.getActor)
			r.With(h.requirePermission(domain.PermPatchActors), h.validateSchema(usecase.SchemaUpdateActor)).
				Patch("/{id}", h.updateActor)
			r.With(h.requirePermission(domain.PermDeleteActors)).
				Delete("/{id}", h.deleteActor)
		})

		r.Route("/movies", func(r chi.Router) {
			r.With(h.requirePermission(domain.PermGetMovies)).
				Get("/", h.listMovies)
			r.With(h.requirePermission(domain.PermPostMovies), h.validateSchema(usecase.SchemaCreateMovie)).
				Post("/", h.createMovie)
			r.With(h.requirePermission(domain.PermGetMovieDetail)).
				Get("/{id}", h.getMovie)
			r.With(h.requirePermission(domain.PermPatchMovies), h.validateSchema(usecase.SchemaUpdateMovie)).
				Patch("/{id}", h.updateMovie)
			r.With(h.requirePermission(domain.PermDeleteMovies)).
				Delete("/{id}", h.deleteMovie)
		})
	})

	return r
}

type createActorRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type updateActorRequest struct {
	Name   *string  `json:"name"`
	Age    *int     `json:"age"`
	Gender *string  `json:"gender"`
	Movies *[]int64 `json:"movies"`
}

type createMovieRequest struct {
	Title       string `json:"title"`
	ReleaseDate string `json:"releaseDate"`
}

type updateMovieRequest struct {
	Title       *string  `json:"title"`
	ReleaseDate *string  `json:"releaseDate"`
	Actors      *[]int64 `json:"actors"`
}

type actorResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type actorDetailResponse struct {
	actorResponse
	Movies []movieResponse `json:"movies"`
}

type movieResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"releaseDate"`
}

type movieDetailResponse struct {
	movieResponse
	Actors []actorResponse `json:"actors"`
}

func (h *Handler) listActors(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}

	actors, total, err := h.actorService.List(r.Context(), page)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	result := make([]actorResponse, 0, len(actors))
	for _, actor := range actors {
		result = append(result, toActorResponse(actor))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"actors":      result,
		"totalActors": total,
	})
}

func (h *Handler) getActor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	actor, err := h.actorService.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"actor":   toActorDetailResponse(actor),
	})
}

func (h *Handler) createActor(w http.ResponseWriter, r *http.Request) {
	var req createActorRequest
	if err := json.Unmarshal(bodyFromContext(r.Context()), &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	actor, err := h.actorService.Create(r.Context(), domain.Actor{
		Name:   req.Name,
		Age:    req.Age,
		Gender: domain.Gender(req.Gender),
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	log.Printf("[%s] actor %d created by %s", requestIDFromContext(r.Context()), actor.ID, subjectFromContext(r))
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"created": actor.ID,
	})
}

func (h *Handler) updateActor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateActorRequest
	if err := json.Unmarshal(bodyFromContext(r.Context()), &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	patch := domain.ActorPatch{
		Name:     req.Name,
		Age:      req.Age,
		MovieIDs: req.Movies,
	}
	if req.Gender != nil {
		gender := domain.Gender(*req.Gender)
		patch.Gender = &gender
	}

	actor, err := h.actorService.Update(r.Context(), id, patch)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"actor":   toActorDetailResponse(actor),
	})
}

func (h *Handler) deleteActor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.actorService.Delete(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}

	log.Printf("[%s] actor %d deleted by %s", requestIDFromContext(r.Context()), id, subjectFromContext(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": id,
	})
}

func (h *Handler) listMovies(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}

	movies, total, err := h.movieService.List(r.Context(), page)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	result := make([]movieResponse, 0, len(movies))
	for _, movie := range movies {
		result = append(result, toMovieResponse(movie))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"movies":      result,
		"totalMovies": total,
	})
}

func (h *Handler) getMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	movie, err := h.movieService.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"movie":   toMovieDetailResponse(movie),
	})
}

func (h *Handler) createMovie(w http.ResponseWriter, r *http.Request) {
	var req createMovieRequest
	if err := json.Unmarshal(bodyFromContext(r.Context()), &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	released, err := time.Parse(dateLayout, req.ReleaseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "releaseDate must be a date formatted YYYY-MM-DD")
		return
	}

	movie, err := h.movieService.Create(r.Context(), domain.Movie{
		Title:       req.Title,
		ReleaseDate: released,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	log.Printf("[%s] movie %d created by %s", requestIDFromContext(r.Context()), movie.ID, subjectFromContext(r))
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"created": movie.ID,
	})
}

func (h *Handler) updateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateMovieRequest
	if err := json.Unmarshal(bodyFromContext(r.Context()), &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	patch := domain.MoviePatch{
		Title:    req.Title,
		ActorIDs: req.Actors,
	}
	if req.ReleaseDate != nil {
		released, err := time.Parse(dateLayout, *req.ReleaseDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "releaseDate must be a date formatted YYYY-MM-DD")
			return
		}
		patch.ReleaseDate = &released
	}

	movie, err := h.movieService.Update(r.Context(), id, patch)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"movie":   toMovieDetailResponse(movie),
	})
}

func (h *Handler) deleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.movieService.Delete(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}

	log.Printf("[%s] movie %d deleted by %s", requestIDFromContext(r.Context()), id, subjectFromContext(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": id,
	})
}

func (h *Handler) healthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "online"})
}

// login redirects to the identity provider's authorize page. Tokens are
// issued there; this API only ever verifies them.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if h.loginURL == "" {
		writeError(w, http.StatusNotFound, "login is not configured")
		return
	}
	http.Redirect(w, r, h.loginURL, http.StatusFound)
}

func toActorResponse(actor domain.Actor) actorResponse {
	return actorResponse{
		ID:     actor.ID,
		Name:   actor.Name,
		Age:    actor.Age,
		Gender: string(actor.Gender),
	}
}

func toActorDetailResponse(actor domain.Actor) actorDetailResponse {
	movies := make([]movieResponse, 0, len(actor.Movies))
	for _, movie := range actor.Movies {
		movies = append(movies, toMovieResponse(movie))
	}
	return actorDetailResponse{actorResponse: toActorResponse(actor), Movies: movies}
}

func toMovieResponse(movie domain.Movie) movieResponse {
	return movieResponse{
		ID:          movie.ID,
		Title:       movie.Title,
		ReleaseDate: movie.ReleaseDate.Format(dateLayout),
	}
}

func toMovieDetailResponse(movie domain.Movie) movieDetailResponse {
	actors := make([]actorResponse, 0, len(movie.Actors))
	for _, actor := range movie.Actors {
		actors = append(actors, toActorResponse(actor))
	}
	return movieDetailResponse{movieResponse: toMovieResponse(movie), Actors: actors}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "resource not found")
		return 0, false
	}
	return id, true
}

func parsePage(w http.ResponseWriter, r *http.Request) (int, bool) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return 0, false
		}
		page = parsed
	}
	return page, true
}

func subjectFromContext(r *http.Request) string {
	subject := claimsFromContext(r.Context()).Subject
	if subject == "" {
		return "unknown"
	}
	return subject
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("encode json response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   status,
		"message": message,
	})
}

// handleDomainError converts service-layer failures into the uniform error
// envelope. Unknown errors are logged with the request id and never leak.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var violation *domain.ErrSchemaViolation
	switch {
	case errors.As(err, &violation):
		writeError(w, http.StatusBadRequest, violation.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrNoLinkedEntities):
		writeError(w, http.StatusUnprocessableEntity, "none of the referenced ids could be resolved")
	default:
		log.Printf("[%s] %s %s: %v", requestIDFromContext(r.Context()), r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}
