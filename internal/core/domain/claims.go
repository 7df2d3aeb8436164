package domain

// Permission strings carried in a token's permissions claim. Each endpoint
// declares exactly one of these.
const (
	PermGetActors      = "get:actors"
	PermGetActorDetail = "get:actor-detail"
	PermPostActors     = "post:actors"
	PermPatchActors    = "patch:actors"
	PermDeleteActors   = "delete:actors"

	PermGetMovies      = "get:movies"
	PermGetMovieDetail = "get:movie-detail"
	PermPostMovies     = "post:movies"
	PermPatchMovies    = "patch:movies"
	PermDeleteMovies   = "delete:movies"
)

// Claims is the verified payload of a bearer token. It lives for the
// duration of one request and is never persisted.
type Claims struct {
	Issuer      string
	Subject     string
	Audience    []string
	Permissions []string
}

func (c Claims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
