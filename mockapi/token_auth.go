package mockapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/krancour/cloudbalance"
)

type principalContextKey struct{}

// tokenAuthFilter authenticates requests bearing a session token and, when
// roles are given, requires the session's user to hold one of them.
type tokenAuthFilter struct {
	service *Service
	writer  *baseEndpoints
	roles   []cloudbalance.Role
}

func (b *baseEndpoints) tokenAuth(roles ...cloudbalance.Role) *tokenAuthFilter {
	return &tokenAuthFilter{
		service: b.service,
		writer:  b,
		roles:   roles,
	}
}

func (t *tokenAuthFilter) Decorate(handle http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		headerValueParts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(headerValueParts) != 2 || headerValueParts[0] != "Bearer" {
			t.writer.writeError(
				w,
				cloudbalance.NewErrAuthentication("Authentication required"),
			)
			return
		}
		p, err := t.service.authenticate(headerValueParts[1])
		if err != nil {
			t.writer.writeError(w, err)
			return
		}
		if len(t.roles) > 0 && !hasRole(p.user.Role, t.roles) {
			t.writer.writeError(
				w,
				cloudbalance.NewErrAuthorization(msgAccessDenied),
			)
			return
		}
		ctx := context.WithValue(r.Context(), principalContextKey{}, p)
		handle(w, r.WithContext(ctx))
	}
}

func principalFromContext(ctx context.Context) principal {
	p, _ := ctx.Value(principalContextKey{}).(principal)
	return p
}

func hasRole(role cloudbalance.Role, roles []cloudbalance.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
