package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/logger"
	"ecommerce-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errMissingPrincipal = domain.Unauthorized("unauthorized")
	errInvalidID        = domain.Validation("invalid id")
)

// statusFor maps an error kind to its HTTP status; unknown kinds are 500
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation, domain.KindRuleViolation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the envelope for err. Classified errors carry their own message,
// anything else is logged and hidden behind a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		if status := statusFor(derr.Kind); status != http.StatusInternalServerError {
			logger.FromCtx(r.Context(), log).Debug("Request rejected",
				zap.String("kind", derr.Kind.String()),
				zap.String("message", derr.Message),
			)
			middleware.RespondWithError(w, r, status, derr.Message)
			return
		}
	}

	logger.FromCtx(r.Context(), log).Error("Request failed",
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	middleware.RespondWithError(w, r, http.StatusInternalServerError, "internal server error")
}

func principalOf(r *http.Request) (domain.Principal, error) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return domain.Principal{}, errMissingPrincipal
	}
	return principal, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// pageQuery reads pageNo, pageSize, sortBy and sortDir. Unparseable numbers fall back to defaults.
func pageQuery(r *http.Request) domain.PageQuery {
	q := r.URL.Query()
	page := domain.PageQuery{
		SortBy:  q.Get("sortBy"),
		SortDir: domain.SortDirection(strings.ToUpper(q.Get("sortDir"))),
	}
	if n, err := strconv.Atoi(q.Get("pageNo")); err == nil {
		page.PageNo = n
	}
	if n, err := strconv.Atoi(q.Get("pageSize")); err == nil {
		page.PageSize = n
	}
	return page
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, domain.Validation("invalid id: " + s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
