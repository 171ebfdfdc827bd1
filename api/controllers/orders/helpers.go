package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bazaarsetu/bazaarsetu-backend/api/middleware"
	"github.com/bazaarsetu/bazaarsetu-backend/api/responses"
	"github.com/bazaarsetu/bazaarsetu-backend/api/validators"
	internalorders "github.com/bazaarsetu/bazaarsetu-backend/internal/orders"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
)

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		return internalorders.Actor{}, err
	}
	return internalorders.Actor{ID: userID, Role: middleware.RoleFromContext(r.Context())}, nil
}

func withActor(svc internalorders.Service, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, internalorders.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, actor)
	}
}

func withOrder(svc internalorders.Service, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, internalorders.Actor, uuid.UUID)) http.HandlerFunc {
	return withActor(svc, logg, func(w http.ResponseWriter, r *http.Request, actor internalorders.Actor) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		fn(w, r.WithContext(ctx), actor, orderID)
	})
}

// decodeOptionalBody accepts an empty body for endpoints whose payload is optional.
func decodeOptionalBody(r *http.Request, dest any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return validators.DecodeJSONBody(r, dest)
}
