package controllers

import (
	"net/http"

	"github.com/brunomarket/fulfillment-backend/api/responses"
	"github.com/brunomarket/fulfillment-backend/api/validators"
	"github.com/brunomarket/fulfillment-backend/internal/stores"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
)

// StoreList returns the fulfillment stores, active ones by default.
// Pass include_inactive=true to see the full roster.
func StoreList(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("include_inactive") != "true"

		views, err := svc.List(r.Context(), activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// StoreGet returns one store by id.
func StoreGet(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}
