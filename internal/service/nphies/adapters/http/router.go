package http

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	oapimw "github.com/oapi-codegen/nethttp-middleware"

	fhirmodel "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir/model"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/http/openapi"
)

// Mount registers every API route on r behind OpenAPI request validation.
func Mount(r chi.Router, srv *Server) error {
	swagger, err := openapi.GetSwagger()
	if err != nil {
		return err
	}
	// validate paths only, whatever host serves them
	swagger.Servers = nil

	r.Group(func(r chi.Router) {
		r.Use(oapimw.OapiRequestValidatorWithOptions(swagger, &oapimw.Options{
			Options: openapi3filter.Options{
				// X-API-Key is enforced by the runtime middleware
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
			ErrorHandler: validationError,
		}))

		openapi.HandlerWithOptions(srv, openapi.ChiServerOptions{
			BaseRouter: r,
			ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
				renderOutcome(w, r, http.StatusBadRequest, fhirmodel.IssueTypeInvalid, err.Error(), "")
			},
		})
	})
	return nil
}

// Router returns a standalone handler with the API mounted.
func Router(srv *Server) (http.Handler, error) {
	r := chi.NewRouter()
	if err := Mount(r, srv); err != nil {
		return nil, err
	}
	return r, nil
}

func validationError(w http.ResponseWriter, message string, statusCode int) {
	code := fhirmodel.IssueTypeInvalid
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		code = fhirmodel.IssueTypeSecurity
	}
	outcome := fhirmodel.NewOutcomeBuilder().
		AddIssue(fhirmodel.IssueSeverityError, code, message).
		Build()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(outcome)
}
