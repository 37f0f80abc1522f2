package openapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {

	// (GET /health)
	GetHealthStatus(w http.ResponseWriter, r *http.Request)

	// (POST /api/v1/eligibility)
	CheckEligibility(w http.ResponseWriter, r *http.Request)

	// (POST /api/v1/claims)
	SubmitClaim(w http.ResponseWriter, r *http.Request)

	// (POST /api/v1/communications)
	SendCommunication(w http.ResponseWriter, r *http.Request)

	// (GET /api/v1/submissions/{submissionId})
	GetSubmissionById(w http.ResponseWriter, r *http.Request, submissionId string)

	// (GET /api/v1/reports/rejections)
	GetRejectionReport(w http.ResponseWriter, r *http.Request, params GetRejectionReportParams)

	// (POST /api/v1/notifications/ack)
	AcknowledgeNotification(w http.ResponseWriter, r *http.Request, params AcknowledgeNotificationParams)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.HandlerFunc) {
	var handler http.Handler = h
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// GetHealthStatus operation middleware
func (siw *ServerInterfaceWrapper) GetHealthStatus(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetHealthStatus(w, r)
	})
}

// CheckEligibility operation middleware
func (siw *ServerInterfaceWrapper) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithValue(r.Context(), ApiKeyAuthScopes, []string{})
	r = r.WithContext(ctx)

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CheckEligibility(w, r)
	})
}

// SubmitClaim operation middleware
func (siw *ServerInterfaceWrapper) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithValue(r.Context(), ApiKeyAuthScopes, []string{})
	r = r.WithContext(ctx)

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.SubmitClaim(w, r)
	})
}

// SendCommunication operation middleware
func (siw *ServerInterfaceWrapper) SendCommunication(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithValue(r.Context(), ApiKeyAuthScopes, []string{})
	r = r.WithContext(ctx)

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.SendCommunication(w, r)
	})
}

// GetSubmissionById operation middleware
func (siw *ServerInterfaceWrapper) GetSubmissionById(w http.ResponseWriter, r *http.Request) {
	var err error

	// ------------- Path parameter "submissionId" -------------
	var submissionId string

	err = runtime.BindStyledParameterWithOptions("simple", "submissionId", chi.URLParam(r, "submissionId"), &submissionId, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "submissionId", Err: err})
		return
	}

	ctx := context.WithValue(r.Context(), ApiKeyAuthScopes, []string{})
	r = r.WithContext(ctx)

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetSubmissionById(w, r, submissionId)
	})
}

// GetRejectionReport operation middleware
func (siw *ServerInterfaceWrapper) GetRejectionReport(w http.ResponseWriter, r *http.Request) {
	var err error

	ctx := context.WithValue(r.Context(), ApiKeyAuthScopes, []string{})
	r = r.WithContext(ctx)

	// Parameter object where we will unmarshal all parameters from the context
	var params GetRejectionReportParams

	// ------------- Optional query parameter "payer_code" -------------

	err = runtime.BindQueryParameter("form", true, false, "payer_code", r.URL.Query(), &params.PayerCode)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "payer_code", Err: err})
		return
	}

	// ------------- Optional query parameter "since" -------------

	err = runtime.BindQueryParameter("form", true, false, "since", r.URL.Query(), &params.Since)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "since", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetRejectionReport(w, r, params)
	})
}

// AcknowledgeNotification operation middleware
func (siw *ServerInterfaceWrapper) AcknowledgeNotification(w http.ResponseWriter, r *http.Request) {
	var err error

	ctx := context.WithValue(r.Context(), ApiKeyAuthScopes, []string{})
	r = r.WithContext(ctx)

	// Parameter object where we will unmarshal all parameters from the context
	var params AcknowledgeNotificationParams

	headers := r.Header

	// ------------- Required header parameter "X-Signature" -------------
	if valueList, found := headers[http.CanonicalHeaderKey("X-Signature")]; found {
		var XSignature string
		n := len(valueList)
		if n != 1 {
			siw.ErrorHandlerFunc(w, r, &TooManyValuesForParamError{ParamName: "X-Signature", Count: n})
			return
		}

		err = runtime.BindStyledParameterWithOptions("simple", "X-Signature", valueList[0], &XSignature, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Explode: false, Required: true})
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "X-Signature", Err: err})
			return
		}

		params.XSignature = XSignature

	} else {
		err := fmt.Errorf("Header parameter X-Signature is required, but not found")
		siw.ErrorHandlerFunc(w, r, &RequiredHeaderError{ParamName: "X-Signature", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.AcknowledgeNotification(w, r, params)
	})
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

type RequiredHeaderError struct {
	ParamName string
	Err       error
}

func (e *RequiredHeaderError) Error() string {
	return fmt.Sprintf("Header parameter %s is required, but not found", e.ParamName)
}

func (e *RequiredHeaderError) Unwrap() error {
	return e.Err
}

type TooManyValuesForParamError struct {
	ParamName string
	Count     int
}

func (e *TooManyValuesForParamError) Error() string {
	return fmt.Sprintf("Expected one value for %s, got %d", e.ParamName, e.Count)
}

// Handler creates http.Handler with routing matching OpenAPI spec.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux creates http.Handler with routing matching OpenAPI spec based on the provided mux.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseRouter: r,
	})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealthStatus)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/api/v1/eligibility", wrapper.CheckEligibility)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/api/v1/claims", wrapper.SubmitClaim)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/api/v1/communications", wrapper.SendCommunication)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/submissions/{submissionId}", wrapper.GetSubmissionById)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/reports/rejections", wrapper.GetRejectionReport)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/api/v1/notifications/ack", wrapper.AcknowledgeNotification)
	})

	return r
}
