package submission

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/claims/internal/domain/claim"
	"github.com/ehr/claims/internal/domain/normalize"
	"github.com/ehr/claims/internal/platform/fhir"
	"github.com/ehr/claims/internal/platform/payload"
	"github.com/ehr/claims/pkg/pagination"
)

// ErrorSystem identifies normalization failure codes in OperationOutcome details.
const ErrorSystem = "urn:claims:normalization-error"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	claims := api.Group("/claims")
	claims.POST("/normalize", h.Normalize)
	claims.POST("/normalize/batch", h.NormalizeBatch)
	claims.POST("/validate", h.Validate)
	claims.POST("/validate/batch", h.ValidateBatch)
	claims.POST("/process", h.Process)
	claims.POST("/process/batch", h.ProcessBatch)

	api.GET("/submissions", h.ListSubmissions)
	api.GET("/submissions/:id", h.GetSubmission)
}

type normalizeBatchRequest struct {
	Format   string          `json:"format"`
	Payloads []payload.Value `json:"payloads"`
}

type processBatchRequest struct {
	Format   string          `json:"format"`
	Payloads []payload.Value `json:"payloads"`
	Validate *bool           `json:"validate"`
}

type validateBatchRequest struct {
	Claims []*claim.CanonicalClaim `json:"claims"`
}

type itemError struct {
	Kind   normalize.ErrorKind `json:"kind"`
	Detail string              `json:"detail"`
}

type batchItem struct {
	Index int                   `json:"index"`
	Claim *claim.CanonicalClaim `json:"claim,omitempty"`
	Error *itemError            `json:"error,omitempty"`
}

// errorOutcome maps a normalization failure onto an HTTP status and a FHIR
// OperationOutcome carrying the failure kind.
func errorOutcome(err error) (int, *fhir.OperationOutcome) {
	var nerr *normalize.Error
	if !errors.As(err, &nerr) {
		return http.StatusInternalServerError, fhir.InternalErrorOutcome(err.Error())
	}
	status, code := http.StatusUnprocessableEntity, fhir.IssueTypeInvalid
	switch nerr.Kind {
	case normalize.KindParsingError:
		status, code = http.StatusBadRequest, fhir.IssueTypeStructure
	case normalize.KindUnsupportedFormat:
		code = fhir.IssueTypeNotSupported
	case normalize.KindMissingRequiredField:
		code = fhir.IssueTypeRequired
	}
	return status, fhir.NewOutcomeBuilder().
		AddCodedIssue(fhir.IssueSeverityError, code, ErrorSystem, string(nerr.Kind), nerr.Error(), "").
		Build()
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "could not read request body")
	}
	return body, nil
}

func parseValidate(c echo.Context) (bool, error) {
	raw := c.QueryParam("validate")
	if raw == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, echo.NewHTTPError(http.StatusBadRequest, "invalid validate flag")
	}
	return v, nil
}

func (h *Handler) Normalize(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.NormalizeJSON(body, c.QueryParam("format"))
	if err != nil {
		status, outcome := errorOutcome(err)
		return c.JSON(status, outcome)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) NormalizeBatch(c echo.Context) error {
	var req normalizeBatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeStructure, "invalid batch body"))
	}
	if req.Format == "" {
		req.Format = c.QueryParam("format")
	}
	results := h.svc.NormalizeBatch(req.Payloads, req.Format)
	items := make([]batchItem, len(results))
	for i, r := range results {
		items[i] = batchItem{Index: r.Index, Claim: r.Claim}
		if r.Err != nil {
			kind, _ := normalize.KindOf(r.Err)
			items[i].Error = &itemError{Kind: kind, Detail: r.Err.Error()}
		}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Validate(c echo.Context) error {
	var cl claim.CanonicalClaim
	if err := c.Bind(&cl); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeStructure, "invalid claim body"))
	}
	if err := cl.CheckAmounts(); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeInvalid, err.Error()))
	}
	return c.JSON(http.StatusOK, h.svc.Validate(&cl))
}

func (h *Handler) ValidateBatch(c echo.Context) error {
	var req validateBatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeStructure, "invalid batch body"))
	}
	for i, cl := range req.Claims {
		if cl == nil {
			continue
		}
		if err := cl.CheckAmounts(); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeInvalid, fmt.Sprintf("claims[%d]: %v", i, err)))
		}
	}
	return c.JSON(http.StatusOK, h.svc.ValidateBatch(req.Claims))
}

func (h *Handler) Process(c echo.Context) error {
	validate, err := parseValidate(c)
	if err != nil {
		return err
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	raw, err := payload.Decode(body)
	if err != nil {
		status, outcome := errorOutcome(&normalize.Error{Kind: normalize.KindParsingError, Detail: "payload is not valid JSON", Err: err})
		return c.JSON(status, outcome)
	}
	sub, err := h.svc.Process(c.Request().Context(), raw, c.QueryParam("format"), validate)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !sub.Accepted() {
		return c.JSON(http.StatusUnprocessableEntity, sub)
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *Handler) ProcessBatch(c echo.Context) error {
	var req processBatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeStructure, "invalid batch body"))
	}
	validate := true
	if req.Validate != nil {
		validate = *req.Validate
	}
	subs, err := h.svc.ProcessBatch(c.Request().Context(), req.Payloads, req.Format, validate)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, subs)
}

func (h *Handler) GetSubmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sub, err := h.svc.Get(c.Request().Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Submission", id.String()))
	case errors.Is(err, ErrNoStore):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) ListSubmissions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if errors.Is(err, ErrNoStore) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path))
}
