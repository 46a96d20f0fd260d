// Package api provides HTTP handlers and routing for the prediction
// service. It includes token issuance, JWT authentication middleware, and
// the prediction endpoints that front internal/pipeline.Pipeline.
package api

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"eve.evalgo.org/internal/pipeline"
	"eve.evalgo.org/internal/predictors"
	"eve.evalgo.org/security"
)

// Handlers contains the service dependencies required for API operations:
// the prediction pipeline and the JWT service used for token issuance.
// JWTSecret is the raw signing key echojwt validates incoming Bearer
// tokens against; it is the same secret JWT.GenerateToken signs with,
// since a JWT is a standard wire format and either library can validate
// what the other signed.
type Handlers struct {
	Pipeline  *pipeline.Pipeline
	JWT       *security.JWTService
	JWTSecret string
}

// SetupRoutes configures all API routes for the prediction service.
//
// Public routes:
//   - POST /auth/token - Generate authentication token
//   - GET /healthz - Liveness check
//
// Protected routes (require JWT authentication):
//   - POST /v1/api/predict/print-time - Predict print time for one job
//   - POST /v1/api/predict/demand-forecast - Predict demand for one product
//
// Parameters:
//   - e: Echo instance to register routes with
//   - h: Handlers struct containing service dependencies
func SetupRoutes(e *echo.Echo, h *Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	auth := e.Group("/auth")
	auth.POST("/token", h.GenerateToken)

	protected := e.Group("/v1/api")
	protected.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:     []byte(h.JWTSecret),
		TokenLookup:    "header:Authorization:Bearer ",
		SuccessHandler: storeAuthenticatedUser,
	}))

	protected.POST("/predict/print-time", h.PredictPrintTime)
	protected.POST("/predict/demand-forecast", h.PredictDemandForecast)
}

// storeAuthenticatedUser copies the "sub" claim off the token echojwt just
// validated into the AuthUser SetUser/GetUser contract authorization.go's
// scope middleware already relies on.
func storeAuthenticatedUser(c echo.Context) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return
	}
	sub, _ := claims["sub"].(string)
	SetUser(c, &AuthUser{ID: sub, Claims: claims})
}

// TokenRequest represents the request payload for token generation.
// It requires a user ID to associate with the generated JWT token.
type TokenRequest struct {
	UserID string `json:"user_id" validate:"required"` // User identifier for token association
}

// TokenResponse represents the response payload containing the generated JWT token.
type TokenResponse struct {
	Token string `json:"token"` // JWT token for API authentication
}

// GenerateToken handles JWT token generation for user authentication.
// It validates the user ID and generates a token with 24-hour expiration.
//
// Endpoint: POST /auth/token
//
// Request body:
//
//	{
//	  "user_id": "string" // Required: User identifier
//	}
//
// Response:
//
//	Success (200): {"token": "jwt_token_string"}
//	Bad Request (400): {"error": "error_message"}
//	Internal Error (500): {"error": "error_message"}
func (h *Handlers) GenerateToken(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	token, err := h.JWT.GenerateToken(req.UserID, 24*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
	}

	return c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// PrintTimeAPIRequest is the wire shape for a print-time prediction
// request. Geometry is accepted as base64 in JSON (encoding/json's
// default []byte encoding) so a binary STL upload survives a JSON body.
type PrintTimeAPIRequest struct {
	Geometry    []byte  `json:"geometry"`
	Material    string  `json:"material"`
	Density     float64 `json:"density"`
	Printer     string  `json:"printer"`
	Speed       float64 `json:"speed"`
	LayerHeight float64 `json:"layerHeight"`
	NozzleTemp  float64 `json:"nozzleTemp"`
	BedTemp     float64 `json:"bedTemp"`
	Infill      float64 `json:"infill"`
}

// PredictPrintTime predicts print time for one job.
//
// Endpoint: POST /v1/api/predict/print-time
// Authentication: Required (JWT Bearer token)
//
// Response:
//
//	Success (200): pipeline.Response
//	Bad Request (400): {"error": "error_message"}
//	Service Unavailable (503): {"error": "error_message"}
//	Internal Error (500): {"error": "error_message"}
func (h *Handlers) PredictPrintTime(c echo.Context) error {
	var req PrintTimeAPIRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	domainReq := pipeline.PrintTimeRequest{
		Geometry:    req.Geometry,
		Material:    req.Material,
		Density:     req.Density,
		Printer:     req.Printer,
		Speed:       req.Speed,
		LayerHeight: req.LayerHeight,
		NozzleTemp:  req.NozzleTemp,
		BedTemp:     req.BedTemp,
		Infill:      req.Infill,
	}
	return h.predict(c, "PrintTime", domainReq)
}

// DemandForecastAPIRequest is the wire shape for a demand-forecast
// prediction request. BaselineDate is RFC3339; it is not defaulted, so an
// empty value reaches DemandForecastHandler.Validate as the zero time and
// is rejected there as outside the two-year window.
type DemandForecastAPIRequest struct {
	ProductID    string    `json:"productId"`
	Horizon      int       `json:"horizon"`
	Granularity  string    `json:"granularity"`
	BaselineDate time.Time `json:"baselineDate"`
}

// PredictDemandForecast predicts demand for one product over a horizon.
//
// Endpoint: POST /v1/api/predict/demand-forecast
// Authentication: Required (JWT Bearer token)
func (h *Handlers) PredictDemandForecast(c echo.Context) error {
	var req DemandForecastAPIRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	domainReq := pipeline.DemandForecastRequest{
		ProductID:    req.ProductID,
		Horizon:      req.Horizon,
		Granularity:  predictors.Granularity(req.Granularity),
		BaselineDate: req.BaselineDate,
	}
	return h.predict(c, "DemandForecast", domainReq)
}

// predict runs the shared request path common to every family: resolve
// the caller's user id from the authenticated context, derive or pass
// through a correlation id, invoke the pipeline, and translate its error
// taxonomy to an HTTP status.
func (h *Handlers) predict(c echo.Context, family string, req any) error {
	userID := ""
	if user, ok := GetUser(c); ok {
		userID = user.ID
	}
	correlationID := c.Request().Header.Get("X-Correlation-Id")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	resp, err := h.Pipeline.Predict(c.Request().Context(), family, req, userID, correlationID)
	if err != nil {
		return c.JSON(statusForPredictError(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}
