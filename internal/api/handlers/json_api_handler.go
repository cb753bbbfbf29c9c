package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greendrake/estate/internal/api/middleware"
	"greendrake/estate/internal/auth"
	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/services"
	"greendrake/estate/internal/utils"
)

// JsonApiRequest defines the expected structure for JSON API requests.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse defines the structure for JSON API responses.
type JsonApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    rules.Kind  `json:"kind,omitempty"`
	Field   string      `json:"field,omitempty"`
}

// apiMethodFunc defines the signature for handler methods.
type apiMethodFunc func(c *gin.Context, args json.RawMessage) (interface{}, error)

// JsonApiHandler dispatches the record actions of the estate workflow:
// selling, cancelling, archiving, offer acceptance and refusal.
type JsonApiHandler struct {
	jwtSecret       string
	propertyService services.IPropertyService
	offerService    services.IOfferService
	partyService    services.IPartyService
	log             *zap.Logger
	methods         map[string]apiMethodFunc
}

// NewJsonApiHandler creates a new handler for the JSON API endpoint.
func NewJsonApiHandler(
	jwtSecret string,
	propertyService services.IPropertyService,
	offerService services.IOfferService,
	partyService services.IPartyService,
	logger *zap.Logger,
) *JsonApiHandler {
	h := &JsonApiHandler{
		jwtSecret:       jwtSecret,
		propertyService: propertyService,
		offerService:    offerService,
		partyService:    partyService,
		log:             logging.OrNop(logger).Named("jsonapi"),
	}
	h.methods = map[string]apiMethodFunc{
		"ping":                h.ping,
		"login":               h.login,
		"me":                  h.me,
		"createOffers":        h.createOffers,
		"acceptOffer":         h.acceptOffer,
		"refuseOffers":        h.refuseOffers,
		"sellProperties":      h.sellProperties,
		"cancelProperties":    h.cancelProperties,
		"archiveProperties":   h.archiveProperties,
		"unarchiveProperties": h.unarchiveProperties,
	}
	return h
}

// HandleRequest is the main entry point for POST /v1/api
func (h *JsonApiHandler) HandleRequest(c *gin.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.sendErrorResponse(c, "Failed to read request body")
		return
	}

	var req JsonApiRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.sendErrorResponse(c, "Invalid JSON request format")
		return
	}

	handlerFunc, ok := h.methods[req.Method]
	if !ok {
		h.sendErrorResponse(c, fmt.Sprintf("Unknown method: %s", req.Method))
		return
	}
	if methodRequiresAuth(req.Method) {
		if msg := h.authenticate(c); msg != "" {
			h.sendErrorResponse(c, msg)
			return
		}
	}

	result, err := handlerFunc(c, req.Arguments)
	if err != nil {
		h.sendFailure(c, req.Method, err)
		return
	}
	h.sendSuccessResponse(c, result)
}

// authenticate validates the bearer token and sets the acting user on the
// request context. It returns a message when the request is rejected.
func (h *JsonApiHandler) authenticate(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "Authorization header required"
	}
	tokenString, ok := middleware.BearerToken(authHeader)
	if !ok {
		return "Authorization header format must be Bearer {token}"
	}
	claims, err := auth.ValidateJWT(tokenString, h.jwtSecret)
	if err != nil {
		return "Invalid or expired token"
	}
	userID, err := claims.Actor()
	if err != nil {
		return "Invalid or expired token"
	}
	c.Request = c.Request.WithContext(services.WithActor(c.Request.Context(), userID))
	return ""
}

// methodRequiresAuth checks if a given API method requires authentication.
func methodRequiresAuth(method string) bool {
	switch method {
	case "ping", "login":
		return false
	default:
		return true
	}
}

// --- Private helper methods ---

func (h *JsonApiHandler) sendSuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: true, Data: data})
}

func (h *JsonApiHandler) sendErrorResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: false, Error: message})
}

func (h *JsonApiHandler) sendFailure(c *gin.Context, method string, err error) {
	body := errorBody(err)
	if StatusFor(err) == http.StatusInternalServerError {
		h.log.Error("json api method failed", zap.String("method", method), zap.Error(err))
	}
	c.JSON(http.StatusOK, JsonApiResponse{Success: false, Error: body.Error, Kind: body.Kind, Field: body.Field})
}

// parseRequiredSingleArgFromArray expects 'arguments' to be a JSON array and
// unmarshals its first element into targetVarPtr.
func parseRequiredSingleArgFromArray(rawArgPayload json.RawMessage, targetVarPtr interface{}) error {
	if rawArgPayload == nil {
		return rules.Usage("Missing 'arguments' field; expected a JSON array with one argument.")
	}
	var argArray []json.RawMessage
	if err := json.Unmarshal(rawArgPayload, &argArray); err != nil {
		return rules.Usage("Invalid 'arguments': expected a JSON array.")
	}
	if len(argArray) == 0 {
		return rules.Usage("Invalid 'arguments': array is empty, but one argument is expected.")
	}
	if err := json.Unmarshal(argArray[0], targetVarPtr); err != nil {
		return rules.Usage("Invalid format for argument: the first element in 'arguments' array has unexpected structure.")
	}
	return nil
}

// parseIDsArg reads a single argument holding a list of record ids.
func parseIDsArg(args json.RawMessage) ([]utils.SixID, error) {
	var ids []utils.SixID
	if err := parseRequiredSingleArgFromArray(args, &ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if id.IsZero() {
			return nil, rules.Usage("record ids must not be empty")
		}
	}
	return ids, nil
}

// --- API Method Implementations ---

func (h *JsonApiHandler) ping(c *gin.Context, args json.RawMessage) (interface{}, error) {
	_ = args
	return "pong", nil
}

type loginArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *JsonApiHandler) login(c *gin.Context, args json.RawMessage) (interface{}, error) {
	var in loginArgs
	if err := parseRequiredSingleArgFromArray(args, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, rules.Usage("email and password are required")
	}
	token, user, err := h.partyService.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return gin.H{"token": token, "user": user}, nil
}

func (h *JsonApiHandler) me(c *gin.Context, args json.RawMessage) (interface{}, error) {
	userID, _ := services.ActorFromContext(c.Request.Context())
	return h.partyService.GetUser(c.Request.Context(), userID)
}

func (h *JsonApiHandler) createOffers(c *gin.Context, args json.RawMessage) (interface{}, error) {
	var inputs []services.OfferInput
	if err := parseRequiredSingleArgFromArray(args, &inputs); err != nil {
		return nil, err
	}
	return h.offerService.Create(c.Request.Context(), inputs)
}

// acceptOffer passes the ids through untouched so that a multi-record call is
// rejected by the offer service itself.
func (h *JsonApiHandler) acceptOffer(c *gin.Context, args json.RawMessage) (interface{}, error) {
	ids, err := parseIDsArg(args)
	if err != nil {
		return nil, err
	}
	return h.offerService.Accept(c.Request.Context(), ids)
}

func (h *JsonApiHandler) refuseOffers(c *gin.Context, args json.RawMessage) (interface{}, error) {
	ids, err := parseIDsArg(args)
	if err != nil {
		return nil, err
	}
	return resultBodies(h.offerService.Refuse(c.Request.Context(), ids)), nil
}

func (h *JsonApiHandler) sellProperties(c *gin.Context, args json.RawMessage) (interface{}, error) {
	ids, err := parseIDsArg(args)
	if err != nil {
		return nil, err
	}
	return resultBodies(h.propertyService.Sell(c.Request.Context(), ids)), nil
}

func (h *JsonApiHandler) cancelProperties(c *gin.Context, args json.RawMessage) (interface{}, error) {
	ids, err := parseIDsArg(args)
	if err != nil {
		return nil, err
	}
	return resultBodies(h.propertyService.Cancel(c.Request.Context(), ids)), nil
}

func (h *JsonApiHandler) archiveProperties(c *gin.Context, args json.RawMessage) (interface{}, error) {
	ids, err := parseIDsArg(args)
	if err != nil {
		return nil, err
	}
	return resultBodies(h.propertyService.SetActive(c.Request.Context(), ids, false)), nil
}

func (h *JsonApiHandler) unarchiveProperties(c *gin.Context, args json.RawMessage) (interface{}, error) {
	ids, err := parseIDsArg(args)
	if err != nil {
		return nil, err
	}
	return resultBodies(h.propertyService.SetActive(c.Request.Context(), ids, true)), nil
}
