package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/services"
)

// ErrorBody is the JSON shape of a rejected request.
type ErrorBody struct {
	Error string     `json:"error"`
	Kind  rules.Kind `json:"kind,omitempty"`
	Field string     `json:"field,omitempty"`
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch rules.KindOf(err) {
	case rules.KindValidation:
		return http.StatusUnprocessableEntity
	case rules.KindGuard:
		return http.StatusConflict
	case rules.KindConfiguration:
		return http.StatusServiceUnavailable
	case rules.KindNotFound:
		return http.StatusNotFound
	case rules.KindUsage:
		return http.StatusBadRequest
	}
	if errors.Is(err, services.ErrBadCredentials) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// errorBody hides unexpected errors and passes rule rejections through verbatim.
func errorBody(err error) ErrorBody {
	var re *rules.Error
	if errors.As(err, &re) {
		return ErrorBody{Error: re.Error(), Kind: re.Kind, Field: re.Field}
	}
	if errors.Is(err, services.ErrBadCredentials) {
		return ErrorBody{Error: err.Error()}
	}
	return ErrorBody{Error: "Internal error"}
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, errorBody(err))
}

// ResultBody reports the outcome of a batch action for one record.
type ResultBody struct {
	ID    string     `json:"id"`
	OK    bool       `json:"ok"`
	Error string     `json:"error,omitempty"`
	Kind  rules.Kind `json:"kind,omitempty"`
}

func resultBodies(rs services.Results) []ResultBody {
	out := make([]ResultBody, len(rs))
	for i, r := range rs {
		out[i] = ResultBody{ID: r.ID.String(), OK: r.OK()}
		if r.Err != nil {
			body := errorBody(r.Err)
			out[i].Error, out[i].Kind = body.Error, body.Kind
		}
	}
	return out
}
