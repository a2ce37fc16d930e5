package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/malwarebo/rentops/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	utils.WriteJSON(w, status, v)
}

// writeServiceError answers with the APIError carried by err. Anything else is
// logged and reported as a 500 without leaking its message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := utils.AsAPIError(err)
	if !ok {
		utils.LogError(r.Context(), err, "request failed", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		apiErr = utils.ErrInternalServer
	}
	utils.WriteError(w, apiErr)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return utils.ErrRequestTooLarge
		}
		if errors.Is(err, io.EOF) {
			return utils.NewValidationError(utils.ReasonInvalidRequest, "Request body is required")
		}
		return utils.NewAPIErrorWithDetails(http.StatusBadRequest, utils.ReasonInvalidRequest, "Invalid request body", err.Error())
	}
	return validateStruct(dst)
}

func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			details = append(details, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return utils.NewAPIErrorWithDetails(http.StatusBadRequest, utils.ReasonValidationFailed, "Validation failed", strings.Join(details, "; "))
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// requirePathID answers 404 for an {id} that is not a UUID, since no row can carry it.
func requirePathID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, ok := mux.Vars(r)["id"]; ok && validate.Var(id, "uuid") != nil {
			writeServiceError(w, r, utils.NewNotFoundError(utils.ReasonNotFound, "Resource not found"))
			return
		}
		next(w, r)
	}
}

// queryID reads an optional id filter; a value that is not a UUID is a client error.
func queryID(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return "", nil
	}
	if err := validate.Var(raw, "uuid"); err != nil {
		return "", utils.NewValidationError(utils.ReasonInvalidRequest, fmt.Sprintf("%s must be a UUID", name))
	}
	return raw, nil
}

// pagination reads limit and offset; services clamp the values.
func pagination(r *http.Request) (int, int, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, utils.NewValidationError(utils.ReasonInvalidRequest, fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}

type ListResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
