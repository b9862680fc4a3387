// Package httpx holds the JSON envelope helpers shared by the HTTP handlers.
// Every failure goes out as {success:false, kind, message}; storage detail is
// logged here and never written to the response.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-order-go/pkg/apperror"
)

var validate = validator.New()

// Envelope is the generic {success, message} response body.
type Envelope struct {
	Success bool          `json:"success"`
	Kind    apperror.Kind `json:"kind,omitempty"`
	Message string        `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusOf maps an error kind to an HTTP status code.
func StatusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindInvalidInput:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the failure envelope for err and logs it.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindStorage {
		logger.Errorw(op+" failed", "err", err)
	} else {
		logger.Debugw(op+" rejected", "kind", kind, "err", err)
	}
	WriteJSON(w, StatusOf(kind), Envelope{Success: false, Kind: kind, Message: apperror.MessageOf(err)})
}

// Decode reads a JSON body into dst and runs its validate tags.
// Unknown fields are tolerated; trailing garbage is not.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.InvalidInput("Request body is required.")
		}
		return apperror.InvalidInput("Invalid JSON payload.")
	}
	if dec.More() {
		return apperror.InvalidInput("Invalid JSON payload.")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			return apperror.InvalidInput("Invalid fields: " + strings.Join(fields, ", "))
		}
		return apperror.InvalidInput("Invalid payload.")
	}
	return nil
}
