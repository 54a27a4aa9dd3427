package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/models"
)

var validate *validator.Validate

var errBodyTooLarge = errors.New("request body too large")

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("wallet", func(fl validator.FieldLevel) bool {
		w := models.WalletType(fl.Field().String())
		for _, known := range models.AllWallets {
			if w == known {
				return true
			}
		}
		return false
	})
	validate.RegisterValidation("network", func(fl validator.FieldLevel) bool {
		switch models.Network(fl.Field().String()) {
		case models.NetworkLivenet, models.NetworkTestnet, models.NetworkSignet:
			return true
		}
		return false
	})
}

// Decode reads a JSON body into v and validates it. An empty body decodes to
// the zero value, which validation then judges. Failures wrap
// config.ErrInvalidRequest.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.APIMaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: %v", config.ErrInvalidRequest, errBodyTooLarge)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", config.ErrInvalidRequest, err)
	}
	return Validate(v)
}

// Validate runs struct-tag validation on v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", config.ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", config.ErrInvalidRequest, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "wallet":
		return fmt.Sprintf("%s: unknown wallet %q", field, fe.Value())
	case "network":
		return fmt.Sprintf("%s: unknown network %q", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
