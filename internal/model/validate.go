package model

import (
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports json field names and knows the
// band and cefr tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("band", validateBand)
	_ = v.RegisterValidation("cefr", validateCEFR)
	return v
}

func validateBand(fl validator.FieldLevel) bool {
	var f float64
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f = fl.Field().Float()
	case reflect.Int, reflect.Int64, reflect.Int32:
		f = float64(fl.Field().Int())
	default:
		return false
	}
	return ValidBand(f)
}

func validateCEFR(fl validator.FieldLevel) bool {
	value := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
	for _, level := range cefrLevels {
		if level == value {
			return true
		}
	}
	return false
}

// ValidBand reports whether b is an IELTS band: 0 to 9 in half steps.
func ValidBand(b float64) bool {
	if b < 0 || b > 9 || math.IsNaN(b) {
		return false
	}
	return b*2 == math.Trunc(b*2)
}

// FieldErrors flattens validator errors into field -> tag.
func FieldErrors(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		out[ns] = fe.Tag()
	}
	return out
}
