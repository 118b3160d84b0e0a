/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package utils

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/api"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared form validator. Besides the built-in tags it
// understands phone, leadertype, orderstatus, paymentmethod and
// expensecategory, and compares decimal.Decimal fields numerically.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			if name := strings.Split(field.Tag.Get("form"), ",")[0]; name != "" && name != "-" {
				return name
			}
			return field.Name
		})

		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})

		mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
			return ValidatePhone(fl.Field().String(), DefaultRegion) == nil
		})
		mustRegister(v, "leadertype", oneOf(api.LeaderSchool, api.LeaderDealer))
		mustRegister(v, "orderstatus", oneOf(api.OrderStatuses...))
		mustRegister(v, "paymentmethod", oneOf(api.PaymentMethods...))
		mustRegister(v, "expensecategory", oneOf(api.ExpenseCategories...))

		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func oneOf[T ~string](values ...T) validator.Func {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[string(v)] = struct{}{}
	}
	return func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	}
}

// ValidateStruct runs the shared validator on s.
func ValidateStruct(s any) error {
	return Validator().Struct(s)
}

// ValidationMessages turns validator errors into one message per field.
func ValidationMessages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

// FirstValidationMessage returns a single readable message for err, ordered
// by field name so the output is stable.
func FirstValidationMessage(err error) string {
	messages := ValidationMessages(err)
	if len(messages) == 0 {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	fields := make([]string, 0, len(messages))
	for field := range messages {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return messages[fields[0]]
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s is not a valid reference", field)
	case "leadertype", "orderstatus", "paymentmethod", "expensecategory", "oneof":
		return fmt.Sprintf("%s has an unsupported value", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// ValidateUUID checks that id is a canonical UUID. Backend identifiers pass
// through URLs, so anything else is rejected before it reaches the backend.
func ValidateUUID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != strings.ToLower(id) {
		return fmt.Errorf("%w: %s", errInvalidUUIDFormat, id)
	}
	return nil
}
