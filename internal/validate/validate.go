// Package validate checks exam drafts before they reach the record store.
package validate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/pavelanni/gradetrack/internal/i18n"
	"github.com/pavelanni/gradetrack/internal/model"
)

var weightRegex = regexp.MustCompile(`^\d+%$`)

// messageIDs maps a JSON field and failed rule to a localized message.
var messageIDs = map[string]map[string]string{
	"title":            {"required": "TitleRequired"},
	"dateDue":          {"required": "DateRequired"},
	"course":           {"required": "CourseRequired"},
	"weight":           {"percent": "PercentFormat"},
	"maxPoints":        {"finite": "PositiveNumber", "gt": "PositiveNumber"},
	"passingThreshold": {"finite": "ThresholdRange", "gte": "ThresholdRange", "lte": "ThresholdRange"},
}

// Errors maps a draft's JSON field names to human-readable messages.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "invalid exam: " + strings.Join(parts, "; ")
}

// Validator validates drafts. It is safe for concurrent use.
type Validator struct {
	v     *govalidator.Validate
	trans ut.Translator
}

// New builds a Validator with the draft rules registered. It panics if a
// rule or translation cannot be registered.
func New() *Validator {
	v := govalidator.New(govalidator.WithRequiredStructEnabled())

	// Use JSON tag names as error keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	rules := map[string]govalidator.Func{
		"percent": func(fl govalidator.FieldLevel) bool {
			return weightRegex.MatchString(fl.Field().String())
		},
		"finite": func(fl govalidator.FieldLevel) bool {
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %q rule: %v", tag, err))
		}
	}

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, found := uni.GetTranslator("en")
	if !found {
		panic("no en translator")
	}
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(fmt.Sprintf("register en translations: %v", err))
	}

	return &Validator{v: v, trans: trans}
}

// Normalize trims string fields and fills in a default status.
func Normalize(d model.Draft) model.Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Year = strings.TrimSpace(d.Year)
	d.DateDue = strings.TrimSpace(d.DateDue)
	d.Weight = strings.TrimSpace(d.Weight)
	d.Status = strings.TrimSpace(d.Status)
	d.Course = strings.TrimSpace(d.Course)
	if d.Status == "" {
		d.Status = model.StatusNotAttempted
	}
	return d
}

// Draft normalizes and validates d. On success it returns the normalized
// draft and nil; otherwise the returned Errors holds one localized message
// per failing field.
func (v *Validator) Draft(ctx context.Context, d model.Draft) (model.Draft, Errors) {
	d = Normalize(d)
	err := v.v.Struct(d)
	if err == nil {
		return d, nil
	}

	fields := make(Errors)
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		fields["detail"] = err.Error()
		return d, fields
	}
	for _, fe := range ve {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		if id, ok := messageIDs[fe.Field()][fe.Tag()]; ok {
			fields[fe.Field()] = i18n.T(ctx, id)
			continue
		}
		fields[fe.Field()] = fe.Translate(v.trans)
	}
	return d, fields
}
