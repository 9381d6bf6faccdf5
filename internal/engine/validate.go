package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/options"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/render"
)

// Validation messages. They are stable so callers may match on them.
const (
	MsgRequired     = "required"
	MsgNotNumber    = "must be a number"
	MsgNotAnOption  = "is not one of the available options"
	MsgPattern      = "does not match the required pattern"
	msgMinFormat    = "must be at least %s"
	msgMaxFormat    = "must be at most %s"
	msgLengthFormat = "must be at most %d characters"
)

// Validator checks values against a template's fields. It is shared by the
// in-process engine and the server-side submit path.
type Validator struct {
	resolver *options.Resolver
	strict   bool

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewValidator creates a Validator. With strict set, a dropdown or radio
// value outside the currently resolved options is an error.
func NewValidator(resolver *options.Resolver, strict bool) *Validator {
	return &Validator{resolver: resolver, strict: strict, patterns: make(map[string]*regexp.Regexp)}
}

// Validate returns one message per failing field, checking every field of
// the template in order regardless of stage.
func (v *Validator) Validate(ctx context.Context, tpl *formschema.FormTemplate, values Values) map[string]string {
	errs := make(map[string]string)
	for _, f := range tpl.Fields() {
		if msg := v.validateField(ctx, f, values); msg != "" {
			errs[f.Key] = msg
		}
	}
	return errs
}

func (v *Validator) validateField(ctx context.Context, f formschema.FieldSchema, values Values) string {
	value := values[f.Key]
	if IsEmpty(value) {
		if f.Required {
			return MsgRequired
		}
		return ""
	}
	rules := f.Rules()

	if f.Type == formschema.FieldNumeric {
		n, ok := render.Number(value)
		if !ok {
			return MsgNotNumber
		}
		if rules.Min != nil && n < *rules.Min {
			return fmt.Sprintf(msgMinFormat, formatNumber(*rules.Min))
		}
		if rules.Max != nil && n > *rules.Max {
			return fmt.Sprintf(msgMaxFormat, formatNumber(*rules.Max))
		}
	}

	s, isString := value.(string)
	if rules.CharLimit != nil && isString && utf8.RuneCountInString(s) > *rules.CharLimit {
		return fmt.Sprintf(msgLengthFormat, *rules.CharLimit)
	}

	if rules.Regex != "" {
		if _, isNumber := render.Number(value); isString || isNumber {
			re := v.pattern(rules.Regex)
			if re == nil || !re.MatchString(render.StringValue(value)) {
				return MsgPattern
			}
		}
	}

	if v.strict && f.Type.Choice() && isString && v.resolver != nil {
		linked := ""
		if f.Linked() {
			linked = render.StringValue(values[f.LinkedFieldKey])
		}
		if !contains(v.resolver.Resolve(ctx, f, linked), s) {
			return MsgNotAnOption
		}
	}
	return ""
}

// pattern returns the compiled full-match pattern, or nil when it does not
// compile. An invalid pattern fails every value; Check reports it to the
// template author.
func (v *Validator) pattern(src string) *regexp.Regexp {
	v.mu.Lock()
	defer v.mu.Unlock()
	if re, ok := v.patterns[src]; ok {
		return re
	}
	re, err := formschema.CompilePattern(src)
	if err != nil {
		re = nil
	}
	v.patterns[src] = re
	return re
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
