package task

import (
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their parameter names rather than Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterValidation("command", func(fl validator.FieldLevel) bool {
		return isCommand(fl.Field().String())
	})
	validate.RegisterValidation("posintstr", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
		return err == nil && n >= 0
	})
	validate.RegisterValidation("natstr", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
		return err == nil && n >= 1
	})
}

// ResultOptions controls how a result is labeled when written to the sink.
// Add it to a task's params struct under the "result" key. The label
// defaults to the task name.
type ResultOptions struct {
	Label    string `json:"label"`
	Annotate bool   `json:"annotate" default:"true"`
}

var resultOptionsType = reflect.TypeOf(ResultOptions{})

// Timeout is a number of seconds after which a run is canceled. Zero
// disables the deadline.
type Timeout float64

// MaxTimeout is the largest timeout a time.Duration can hold.
const MaxTimeout = Timeout(math.MaxInt64 / int64(time.Second))

// Duration converts the timeout to a time.Duration. Zero means no limit.
func (t Timeout) Duration() time.Duration {
	if t >= MaxTimeout {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(float64(t) * float64(time.Second))
}

var timeoutType = reflect.TypeOf(Timeout(0))

// ParseTimeout accepts a positive number of seconds, or a falsey value
// (0, false, "", nil) to disable the timeout.
func ParseTimeout(v any) (Timeout, error) {
	const msg = "timeout: seconds greater than zero or falsey to disable"

	var secs float64
	switch t := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if t {
			return 0, errors.New(msg)
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		switch s {
		case "", "false", "none", "null", "off":
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.New(msg)
		}
		secs = f
	case Timeout:
		secs = float64(t)
	case int:
		secs = float64(t)
	case int64:
		secs = float64(t)
	case uint64:
		secs = float64(t)
	case float64:
		secs = t
	case float32:
		secs = float64(t)
	case time.Duration:
		secs = t.Seconds()
	default:
		return 0, errors.New(msg)
	}
	if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, errors.New(msg)
	}
	if secs > float64(MaxTimeout) {
		return 0, fmt.Errorf("timeout: must not exceed %d seconds", int64(MaxTimeout))
	}
	return Timeout(secs), nil
}

// ValidationError reports every parameter that failed validation.
type ValidationError struct {
	Task   string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid parameters: %s", e.Task, strings.Join(e.Fields, "; "))
}

// DecodeParams fills params (a pointer to a struct) from raw values.
// Struct-tag defaults are applied first, then raw values are merged and
// the result is validated.
func DecodeParams(name string, raw map[string]any, params any) error {
	if err := defaults.Set(params); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	defaultLabels(params, name)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           params,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			timeoutHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(nullTimeouts(raw, params)); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			return &ValidationError{Task: name, Fields: merr.Errors}
		}
		return &ValidationError{Task: name, Fields: []string{err.Error()}}
	}

	if err := validate.Struct(params); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate: %w", err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldMessage(fe))
		}
		return &ValidationError{Task: name, Fields: fields}
	}
	return nil
}

// defaultLabels sets an empty ResultOptions label to the task name.
func defaultLabels(params any, name string) {
	v := reflect.ValueOf(params)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Type() != resultOptionsType || !f.CanSet() {
			continue
		}
		if opts := f.Addr().Interface().(*ResultOptions); opts.Label == "" {
			opts.Label = name
		}
	}
}

func timeoutHook(from, to reflect.Type, data any) (any, error) {
	if to != timeoutType {
		return data, nil
	}
	return ParseTimeout(data)
}

// nullTimeouts replaces explicit nulls for Timeout fields with false.
// mapstructure skips nil inputs, which would leave the default in place
// instead of disabling the timeout.
func nullTimeouts(raw map[string]any, params any) map[string]any {
	t := reflect.TypeOf(params)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return raw
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type != timeoutType {
			continue
		}
		key := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if v, ok := out[key]; ok && v == nil {
			out[key] = false
		}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: required", name)
	case "command":
		return fmt.Sprintf("%s: must be an executable on PATH or file system absolute path to executable", name)
	case "posintstr":
		return fmt.Sprintf("%s: int must not be less than 0 (got %q)", name, fe.Value())
	case "natstr":
		return fmt.Sprintf("%s: int must not be less than 1 (got %q)", name, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: must be one of %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s: failed validation (rule: %s)", name, fe.Tag())
	}
}

// isCommand reports whether s names an executable on PATH or is an
// absolute path to an executable file.
func isCommand(s string) bool {
	if s == "" {
		return false
	}
	if !filepath.IsAbs(s) && strings.ContainsRune(s, filepath.Separator) {
		return false
	}
	_, err := exec.LookPath(s)
	return err == nil
}
