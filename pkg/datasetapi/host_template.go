package datasetapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// HostTemplate encapsulates a plugin-provided Template together with
// host-specific runtime state (bound runner, plugin name, validation helpers).
type HostTemplate struct {
	plugin  string
	tpl     Template
	runtime Runner
}

// NewHostTemplate constructs a HostTemplate for the given plugin/template pair
// after performing structural validation. The returned template has no bound
// runner; callers must invoke Bind with the runtime environment before running.
func NewHostTemplate(plugin string, tpl Template) (HostTemplate, error) {
	if err := validateTemplate(tpl); err != nil {
		return HostTemplate{}, err
	}
	return HostTemplate{plugin: strings.TrimSpace(plugin), tpl: cloneTemplate(tpl)}, nil
}

// Plugin returns the plugin identifier associated with the template.
func (h HostTemplate) Plugin() string { return h.plugin }

// Template returns a defensive copy of the underlying template metadata.
func (h HostTemplate) Template() Template { return cloneTemplate(h.tpl) }

// Descriptor produces a TemplateDescriptor snapshot including plugin metadata
// and computed slug.
func (h HostTemplate) Descriptor() TemplateDescriptor {
	return TemplateDescriptor{
		Plugin:        h.plugin,
		Key:           h.tpl.Key,
		Version:       h.tpl.Version,
		Title:         h.tpl.Title,
		Description:   h.tpl.Description,
		Dialect:       h.tpl.Dialect,
		Query:         h.tpl.Query,
		Parameters:    cloneParameters(h.tpl.Parameters),
		Columns:       cloneColumns(h.tpl.Columns),
		Metadata:      cloneMetadata(h.tpl.Metadata),
		OutputFormats: cloneFormats(h.tpl.OutputFormats),
		Slug:          slugFor(h.plugin, h.tpl.Key, h.tpl.Version),
	}
}

// Slug returns the canonical identifier for the template (plugin/key@version).
func (h HostTemplate) Slug() string {
	return slugFor(h.plugin, h.tpl.Key, h.tpl.Version)
}

// SupportsFormat reports whether the template declares the requested format.
func (h HostTemplate) SupportsFormat(format Format) bool {
	for _, candidate := range h.tpl.OutputFormats {
		if candidate == format {
			return true
		}
	}
	return false
}

// ValidateParameters validates supplied parameters against the template
// definition, returning normalized values plus any validation errors.
func (h HostTemplate) ValidateParameters(params map[string]any) (map[string]any, []ParameterError) {
	return validateParameters(h.tpl.Parameters, params)
}

// Bind attaches a runtime runner to the host template using the provided
// environment. Binder implementations originate from plugin authors.
func (h *HostTemplate) Bind(env Environment) error {
	if h == nil {
		return errors.New("datasetapi: host template nil")
	}
	if h.tpl.Binder == nil {
		return errors.New("datasetapi: template binder missing")
	}
	runner, err := h.tpl.Binder(env)
	if err != nil {
		return err
	}
	if runner == nil {
		return errors.New("datasetapi: template binder returned nil runner")
	}
	h.runtime = runner
	return nil
}

// Run executes the bound template after validating parameters. The template
// must be bound via Bind before calling Run.
func (h HostTemplate) Run(ctx context.Context, params map[string]any, scope Scope, format Format) (RunResult, []ParameterError, error) {
	if h.runtime == nil {
		return RunResult{}, nil, errors.New("datasetapi: template not bound")
	}
	cleaned, errs := validateParameters(h.tpl.Parameters, params)
	if len(errs) > 0 {
		return RunResult{}, errs, nil
	}
	result, err := h.runtime(ctx, RunRequest{
		Template:   h.Descriptor(),
		Parameters: cleaned,
		Scope:      scope,
	})
	if err != nil {
		return RunResult{}, nil, err
	}
	if len(result.Schema) == 0 {
		result.Schema = cloneColumns(h.tpl.Columns)
	}
	result.GeneratedAt = result.GeneratedAt.UTC()
	result.Format = format
	return result, nil, nil
}

// SortTemplateDescriptors sorts the slice in-place using plugin/key/version for
// deterministic ordering.
func SortTemplateDescriptors(descriptors []TemplateDescriptor) {
	if len(descriptors) < 2 {
		return
	}
	sort.Slice(descriptors, func(i, j int) bool {
		a := descriptors[i]
		b := descriptors[j]
		if a.Plugin == b.Plugin {
			if a.Key == b.Key {
				return a.Version < b.Version
			}
			return a.Key < b.Key
		}
		return a.Plugin < b.Plugin
	})
}

func validateTemplate(tpl Template) error {
	if strings.TrimSpace(tpl.Key) == "" {
		return errors.New("datasetapi: dataset template key required")
	}
	if strings.TrimSpace(tpl.Version) == "" {
		return errors.New("datasetapi: dataset template version required")
	}
	if strings.TrimSpace(tpl.Title) == "" {
		return errors.New("datasetapi: dataset template title required")
	}
	if strings.TrimSpace(tpl.Query) == "" {
		return errors.New("datasetapi: dataset template query required")
	}
	if len(tpl.Columns) == 0 {
		return errors.New("datasetapi: dataset template requires at least one column")
	}
	if len(tpl.OutputFormats) == 0 {
		return errors.New("datasetapi: dataset template must declare output formats")
	}
	if tpl.Binder == nil {
		return errors.New("datasetapi: dataset template binder required")
	}
	if tpl.Dialect != DialectDSL {
		return fmt.Errorf("datasetapi: unsupported dataset dialect %q", tpl.Dialect)
	}
	seen := make(map[string]struct{}, len(tpl.Parameters))
	for _, p := range tpl.Parameters {
		name := lower(p.Name)
		if name == "" {
			return errors.New("datasetapi: parameter name required")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("datasetapi: duplicate parameter %q", p.Name)
		}
		seen[name] = struct{}{}
		if p.Minimum != nil && p.Maximum != nil && *p.Minimum > *p.Maximum {
			return fmt.Errorf("datasetapi: parameter %s minimum exceeds maximum", p.Name)
		}
		if p.Default != nil {
			if _, err := coerceParameter(p, p.Default); err != nil {
				return fmt.Errorf("datasetapi: parameter %s default invalid: %w", p.Name, err)
			}
		}
	}
	return nil
}

func validateParameters(definitions []Parameter, supplied map[string]any) (map[string]any, []ParameterError) {
	cleaned := make(map[string]any)
	var errs []ParameterError
	provided := make(map[string]string, len(supplied))
	for k := range supplied {
		provided[lower(k)] = k
	}
	for _, param := range definitions {
		key := lower(param.Name)
		val, ok := findParamValue(param.Name, supplied)
		delete(provided, key)
		if !ok {
			if param.Required {
				errs = append(errs, ParameterError{Name: param.Name, Message: "required parameter missing"})
				continue
			}
			if param.Default != nil {
				coerced, err := coerceParameter(param, param.Default)
				if err != nil {
					errs = append(errs, ParameterError{Name: param.Name, Message: err.Error()})
					continue
				}
				cleaned[param.Name] = coerced
			}
			continue
		}
		coerced, err := coerceParameter(param, val)
		if err != nil {
			errs = append(errs, ParameterError{Name: param.Name, Message: err.Error()})
			continue
		}
		cleaned[param.Name] = coerced
	}
	for _, original := range provided {
		errs = append(errs, ParameterError{Name: original, Message: "parameter not declared"})
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Name < errs[j].Name })
	}
	return cleaned, errs
}

func findParamValue(name string, supplied map[string]any) (any, bool) {
	if val, ok := supplied[name]; ok {
		return val, true
	}
	want := lower(name)
	for k, v := range supplied {
		if lower(k) == want {
			return v, true
		}
	}
	return nil, false
}

// integral converts a whole float that fits in an int.
func integral(v float64) (int, bool) {
	if math.IsNaN(v) || v != math.Trunc(v) || v < float64(math.MinInt) || v >= -float64(math.MinInt) {
		return 0, false
	}
	return int(v), true
}

func coerceParameter(param Parameter, raw any) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("parameter %s cannot be null", param.Name)
	}
	switch param.Type {
	case TypeString:
		var val string
		switch v := raw.(type) {
		case string:
			val = v
		case fmt.Stringer:
			val = v.String()
		default:
			return nil, fmt.Errorf("parameter %s expects string", param.Name)
		}
		if len(param.Enum) > 0 && !containsString(param.Enum, val) {
			return nil, enumError(param.Enum)
		}
		return val, nil
	case TypeInteger:
		var val int
		switch v := raw.(type) {
		case int:
			val = v
		case int64:
			val = int(v)
		case float64:
			parsed, ok := integral(v)
			if !ok {
				return nil, fmt.Errorf("parameter %s expects integer", param.Name)
			}
			val = parsed
		case json.Number:
			if parsed, err := v.Int64(); err == nil {
				val = int(parsed)
				break
			}
			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects integer", param.Name)
			}
			parsed, ok := integral(f)
			if !ok {
				return nil, fmt.Errorf("parameter %s expects integer", param.Name)
			}
			val = parsed
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects integer", param.Name)
			}
			val = parsed
		default:
			return nil, fmt.Errorf("parameter %s expects integer", param.Name)
		}
		if err := checkBounds(param, float64(val)); err != nil {
			return nil, err
		}
		return val, nil
	case TypeNumber:
		var val float64
		switch v := raw.(type) {
		case float32:
			val = float64(v)
		case float64:
			val = v
		case int:
			val = float64(v)
		case int64:
			val = float64(v)
		case json.Number:
			parsed, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects number", param.Name)
			}
			val = parsed
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects number", param.Name)
			}
			val = parsed
		default:
			return nil, fmt.Errorf("parameter %s expects number", param.Name)
		}
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("parameter %s expects a finite number", param.Name)
		}
		if err := checkBounds(param, val); err != nil {
			return nil, err
		}
		return val, nil
	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects boolean", param.Name)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("parameter %s expects boolean", param.Name)
		}
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", param.Type)
	}
}

func checkBounds(param Parameter, v float64) error {
	if param.Minimum != nil && v < *param.Minimum {
		return fmt.Errorf("parameter %s must be at least %s", param.Name, formatBound(*param.Minimum))
	}
	if param.Maximum != nil && v > *param.Maximum {
		return fmt.Errorf("parameter %s must be at most %s", param.Name, formatBound(*param.Maximum))
	}
	return nil
}

func formatBound(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func containsString(list []string, target string) bool {
	for _, candidate := range list {
		if candidate == target {
			return true
		}
	}
	return false
}

func enumError(options []string) error {
	if len(options) == 0 {
		return errors.New("invalid enumeration")
	}
	return fmt.Errorf("value must be one of: %s", strings.Join(options, ", "))
}

// Slug formats the canonical identifier plugin/key@version.
func Slug(plugin, key, version string) string { return slugFor(plugin, key, version) }

func slugFor(plugin, key, version string) string {
	keyPart := strings.TrimSpace(key)
	versionPart := strings.TrimSpace(version)
	if plugin = strings.TrimSpace(plugin); plugin == "" {
		return fmt.Sprintf("%s@%s", keyPart, versionPart)
	}
	return fmt.Sprintf("%s/%s@%s", plugin, keyPart, versionPart)
}

func cloneTemplate(t Template) Template {
	cloned := t
	cloned.Parameters = cloneParameters(t.Parameters)
	cloned.Columns = cloneColumns(t.Columns)
	cloned.Metadata = cloneMetadata(t.Metadata)
	cloned.OutputFormats = cloneFormats(t.OutputFormats)
	return cloned
}

func cloneParameters(params []Parameter) []Parameter {
	if len(params) == 0 {
		return nil
	}
	cloned := make([]Parameter, len(params))
	copy(cloned, params)
	for i := range cloned {
		if cloned[i].Minimum != nil {
			cloned[i].Minimum = Bound(*cloned[i].Minimum)
		}
		if cloned[i].Maximum != nil {
			cloned[i].Maximum = Bound(*cloned[i].Maximum)
		}
		if len(cloned[i].Enum) > 0 {
			cloned[i].Enum = append([]string(nil), cloned[i].Enum...)
		}
	}
	return cloned
}

func cloneColumns(columns []Column) []Column {
	if len(columns) == 0 {
		return nil
	}
	cloned := make([]Column, len(columns))
	copy(cloned, columns)
	return cloned
}

func cloneFormats(formats []Format) []Format {
	if len(formats) == 0 {
		return nil
	}
	cloned := make([]Format, len(formats))
	copy(cloned, formats)
	return cloned
}

func cloneMetadata(metadata Metadata) Metadata {
	cloned := metadata
	if len(metadata.Tags) > 0 {
		cloned.Tags = append([]string(nil), metadata.Tags...)
	}
	if len(metadata.Annotations) > 0 {
		cloned.Annotations = make(map[string]string, len(metadata.Annotations))
		for k, v := range metadata.Annotations {
			cloned.Annotations[k] = v
		}
	}
	return cloned
}
