package core

import (
	"context"
	"errors"

	"boardgamestats/pkg/datasetapi"
)

type (
	// DatasetFormat mirrors datasetapi.Format for core consumers.
	DatasetFormat = datasetapi.Format
	// DatasetScope mirrors datasetapi.Scope for core consumers.
	DatasetScope = datasetapi.Scope
	// DatasetRunResult mirrors datasetapi.RunResult for core consumers.
	DatasetRunResult = datasetapi.RunResult
	// DatasetParameterError mirrors datasetapi.ParameterError for core consumers.
	DatasetParameterError = datasetapi.ParameterError
	// DatasetTemplateDescriptor mirrors datasetapi.TemplateDescriptor for core consumers.
	DatasetTemplateDescriptor = datasetapi.TemplateDescriptor
)

// DatasetTemplate wraps a plugin template with the host runtime created when
// the service binds it to the loaded table.
type DatasetTemplate struct {
	datasetapi.Template
	Plugin string

	host *datasetapi.HostTemplate
}

// Descriptor returns a detached descriptor of the template.
func (t DatasetTemplate) Descriptor() DatasetTemplateDescriptor {
	if host, err := t.hostOrNew(); err == nil {
		return host.Descriptor()
	}
	return DatasetTemplateDescriptor{
		Plugin:  t.Plugin,
		Key:     t.Key,
		Version: t.Version,
		Title:   t.Title,
		Slug:    t.Slug(),
	}
}

// Slug returns the canonical identifier plugin/key@version.
func (t DatasetTemplate) Slug() string {
	return datasetapi.Slug(t.Plugin, t.Key, t.Version)
}

// SupportsFormat reports whether the template declares the requested format.
func (t DatasetTemplate) SupportsFormat(format DatasetFormat) bool {
	for _, candidate := range t.OutputFormats {
		if candidate == format {
			return true
		}
	}
	return false
}

// ValidateParameters validates supplied parameters against the template definition.
func (t DatasetTemplate) ValidateParameters(params map[string]any) (map[string]any, []DatasetParameterError) {
	host, err := t.hostOrNew()
	if err != nil {
		return nil, []DatasetParameterError{{Name: "", Message: err.Error()}}
	}
	return host.ValidateParameters(params)
}

// Run validates params and executes the bound runner.
func (t DatasetTemplate) Run(ctx context.Context, params map[string]any, scope DatasetScope, format DatasetFormat) (DatasetRunResult, []DatasetParameterError, error) {
	if t.host == nil {
		return DatasetRunResult{}, nil, errors.New("dataset template not bound")
	}
	return t.host.Run(ctx, params, scope, format)
}

// bind attaches a runner. wrap decorates the plugin runner with host concerns
// such as caching and metrics.
func (t *DatasetTemplate) bind(env datasetapi.Environment, wrap func(slug string, next datasetapi.Runner) datasetapi.Runner) error {
	if t == nil {
		return errors.New("dataset template nil")
	}
	tpl := t.Template
	slug := t.Slug()
	inner := tpl.Binder
	if wrap != nil && inner != nil {
		tpl.Binder = func(env datasetapi.Environment) (datasetapi.Runner, error) {
			runner, err := inner(env)
			if err != nil || runner == nil {
				return runner, err
			}
			return wrap(slug, runner), nil
		}
	}
	host, err := datasetapi.NewHostTemplate(t.Plugin, tpl)
	if err != nil {
		return err
	}
	if err := host.Bind(env); err != nil {
		return err
	}
	t.host = &host
	return nil
}

func (t DatasetTemplate) validate() error {
	_, err := datasetapi.NewHostTemplate(t.Plugin, t.Template)
	return err
}

func (t DatasetTemplate) hostOrNew() (datasetapi.HostTemplate, error) {
	if t.host != nil {
		return *t.host, nil
	}
	return datasetapi.NewHostTemplate(t.Plugin, t.Template)
}
