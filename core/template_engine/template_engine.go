package template_engine

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/tristendillon/dtsbundle/core/shared"
)

//go:embed templates
var TemplateFS embed.FS

type TemplateRef struct {
	Path string
}

var TEMPLATES = struct {
	INIT struct {
		CONFIG TemplateRef
	}
}{
	INIT: struct {
		CONFIG TemplateRef
	}{
		CONFIG: TemplateRef{Path: "dtsbundle.yaml.tmpl"},
	},
}

type TemplateEngine struct {
	funcMap template.FuncMap
}

func getDefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"upper":  strings.ToUpper,
		"lower":  strings.ToLower,
		"title":  shared.ToTitle,
		"pascal": shared.ToPascal,
		"camel":  shared.ToCamel,
		"trim":   strings.TrimSpace,
		"join":   strings.Join,

		"now":  time.Now,
		"date": func(t time.Time) string { return t.Format("2006-01-02") },

		"default": func(def, val interface{}) interface{} {
			if val == nil || val == "" {
				return def
			}
			return val
		},
		"quote": func(s string) string { return fmt.Sprintf("%q", s) },
	}
}

func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{
		funcMap: getDefaultFuncMap(),
	}
}

func (te *TemplateEngine) AddFunc(name string, fn interface{}) {
	te.funcMap[name] = fn
}

// Render executes an embedded template into memory.
func (te *TemplateEngine) Render(templateRef TemplateRef, data interface{}) ([]byte, error) {
	templatePath := path.Join("templates", templateRef.Path)
	content, err := TemplateFS.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", templatePath, err)
	}

	tmpl, err := template.New(path.Base(templateRef.Path)).Funcs(te.funcMap).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", templateRef.Path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", templateRef.Path, err)
	}
	return buf.Bytes(), nil
}

func (te *TemplateEngine) GenerateFile(templateRef TemplateRef, outputPath string, data interface{}) error {
	content, err := te.Render(templateRef, data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}

	return nil
}
