package merge

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"glslinc/config"
	"glslinc/state"
)

// Values is a struct that holds variables we make available for output name
// template expansion.
type Values struct {
	Name  string // root source name without extension, transliterated
	Root  string // root source name exactly as registered
	Ext   string // root source extension, including the dot
	Date  string // current date, YYYY-MM-DD
	Count int    // number of sources that went into the merge
}

// buildOutputPath determines the output file path from the root source name
// and configuration. An explicit --output-name wins over the configured
// template; a broken template falls back to a derived default.
func buildOutputPath(root string, count int, dst string, env *state.LocalEnv) (string, error) {
	if env.OutputName != "" {
		return filepath.Join(dst, config.CleanFileName(env.OutputName)), nil
	}

	ext := filepath.Ext(root)
	values := Values{
		Name:  slug.Make(strings.TrimSuffix(root, ext)),
		Root:  root,
		Ext:   ext,
		Date:  time.Now().Format("2006-01-02"),
		Count: count,
	}

	name, err := expandTemplate(config.OutputNameTemplateFieldName, env.Cfg.Merge.OutputNameTemplate, values)
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		name = ""
	}
	if name == "" {
		// fallback to default name if template expansion failed
		name = values.Name + "_merged" + ext
	}
	return filepath.Join(dst, config.CleanFileName(name)), nil
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
