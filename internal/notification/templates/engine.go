package templates

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"os"
	"reflect"
	"sync"
	texttmpl "text/template"
)

// Config controls where templates are loaded from. With Dir set, files named
// <id>.tmpl are read from disk; Reload reparses them on every render.
type Config struct {
	Dir    string
	Reload bool
}

// Rendered is the materialized content of one scenario.
type Rendered struct {
	Subject   string
	EmailText string
	EmailHTML string
}

// Handle is a typed reference to a template scenario, so callers cannot pass
// the wrong data shape to a template.
type Handle[T any] struct {
	id string
}

// Expect creates a typed handle for a template id such as "auth.login_code".
func Expect[T any](id string) Handle[T] { return Handle[T]{id: id} }

func (h Handle[T]) ID() string { return h.id }

func (h Handle[T]) DataType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Engine compiles and caches scenario templates.
type Engine struct {
	cfg   Config
	fs    fs.FS
	mu    sync.RWMutex
	cache map[string]*compiled
}

type compiled struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

// NewEngine returns an engine reading from the embedded templates unless cfg.Dir is set.
func NewEngine(cfg Config) *Engine {
	var source fs.FS = EmbeddedFS
	if cfg.Dir != "" {
		source = os.DirFS(cfg.Dir)
	}
	return &Engine{cfg: cfg, fs: source, cache: make(map[string]*compiled)}
}

// Render renders the scenario behind h with data.
func Render[T any](e *Engine, h Handle[T], data T) (Rendered, error) {
	return e.RenderAny(h.ID(), data)
}

// RenderAny renders a scenario by id. Blocks a template does not define are left empty.
func (e *Engine) RenderAny(id string, data any) (Rendered, error) {
	c, err := e.compiled(id)
	if err != nil {
		return Rendered{}, err
	}

	var out Rendered
	for _, block := range []struct {
		name string
		dst  *string
	}{
		{"subject", &out.Subject},
		{"email_text", &out.EmailText},
	} {
		if c.text.Lookup(block.name) == nil {
			continue
		}
		var buf bytes.Buffer
		if err := c.text.ExecuteTemplate(&buf, block.name, data); err != nil {
			return Rendered{}, fmt.Errorf("render %s/%s: %w", id, block.name, err)
		}
		*block.dst = buf.String()
	}

	if c.html.Lookup("email_html") != nil {
		var buf bytes.Buffer
		if err := c.html.ExecuteTemplate(&buf, "email_html", data); err != nil {
			return Rendered{}, fmt.Errorf("render %s/email_html: %w", id, err)
		}
		out.EmailHTML = buf.String()
	}
	return out, nil
}

func (e *Engine) compiled(id string) (*compiled, error) {
	if e.cfg.Dir != "" && e.cfg.Reload {
		return e.parse(id)
	}

	e.mu.RLock()
	c, ok := e.cache[id]
	e.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := e.parse(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.cache[id] = c
	e.mu.Unlock()
	return c, nil
}

func (e *Engine) parse(id string) (*compiled, error) {
	path := id + ".tmpl"
	if e.cfg.Dir == "" {
		path = "files/" + path
	}
	b, err := fs.ReadFile(e.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", path, err)
	}

	text, err := texttmpl.New(id).Option("missingkey=error").Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse text blocks (%s): %w", id, err)
	}
	html, err := htmltmpl.New(id).Option("missingkey=error").Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse html block (%s): %w", id, err)
	}
	return &compiled{text: text, html: html}, nil
}
