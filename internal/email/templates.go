package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	texttpl "text/template"
)

//go:embed templates/*
var defaultTemplates embed.FS

const (
	TemplateActivate = "activate_account"
	TemplateReset    = "reset_password"
)

// LinkVars son las variables de los templates de activación y reset.
type LinkVars struct {
	Name      string
	Email     string
	Link      string
	ClientURL string
	TTL       string
}

type pair struct {
	html *template.Template
	text *texttpl.Template
}

// Templates contiene los templates parseados (html + txt por tipo).
type Templates struct {
	byName map[string]pair
}

// LoadTemplates parsea los templates desde dir; dir vacío usa los embebidos.
func LoadTemplates(dir string) (*Templates, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(defaultTemplates, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	t := &Templates{byName: map[string]pair{}}
	for _, name := range []string{TemplateActivate, TemplateReset} {
		h, err := template.ParseFS(fsys, name+".html")
		if err != nil {
			return nil, fmt.Errorf("template %s.html: %w", name, err)
		}
		x, err := texttpl.ParseFS(fsys, name+".txt")
		if err != nil {
			return nil, fmt.Errorf("template %s.txt: %w", name, err)
		}
		t.byName[name] = pair{html: h, text: x}
	}
	return t, nil
}

// Render ejecuta el par html/txt del template name.
func (t *Templates) Render(name string, vars LinkVars) (htmlBody, textBody string, err error) {
	p, ok := t.byName[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	var hb, tb bytes.Buffer
	if err := p.html.Execute(&hb, vars); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	if err := p.text.Execute(&tb, vars); err != nil {
		return "", "", fmt.Errorf("render %s txt: %w", name, err)
	}
	return hb.String(), tb.String(), nil
}
