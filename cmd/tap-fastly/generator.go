package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
)

type Generator struct {
	Dir string
}

func NewGenerator(dir string) *Generator {
	return &Generator{Dir: dir}
}

// Generate writes the starter files, leaving any that already exist alone.
func (g *Generator) Generate() ([]string, error) {
	if err := os.MkdirAll(g.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	files := []struct {
		name string
		tmpl string
	}{
		{"config.yaml", configTemplate},
		{".env.template", envTemplate},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(g.Dir, f.name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := g.generateFile(path, f.tmpl); err != nil {
			return written, fmt.Errorf("failed to generate %s: %w", f.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func (g *Generator) generateFile(path, tmpl string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := struct {
		TapName string
		Version string
	}{
		TapName: "tap-fastly",
		Version: version,
	}

	t := template.Must(template.New(filepath.Base(path)).Parse(tmpl))
	return t.Execute(f, data)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	written, err := NewGenerator(dir).Generate()
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	}
	return nil
}
