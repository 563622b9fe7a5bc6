package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExportDocument is the portable form of one sheet.
type ExportDocument struct {
	Meta        Sheet        `json:"meta" yaml:"meta"`
	Notes       []Note       `json:"notes" yaml:"notes"`
	Connections []Connection `json:"connections" yaml:"connections"`
	ExportedAt  string       `json:"exportedAt" yaml:"exportedAt"`
}

const exportTimeLayout = "2006-01-02T15:04:05.000Z"

// Exporter writes a sheet document in one format.
type Exporter interface {
	Export(w io.Writer, doc ExportDocument) error
	FileExtension() string
	FormatName() string
}

func NewExporter(kind ExportKind) (Exporter, error) {
	switch kind {
	case ExportJSON:
		return jsonExporter{}, nil
	case ExportYAML:
		return yamlExporter{}, nil
	case ExportPNG:
		return pngExporter{}, nil
	case ExportSVG:
		return svgExporter{}, nil
	case ExportTXT:
		return txtExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %d", kind)
	}
}

func ParseExportKind(s string) (ExportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return ExportJSON, nil
	case "yaml", "yml":
		return ExportYAML, nil
	case "png":
		return ExportPNG, nil
	case "svg":
		return ExportSVG, nil
	case "txt", "text":
		return ExportTXT, nil
	default:
		return 0, fmt.Errorf("unknown format: %s", s)
	}
}

// SheetDocument builds the export document for a sheet. The active sheet is
// taken from memory, any other sheet straight from the store.
func (b *Board) SheetDocument(id string) (ExportDocument, error) {
	i := b.sheetIndex(id)
	if i < 0 {
		return ExportDocument{}, fmt.Errorf("sheet %s: %w", id, ErrSheetNotFound)
	}
	doc := ExportDocument{
		Meta:       b.sheets[i],
		ExportedAt: b.now().UTC().Format(exportTimeLayout),
	}
	if id == b.activeID {
		doc.Notes = b.Notes()
		doc.Connections = b.Connections()
	} else {
		doc.Notes = readList[Note](b, sheetKey(notesKey, id))
		doc.Connections = readList[Connection](b, sheetKey(connectionsKey, id))
	}
	doc.Notes = nonNil(doc.Notes)
	doc.Connections = nonNil(doc.Connections)
	return doc, nil
}

// ExportFilename is "<name>-<id>-<unix millis><ext>". Path separators in the
// name are replaced so the file lands in the target directory.
func (b *Board) ExportFilename(meta Sheet, ext string) string {
	name := meta.Name
	if name == "" {
		name = "sheet"
	}
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	return fmt.Sprintf("%s-%s-%d%s", name, meta.ID, b.now().UnixMilli(), ext)
}

// writeExport renders doc with e into dir and returns the written path.
func (b *Board) writeExport(e Exporter, doc ExportDocument, dir string) (string, error) {
	var buf bytes.Buffer
	if err := e.Export(&buf, doc); err != nil {
		return "", err
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("creating export directory: %w", err)
		}
	}
	path := filepath.Join(dir, b.ExportFilename(doc.Meta, e.FileExtension()))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing %s export: %w", e.FormatName(), err)
	}
	b.log.Info("exported sheet", "sheet", doc.Meta.ID, "format", e.FormatName(), "path", path)
	return path, nil
}

// ExportSheet writes sheet id in the given format into dir.
func (b *Board) ExportSheet(id string, kind ExportKind, dir string) (string, error) {
	e, err := NewExporter(kind)
	if err != nil {
		return "", err
	}
	doc, err := b.SheetDocument(id)
	if err != nil {
		return "", err
	}
	return b.writeExport(e, doc, dir)
}

type jsonExporter struct{}

func (jsonExporter) Export(w io.Writer, doc ExportDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (jsonExporter) FileExtension() string { return ".json" }
func (jsonExporter) FormatName() string    { return "JSON" }

type yamlExporter struct{}

func (yamlExporter) Export(w io.Writer, doc ExportDocument) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlExporter) FileExtension() string { return ".yaml" }
func (yamlExporter) FormatName() string    { return "YAML" }

// txtExporter writes the terminal rendering of the whole board without colour.
type txtExporter struct{}

func (txtExporter) Export(w io.Writer, doc ExportDocument) error {
	view := BuildView(doc.Meta, doc.Notes, doc.Connections, ThemeLight, ViewState{})
	cols, rows := boardCells(view.Width, view.Height)
	c := NewCanvas(cols, rows, 0, 0, ThemeLight)
	c.Draw(view)
	lines := c.PlainLines()
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (txtExporter) FileExtension() string { return ".txt" }
func (txtExporter) FormatName() string    { return "text" }

var errUnknownImport = errors.New("not a sheet export")

// ParseExport decodes a JSON or YAML export. JSON is tried first.
func ParseExport(data []byte) (ExportDocument, error) {
	var doc ExportDocument
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return ExportDocument{}, fmt.Errorf("parsing JSON export: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return ExportDocument{}, fmt.Errorf("parsing YAML export: %w", err)
	}
	if doc.Meta.ID == "" && doc.Meta.Name == "" && doc.Notes == nil {
		return ExportDocument{}, errUnknownImport
	}
	return doc, nil
}

// ImportDocument stores doc as a new sheet. It does not switch to it.
func (b *Board) ImportDocument(doc ExportDocument) Sheet {
	name := doc.Meta.Name
	if strings.TrimSpace(name) == "" {
		name = "Imported sheet"
	}
	size := string(doc.Meta.Size.orDefault())
	s := b.ImportSheet(name, size, doc.Notes, doc.Connections)
	b.log.Info("imported sheet", "sheet", s.ID, "notes", len(doc.Notes), "connections", len(doc.Connections))
	return s
}

// ImportFile reads and imports an export file.
func (b *Board) ImportFile(path string) (Sheet, error) {
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return Sheet{}, fmt.Errorf("reading import: %w", err)
	}
	doc, err := ParseExport(data)
	if err != nil {
		return Sheet{}, err
	}
	return b.ImportDocument(doc), nil
}
