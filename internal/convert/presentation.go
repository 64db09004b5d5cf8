package convert

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	drawingNS = "http://schemas.openxmlformats.org/drawingml/2006/main"
	slideRoot = "ppt/slides/"
)

// Slide holds the text of each text-bearing shape on one slide.
type Slide struct {
	Shapes []string
}

// ReadPresentation extracts shape text from a .pptx file in presentation
// order.
func ReadPresentation(filename string) ([]Slide, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	order, err := slideOrder(files)
	if err != nil {
		return nil, err
	}

	slides := make([]Slide, 0, len(order))
	for _, name := range order {
		f, ok := files[name]
		if !ok {
			return nil, fmt.Errorf("missing slide part %s", name)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		shapes, err := slideText(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		slides = append(slides, Slide{Shapes: shapes})
	}
	return slides, nil
}

// RenderPresentation formats slides as Markdown, one section per slide.
func RenderPresentation(title string, slides []Slide) string {
	var b strings.Builder
	writePreamble(&b, title, "PowerPoint")
	for i, slide := range slides {
		fmt.Fprintf(&b, "## Slide %d\n\n", i+1)
		for _, text := range slide.Shapes {
			b.WriteString(text + "\n\n")
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

type presentationPart struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsPart struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// slideOrder resolves the slide list of ppt/presentation.xml through its
// relationships, falling back to numeric file order.
func slideOrder(files map[string]*zip.File) ([]string, error) {
	var pres presentationPart
	var rels relationshipsPart
	presErr := decodePart(files, "ppt/presentation.xml", &pres)
	relsErr := decodePart(files, "ppt/_rels/presentation.xml.rels", &rels)
	if presErr != nil || relsErr != nil || len(pres.SlideIDs) == 0 {
		return numericSlideOrder(files), nil
	}

	targets := make(map[string]string, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		target := rel.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join("ppt", target)
		}
		targets[rel.ID] = target
	}

	order := make([]string, 0, len(pres.SlideIDs))
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			return nil, fmt.Errorf("slide relationship %s not found", id.RelID)
		}
		order = append(order, target)
	}
	return order, nil
}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func numericSlideOrder(files map[string]*zip.File) []string {
	type numbered struct {
		n    int
		name string
	}
	var found []numbered
	for name := range files {
		if !strings.HasPrefix(name, slideRoot) {
			continue
		}
		m := slideName.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		found = append(found, numbered{n: n, name: name})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	order := make([]string, len(found))
	for i, f := range found {
		order[i] = f.name
	}
	return order
}

func decodePart(files map[string]*zip.File, name string, out any) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(out)
}

// slideText walks a slide part and returns the text of each shape, with the
// shape's paragraphs joined by newlines. Shapes without text are omitted.
func slideText(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		shapes     []string
		paragraphs []string
		para       strings.Builder
		depth      int
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return shapes, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "sp" && t.Name.Space != drawingNS:
				if depth == 0 {
					paragraphs = paragraphs[:0]
				}
				depth++
			case depth > 0 && t.Name.Space == drawingNS && t.Name.Local == "p":
				para.Reset()
			case depth > 0 && t.Name.Space == drawingNS && t.Name.Local == "t":
				inText = true
			case depth > 0 && t.Name.Space == drawingNS && t.Name.Local == "br":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch {
			case t.Name.Local == "sp" && t.Name.Space != drawingNS && depth > 0:
				depth--
				if depth == 0 {
					if text := strings.Join(paragraphs, "\n"); strings.TrimSpace(text) != "" {
						shapes = append(shapes, text)
					}
				}
			case depth > 0 && t.Name.Space == drawingNS && t.Name.Local == "p":
				paragraphs = append(paragraphs, para.String())
			case t.Name.Space == drawingNS && t.Name.Local == "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
}
