package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

const (
	fontName = "Times New Roman"
	// fontHalfPoints is 8pt; w:sz is measured in half-points.
	fontHalfPoints = 16
	columnGap      = twipsPerInch / 2
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

var stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:docDefaults><w:rPrDefault><w:rPr>` +
	`<w:rFonts w:ascii="` + fontName + `" w:hAnsi="` + fontName + `" w:eastAsia="` + fontName + `" w:cs="` + fontName + `"/>` +
	`<w:sz w:val="` + strconv.Itoa(fontHalfPoints) + `"/><w:szCs w:val="` + strconv.Itoa(fontHalfPoints) + `"/>` +
	`</w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:before="0" w:after="0" w:line="240" w:lineRule="auto"/></w:pPr></w:pPrDefault>` +
	`</w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
	`</w:styles>`

// WriteDocx writes d as a .docx package. The header sits in a one column
// section; the questions follow in a continuous section with d.Layout.Columns
// text columns.
func (d *Document) WriteDocx(w io.Writer) error {
	body, err := d.documentXML()
	if err != nil {
		return fmt.Errorf("render document.xml: %w", err)
	}
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/document.xml", body},
	}
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.body); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close docx: %w", err)
	}
	return nil
}

func (d *Document) documentXML() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	for i, p := range d.Header {
		var sectPr func(*bytes.Buffer)
		if i == len(d.Header)-1 {
			sectPr = func(b *bytes.Buffer) { writeSection(b, d.Layout, 1, false) }
		}
		if err := writeParagraph(&b, p, sectPr); err != nil {
			return nil, err
		}
	}
	for _, p := range d.Paragraphs()[len(d.Header):] {
		if err := writeParagraph(&b, p, nil); err != nil {
			return nil, err
		}
	}

	writeSection(&b, d.Layout, d.Layout.Columns, len(d.Header) > 0)
	b.WriteString(`</w:body></w:document>`)
	return b.Bytes(), nil
}

func writeParagraph(b *bytes.Buffer, p Paragraph, sectPr func(*bytes.Buffer)) error {
	b.WriteString(`<w:p><w:pPr>`)
	if p.SpaceBefore > 0 || p.SpaceAfter > 0 {
		fmt.Fprintf(b, `<w:spacing w:before="%d" w:after="%d"/>`, p.SpaceBefore, p.SpaceAfter)
	}
	if p.IndentLeft > 0 {
		fmt.Fprintf(b, `<w:ind w:left="%d"/>`, p.IndentLeft)
	}
	if p.Align != AlignLeft {
		fmt.Fprintf(b, `<w:jc w:val="%s"/>`, p.Align)
	}
	if sectPr != nil {
		sectPr(b)
	}
	b.WriteString(`</w:pPr>`)

	for _, r := range p.Runs {
		if err := writeRun(b, r); err != nil {
			return err
		}
	}
	b.WriteString(`</w:p>`)
	return nil
}

func writeRun(b *bytes.Buffer, r Run) error {
	b.WriteString(`<w:r>`)
	if r.Bold || r.Subscript || r.Superscript {
		b.WriteString(`<w:rPr>`)
		if r.Bold {
			b.WriteString(`<w:b/><w:bCs/>`)
		}
		switch {
		case r.Subscript:
			b.WriteString(`<w:vertAlign w:val="subscript"/>`)
		case r.Superscript:
			b.WriteString(`<w:vertAlign w:val="superscript"/>`)
		}
		b.WriteString(`</w:rPr>`)
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	if err := xml.EscapeText(b, []byte(r.Text)); err != nil {
		return fmt.Errorf("escape run text: %w", err)
	}
	b.WriteString(`</w:t></w:r>`)
	return nil
}

func writeSection(b *bytes.Buffer, l Layout, columns int, continuous bool) {
	b.WriteString(`<w:sectPr>`)
	if continuous {
		b.WriteString(`<w:type w:val="continuous"/>`)
	}
	if l.Landscape {
		fmt.Fprintf(b, `<w:pgSz w:w="%d" w:h="%d" w:orient="landscape"/>`, l.Width, l.Height)
	} else {
		fmt.Fprintf(b, `<w:pgSz w:w="%d" w:h="%d"/>`, l.Width, l.Height)
	}
	fmt.Fprintf(b, `<w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="720" w:footer="720" w:gutter="0"/>`,
		l.Margins.Top, l.Margins.Right, l.Margins.Bottom, l.Margins.Left)
	fmt.Fprintf(b, `<w:cols w:num="%d" w:space="%d"/>`, columns, columnGap)
	b.WriteString(`</w:sectPr>`)
}
