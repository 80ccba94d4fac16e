package dispensa

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	pageWidth  = 595
	pageHeight = 842
	marginLeft = 50
	wrapWidth  = 88
	footerY    = 40

	// Line caps per free-text field. With all of them full the second row of
	// signatures still ends above the footer.
	maxNameLines      = 3
	maxObjectiveLines = 10
	maxDetailLines    = 3
	maxReasonLines    = 4
)

type pdfText struct {
	x, y int
	size int
	bold bool
	text string
}

type pdfRule struct {
	x1, y, x2 int
}

// RenderPDF lays the document fields out on one A4 page.
func RenderPDF(doc DocumentFields) ([]byte, error) {
	texts, rules := layoutDocument(doc)

	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())

	var content bytes.Buffer
	for _, r := range rules {
		fmt.Fprintf(&content, "0.5 w %d %d m %d %d l S\n", r.x1, r.y, r.x2, r.y)
	}
	for _, t := range texts {
		encoded, err := enc.String(t.text)
		if err != nil {
			return nil, fmt.Errorf("encode pdf text: %w", err)
		}
		font := "F1"
		if t.bold {
			font = "F2"
		}
		fmt.Fprintf(&content, "BT /%s %d Tf %d %d Td (%s) Tj ET\n", font, t.size, t.x, t.y, pdfEscape(encoded))
	}

	stream := content.Bytes()
	objects := [][]byte{
		[]byte("<< /Type /Catalog /Pages 2 0 R >>"),
		[]byte("<< /Type /Pages /Kids [3 0 R] /Count 1 >>"),
		[]byte(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 4 0 R /F2 5 0 R >> >> /Contents 6 0 R >>", pageWidth, pageHeight)),
		[]byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"),
		[]byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>"),
		append(append([]byte(fmt.Sprintf("<< /Length %d >>\nstream\n", len(stream))), stream...), []byte("\nendstream")...),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objects))
	for i, obj := range objects {
		offsets = append(offsets, out.Len())
		fmt.Fprintf(&out, "%d 0 obj\n", i+1)
		out.Write(obj)
		out.WriteString("\nendobj\n")
	}

	xrefStart := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(objects)+1, xrefStart)

	return out.Bytes(), nil
}

func layoutDocument(doc DocumentFields) ([]pdfText, []pdfRule) {
	var texts []pdfText
	y := 790
	line := func(size int, bold bool, text string) {
		texts = append(texts, pdfText{x: marginLeft, y: y, size: size, bold: bold, text: text})
		y -= size + 6
	}
	paragraph := func(label, body string, maxLines int) {
		for i, l := range truncateLines(wrap(body, wrapWidth), maxLines) {
			if i == 0 {
				l = label + l
			}
			line(10, false, l)
		}
	}

	line(14, true, "REQUEST FOR COURSE LEAVE")
	line(10, false, "Protocol: "+doc.Protocol)
	y -= 10

	line(11, true, "Requester")
	line(10, false, "Name: "+doc.RequesterName)
	line(10, false, "Registration: "+doc.Matricula+"    Position: "+doc.Cargo)
	line(10, false, "Unit: "+doc.Unit)
	y -= 10

	line(11, true, "Event")
	paragraph("Name: ", doc.EventName, maxNameLines)
	paragraph("Objective: ", doc.Objective, maxObjectiveLines)
	line(10, false, fmt.Sprintf("Period: %s to %s", doc.StartDate, doc.EndDate))
	line(10, false, "Location: "+location(doc.City, doc.State))
	y -= 10

	line(11, true, "Leave type")
	line(10, false, strings.Join([]string{doc.Invitation, doc.Agenda, doc.Summons, doc.Other}, "    "))
	if doc.OtherDetail != "" {
		paragraph("Details: ", doc.OtherDetail, maxDetailLines)
	}
	if doc.RejectionReason != "" {
		y -= 10
		line(11, true, "Rejection")
		paragraph("Reason: ", doc.RejectionReason, maxReasonLines)
	}

	y -= 40
	var rules []pdfRule
	blocks := []SignatureBlock{doc.Requester, doc.Manager, doc.Coordinator, doc.Admin}
	for i, b := range blocks {
		col := i % 2
		row := i / 2
		x := marginLeft + col*260
		by := y - row*90
		rules = append(rules, pdfRule{x1: x, y: by, x2: x + 220})
		texts = append(texts,
			pdfText{x: x, y: by + 6, size: 10, bold: true, text: b.Text},
			pdfText{x: x, y: by - 14, size: 9, text: b.Title},
		)
		if b.SignedAt != "" {
			texts = append(texts, pdfText{x: x, y: by - 26, size: 8, text: b.SignedAt})
		}
	}

	texts = append(texts, pdfText{x: marginLeft, y: footerY, size: 8, text: "Submitted " + doc.SubmittedAt + " - status " + doc.Status})
	return texts, rules
}

func location(city, state string) string {
	switch {
	case city != "" && state != "":
		return city + " - " + state
	case city != "":
		return city
	default:
		return state
	}
}

func wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	return append(lines, cur.String())
}

// truncateLines keeps the first max lines and marks the cut with "...".
func truncateLines(lines []string, max int) []string {
	if len(lines) <= max {
		return lines
	}
	lines = lines[:max]
	last := []rune(lines[max-1])
	if len(last)+3 > wrapWidth {
		last = last[:wrapWidth-3]
	}
	lines[max-1] = strings.TrimRight(string(last), " ") + "..."
	return lines
}

func pdfEscape(v string) string {
	replacer := strings.NewReplacer("\\", "\\\\", "(", "\\(", ")", "\\)", "\r", "", "\n", " ")
	return replacer.Replace(v)
}

// PDFFilename is the download name of a request's document.
func PDFFilename(protocol string) string {
	name := strings.NewReplacer("/", "-", " ", "_").Replace(protocol)
	if name == "" {
		name = "dispensa"
	}
	return name + ".pdf"
}
