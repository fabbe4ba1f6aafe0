// Package markdown turns the narrow markdown the summary prompt asks for
// (one-level "# " headers and "- " bullets) into a single-line HTML fragment.
//
// It is a line scanner, not a markdown implementation: nothing nests, and
// anything it does not recognise is kept as escaped literal text.
package markdown

import (
	"html"
	"strings"
)

// Kind classifies a Block.
type Kind int

const (
	Heading Kind = iota
	List
	Text
)

// Block is one contiguous section of the document.
type Block struct {
	Kind  Kind
	Lines []string // heading: one line; list: one per item; text: raw lines
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineHeading
	lineBullet
	lineText
)

func classify(line string) (lineKind, string) {
	switch {
	case strings.TrimSpace(line) == "":
		return lineBlank, ""
	case strings.HasPrefix(line, "# "):
		return lineHeading, strings.TrimSpace(line[2:])
	case strings.HasPrefix(line, "- "):
		return lineBullet, strings.TrimSpace(line[2:])
	default:
		return lineText, strings.TrimSpace(line)
	}
}

// Parse splits md into blocks. Bullets separated only by blank lines stay in
// one List block; a heading or text line closes the current block.
func Parse(md string) []Block {
	md = strings.ReplaceAll(md, "\r\n", "\n")

	var (
		blocks []Block
		cur    *Block
	)
	flush := func() {
		if cur != nil {
			blocks = append(blocks, *cur)
			cur = nil
		}
	}

	for _, line := range strings.Split(md, "\n") {
		kind, content := classify(line)
		switch kind {
		case lineBlank:
			// Blank lines only end text paragraphs; lists continue across them.
			if cur != nil && cur.Kind == Text {
				flush()
			}
		case lineHeading:
			flush()
			blocks = append(blocks, Block{Kind: Heading, Lines: []string{content}})
		case lineBullet:
			if cur == nil || cur.Kind != List {
				flush()
				cur = &Block{Kind: List}
			}
			cur.Lines = append(cur.Lines, content)
		case lineText:
			if cur == nil || cur.Kind != Text {
				flush()
				cur = &Block{Kind: Text}
			}
			cur.Lines = append(cur.Lines, content)
		}
	}
	flush()
	return blocks
}

// Render writes blocks as HTML with no newlines.
func Render(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Kind {
		case Heading:
			b.WriteString("<h2>")
			b.WriteString(html.EscapeString(strings.Join(blk.Lines, " ")))
			b.WriteString("</h2>")
		case List:
			b.WriteString("<ul>")
			for _, item := range blk.Lines {
				b.WriteString("<li>")
				b.WriteString(html.EscapeString(item))
				b.WriteString("</li>")
			}
			b.WriteString("</ul>")
		case Text:
			b.WriteString(html.EscapeString(strings.Join(blk.Lines, " ")))
		}
	}
	return b.String()
}

// ToHTML is Render(Parse(md)).
func ToHTML(md string) string {
	return Render(Parse(md))
}
