// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// messageParserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Markdown value is safe
// to share; per-call parse state lives in the reader.
var (
	messageParserInstance goldmark.Markdown
	messageParserOnce     sync.Once
)

func getMessageParser() goldmark.Markdown {
	messageParserOnce.Do(func() {
		messageParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return messageParserInstance
}

// renderMessageBody parses a message's markdown text and renders it
// as styled terminal output wrapped to width. Soft line breaks become
// spaces so text reflows at any pane width; fenced code blocks are
// syntax-highlighted with Chroma. Message bodies are short, so the
// renderer covers the inline and block constructs people actually
// type in chat and degrades anything else to plain text.
func renderMessageBody(input string, theme Theme, width int) string {
	if input == "" {
		return ""
	}
	source := []byte(input)
	document := getMessageParser().Parser().Parse(text.NewReader(source))

	// Force ANSI256: this output is always for a bubbletea TUI, and
	// auto-detection would strip color in test environments without a
	// TTY. SetColorProfile is needed because the lipgloss renderer
	// re-detects from the environment otherwise.
	lipRenderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	lipRenderer.SetColorProfile(termenv.ANSI256)

	walker := &messageRenderer{
		source:      source,
		theme:       theme,
		width:       width,
		lipRenderer: lipRenderer,
	}
	ast.Walk(document, walker.walk)

	return strings.TrimRight(walker.output.String(), "\n")
}

// messageRenderer walks a goldmark AST and produces styled terminal
// text. Paragraph inline content accumulates in a buffer and is
// word-wrapped as a unit when the paragraph closes, which goldmark's
// streaming renderer interface does not accommodate.
type messageRenderer struct {
	source []byte
	theme  Theme
	width  int

	output strings.Builder

	// Inline accumulator, flushed with word-wrap when the containing
	// block closes.
	inline strings.Builder

	// Line prefix for nested blocks (blockquote bars, list
	// indentation). pendingBullet replaces the prefix for the first
	// line of a list item.
	linePrefix      string
	linePrefixWidth int
	pendingBullet   string

	// Inline style depth. Counters rather than booleans so nested
	// emphasis unwinds correctly.
	boldDepth          int
	italicDepth        int
	strikethroughDepth int

	listDepth    int
	listOrdered  []bool
	listCounter  []int
	itemPrefixes []string // Continuation prefix per open list item.

	lipRenderer *lipgloss.Renderer
}

func (renderer *messageRenderer) newStyle() lipgloss.Style {
	return renderer.lipRenderer.NewStyle()
}

func (renderer *messageRenderer) contentWidth() int {
	width := renderer.width - renderer.linePrefixWidth
	if width < 10 {
		width = 10
	}
	return width
}

func (renderer *messageRenderer) pushPrefix(prefix string, visibleWidth int) {
	renderer.linePrefix += prefix
	renderer.linePrefixWidth += visibleWidth
}

func (renderer *messageRenderer) popPrefix(prefix string, visibleWidth int) {
	renderer.linePrefix = renderer.linePrefix[:len(renderer.linePrefix)-len(prefix)]
	renderer.linePrefixWidth -= visibleWidth
}

// consumeLinePrefix returns the prefix for the next emitted line,
// preferring a pending list bullet.
func (renderer *messageRenderer) consumeLinePrefix() string {
	if renderer.pendingBullet != "" {
		bullet := renderer.pendingBullet
		renderer.pendingBullet = ""
		return bullet
	}
	return renderer.linePrefix
}

func (renderer *messageRenderer) writeBlock(content string) {
	for index, line := range strings.Split(content, "\n") {
		if index == 0 {
			renderer.output.WriteString(renderer.consumeLinePrefix())
		} else {
			renderer.output.WriteString(renderer.linePrefix)
		}
		renderer.output.WriteString(line)
		renderer.output.WriteString("\n")
	}
}

// flushInline word-wraps the accumulated inline content and writes it
// as a block. Resets the accumulator.
func (renderer *messageRenderer) flushInline() {
	content := renderer.inline.String()
	renderer.inline.Reset()
	if content == "" {
		return
	}
	renderer.writeBlock(ansi.Wrap(content, renderer.contentWidth(), " ,.;-+|"))
}

func (renderer *messageRenderer) styledText(content string) string {
	style := renderer.newStyle().Foreground(renderer.theme.NormalText)
	if renderer.boldDepth > 0 {
		style = style.Bold(true)
	}
	if renderer.italicDepth > 0 {
		style = style.Italic(true)
	}
	if renderer.strikethroughDepth > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

// inlineContent collects a node's children into a string without
// disturbing the surrounding accumulator state.
func (renderer *messageRenderer) inlineContent(node ast.Node) string {
	saved := renderer.inline.String()
	renderer.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, renderer.walk)
	}
	content := renderer.inline.String()
	renderer.inline.Reset()
	renderer.inline.WriteString(saved)
	return content
}

func (renderer *messageRenderer) highlightCode(code, language string) string {
	if language == "" {
		return renderer.newStyle().Foreground(renderer.theme.FaintText).Render(code)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err != nil {
		return renderer.newStyle().Foreground(renderer.theme.FaintText).Render(code)
	}
	return buffer.String()
}

func (renderer *messageRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {

	case ast.KindDocument:
		// Nothing to do.

	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			renderer.inline.Reset()
		} else {
			renderer.flushInline()
		}

	case ast.KindHeading:
		// Chat messages rarely carry headings; render them as a bold
		// line rather than a section break.
		if entering {
			renderer.inline.Reset()
		} else {
			content := ansi.Strip(renderer.inline.String())
			renderer.inline.Reset()
			if content != "" {
				bold := renderer.newStyle().Bold(true).Foreground(renderer.theme.NormalText)
				renderer.writeBlock(ansi.Wrap(bold.Render(content), renderer.contentWidth(), " ,.;-+|"))
			}
		}

	case ast.KindFencedCodeBlock:
		if entering {
			block := node.(*ast.FencedCodeBlock)
			renderer.writeCodeLines(renderer.highlightCode(
				renderer.blockText(block.Lines()),
				string(block.Language(renderer.source)),
			))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock:
		if entering {
			block := node.(*ast.CodeBlock)
			faint := renderer.newStyle().Foreground(renderer.theme.FaintText)
			renderer.writeCodeLines(faint.Render(renderer.blockText(block.Lines())))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			renderer.pushPrefix("│ ", 2)
		} else {
			renderer.popPrefix("│ ", 2)
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			renderer.listDepth++
			renderer.listOrdered = append(renderer.listOrdered, list.IsOrdered())
			renderer.listCounter = append(renderer.listCounter, list.Start)
		} else {
			renderer.listDepth--
			renderer.listOrdered = renderer.listOrdered[:len(renderer.listOrdered)-1]
			renderer.listCounter = renderer.listCounter[:len(renderer.listCounter)-1]
		}

	case ast.KindListItem:
		if entering {
			renderer.enterListItem()
		} else {
			renderer.leaveListItem()
		}

	case ast.KindThematicBreak:
		if entering {
			rule := renderer.newStyle().Foreground(renderer.theme.BorderColor).
				Render(strings.Repeat("─", renderer.contentWidth()))
			renderer.writeBlock(rule)
		}

	// Inline nodes.
	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			renderer.inline.WriteString(renderer.styledText(string(textNode.Segment.Value(renderer.source))))
			if textNode.SoftLineBreak() {
				// Soft breaks become spaces so hard-wrapped source
				// reflows at the pane width.
				renderer.inline.WriteString(" ")
			}
			if textNode.HardLineBreak() {
				renderer.inline.WriteString("\n")
			}
		}

	case ast.KindString:
		if entering {
			renderer.inline.WriteString(renderer.styledText(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		emphasis := node.(*ast.Emphasis)
		delta := 1
		if !entering {
			delta = -1
		}
		if emphasis.Level >= 2 {
			renderer.boldDepth += delta
		} else {
			renderer.italicDepth += delta
		}

	case extast.KindStrikethrough:
		if entering {
			renderer.strikethroughDepth++
		} else {
			renderer.strikethroughDepth--
		}

	case ast.KindCodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				switch inlineNode := child.(type) {
				case *ast.Text:
					code.Write(inlineNode.Segment.Value(renderer.source))
				case *ast.String:
					code.Write(inlineNode.Value)
				}
			}
			codeStyle := renderer.newStyle().Foreground(renderer.theme.AttachmentChip)
			renderer.inline.WriteString(codeStyle.Render(code.String()))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if entering {
			link := node.(*ast.Link)
			renderer.inline.WriteString(renderer.inlineContent(link))
			if url := string(link.Destination); url != "" {
				urlStyle := renderer.newStyle().Foreground(renderer.theme.FaintText)
				renderer.inline.WriteString(" " + urlStyle.Render("("+url+")"))
			}
			return ast.WalkSkipChildren, nil
		}

	case ast.KindAutoLink:
		if entering {
			autoLink := node.(*ast.AutoLink)
			urlStyle := renderer.newStyle().Foreground(renderer.theme.FaintText)
			renderer.inline.WriteString(urlStyle.Render(string(autoLink.URL(renderer.source))))
		}

	case ast.KindImage:
		if entering {
			image := node.(*ast.Image)
			faint := renderer.newStyle().Foreground(renderer.theme.FaintText)
			renderer.inline.WriteString(faint.Render("[" + ansi.Strip(renderer.inlineContent(image)) + "]"))
			return ast.WalkSkipChildren, nil
		}

	default:
		// Tables, raw HTML, and other constructs nobody types in a DM
		// fall through; their text children still render.
	}

	return ast.WalkContinue, nil
}

func (renderer *messageRenderer) enterListItem() {
	if renderer.listDepth == 0 {
		return
	}
	top := len(renderer.listOrdered) - 1
	var bullet string
	if renderer.listOrdered[top] {
		bullet = fmt.Sprintf("%d. ", renderer.listCounter[top])
		renderer.listCounter[top]++
	} else {
		bullet = "- "
	}
	continuation := strings.Repeat(" ", len(bullet))
	renderer.pendingBullet = renderer.linePrefix + bullet
	renderer.itemPrefixes = append(renderer.itemPrefixes, continuation)
	renderer.pushPrefix(continuation, len(bullet))
}

func (renderer *messageRenderer) leaveListItem() {
	if len(renderer.itemPrefixes) == 0 {
		return
	}
	continuation := renderer.itemPrefixes[len(renderer.itemPrefixes)-1]
	renderer.itemPrefixes = renderer.itemPrefixes[:len(renderer.itemPrefixes)-1]
	renderer.popPrefix(continuation, len(continuation))
}

func (renderer *messageRenderer) blockText(lines *text.Segments) string {
	var content strings.Builder
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		content.Write(segment.Value(renderer.source))
	}
	return content.String()
}

func (renderer *messageRenderer) writeCodeLines(highlighted string) {
	for _, line := range strings.Split(strings.TrimRight(highlighted, "\n"), "\n") {
		renderer.output.WriteString(renderer.consumeLinePrefix())
		renderer.output.WriteString(line)
		renderer.output.WriteString("\n")
	}
}
