package notes

import (
	"fmt"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
)

// latexEscaper replaces TeX special characters in prose text. Backslash is
// handled first so the replacements themselves survive.
var latexEscaper = strings.NewReplacer(
	"\\", `\textbackslash{}`,
	"#", `\#`,
	"$", `\$`,
	"%", `\%`,
	"&", `\&`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

// urlEscaper keeps \href/\url arguments valid without mangling the target.
var urlEscaper = strings.NewReplacer(
	"%", `\%`,
	"#", `\#`,
)

func escapeText(s string) string { return latexEscaper.Replace(s) }

// renderLaTeX walks a goldmark AST and emits LaTeX for the subset of
// Markdown used in report notes: headings, paragraphs, emphasis, code,
// lists, block quotes, links and images.
func renderLaTeX(root gmast.Node, source []byte) (string, error) {
	var b strings.Builder

	err := gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		switch node := n.(type) {
		case *gmast.Document:
			// nothing to emit

		case *gmast.Heading:
			if entering {
				b.WriteString(headingCommand(node.Level))
				b.WriteString("{")
			} else {
				b.WriteString("}\n\n")
			}

		case *gmast.Paragraph:
			if !entering {
				b.WriteString("\n\n")
			}

		case *gmast.TextBlock:
			// tight list item content; no paragraph spacing
			if !entering {
				b.WriteString("\n")
			}

		case *gmast.Text:
			if entering {
				b.WriteString(escapeText(string(node.Segment.Value(source))))
				if node.HardLineBreak() {
					b.WriteString(`\\` + "\n")
				} else if node.SoftLineBreak() {
					b.WriteString("\n")
				}
			}

		case *gmast.Emphasis:
			if entering {
				if node.Level >= 2 {
					b.WriteString(`\textbf{`)
				} else {
					b.WriteString(`\emph{`)
				}
			} else {
				b.WriteString("}")
			}

		case *gmast.CodeSpan:
			if entering {
				b.WriteString(`\texttt{`)
			} else {
				b.WriteString("}")
			}

		case *gmast.FencedCodeBlock:
			if entering {
				writeVerbatim(&b, node, source)
			}
			return gmast.WalkSkipChildren, nil

		case *gmast.CodeBlock:
			if entering {
				writeVerbatim(&b, node, source)
			}
			return gmast.WalkSkipChildren, nil

		case *gmast.Blockquote:
			if entering {
				b.WriteString("\\begin{quote}\n")
			} else {
				b.WriteString("\\end{quote}\n\n")
			}

		case *gmast.List:
			env := "itemize"
			if node.IsOrdered() {
				env = "enumerate"
			}
			if entering {
				fmt.Fprintf(&b, "\\begin{%s}\n", env)
			} else {
				fmt.Fprintf(&b, "\\end{%s}\n\n", env)
			}

		case *gmast.ListItem:
			if entering {
				b.WriteString(`\item `)
			}

		case *gmast.Link:
			if entering {
				fmt.Fprintf(&b, `\href{%s}{`, urlEscaper.Replace(string(node.Destination)))
			} else {
				b.WriteString("}")
			}

		case *gmast.AutoLink:
			if entering {
				fmt.Fprintf(&b, `\url{%s}`, urlEscaper.Replace(string(node.URL(source))))
			}

		case *gmast.Image:
			if entering {
				fmt.Fprintf(&b, `\includegraphics[width=\linewidth]{%s}`, string(node.Destination))
			}
			return gmast.WalkSkipChildren, nil

		case *gmast.ThematicBreak:
			if entering {
				b.WriteString("\\par\\noindent\\hrulefill\n\n")
			}

		case *gmast.HTMLBlock, *gmast.RawHTML:
			// raw HTML has no LaTeX counterpart; dropped
			return gmast.WalkSkipChildren, nil
		}

		return gmast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func headingCommand(level int) string {
	switch level {
	case 1:
		return `\section`
	case 2:
		return `\subsection`
	case 3:
		return `\subsubsection`
	default:
		return `\paragraph`
	}
}

// writeVerbatim emits a code block's raw lines inside a verbatim environment.
func writeVerbatim(b *strings.Builder, node gmast.Node, source []byte) {
	b.WriteString("\\begin{verbatim}\n")
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	b.WriteString("\\end{verbatim}\n\n")
}
