package matrix

import "strings"

// markdownToHTML converts the small subset of Markdown the copilot emits
// into HTML suitable for a Matrix m.text event with
// format=org.matrix.custom.html.
//
// Supported constructs (in order of processing):
//   - Fenced code blocks  ```…```  → <pre><code>…</code></pre>
//   - Inline code  `…`             → <code>…</code>
//   - Bold  **…**                  → <strong>…</strong>
//   - Newlines                     → <br/>
func markdownToHTML(md string) string {
	var out strings.Builder
	var plain strings.Builder

	// Inline passes run only on text outside fences, so code content keeps
	// its literal backticks and asterisks.  Newlines inside <pre> stay as
	// newlines; Matrix clients preserve them there.
	flush := func() {
		s := plain.String()
		plain.Reset()
		s = replaceDelimited(s, "`", "<code>", "</code>")
		s = replaceDelimited(s, "**", "<strong>", "</strong>")
		s = strings.ReplaceAll(s, "\n", "<br/>")
		out.WriteString(s)
	}

	htmlEscaper := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	inCode := false
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "```") {
			if !inCode {
				flush()
				out.WriteString("<pre><code>")
			} else {
				out.WriteString("</code></pre>")
			}
			inCode = !inCode
			continue
		}
		if inCode {
			out.WriteString(htmlEscaper.Replace(line))
			out.WriteString("\n")
		} else {
			plain.WriteString(line)
			plain.WriteString("\n")
		}
	}
	flush()

	return out.String()
}

// replaceDelimited replaces occurrences of delim…delim with
// open+content+close.  Only complete pairs are replaced; an unmatched opener
// is left as-is.
func replaceDelimited(s, delim, open, close string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, delim)
		if start == -1 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[start+len(delim):], delim)
		if end == -1 {
			b.WriteString(s)
			break
		}
		end += start + len(delim)
		b.WriteString(s[:start])
		b.WriteString(open)
		b.WriteString(s[start+len(delim) : end])
		b.WriteString(close)
		s = s[end+len(delim):]
	}
	return b.String()
}
