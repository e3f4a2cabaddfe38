package agents

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/finrag/stockagent/internal/llmfabric"
	"github.com/finrag/stockagent/internal/llmfabric/provider"
	"github.com/finrag/stockagent/internal/state"
)

const responseFormatterName = "response_formatter"

const noSummaryFallback = "죄송합니다. 요약 정보를 찾을 수 없습니다."

// responseFormatterSystemPrompt is treated as an opaque template, as with
// every other agent's prompt text.
const responseFormatterSystemPrompt = `You are a report formatter. Structure the given section content into components: headings, paragraphs, lists, tables, or charts. Respond with pure JSON describing a list of components, or with plain prose if no structure is warranted.`

// sectionComponentsSchema is the WithStructuredOutput target for one
// section: a flat list of components, each carrying only the fields its
// Type uses (response_formatter_agent.py's create_heading/create_paragraph/
// create_list/create_table/create_bar_chart/create_line_chart/
// create_code_block/create_image tool set).
type sectionComponentsSchema struct {
	Components []Component `json:"components"`
}

// ResponseFormatter is spec.md §4.4's response_formatter: given the
// Summarizer's narrative (and optional per-section breakdown) plus a
// dynamic TOC, it renders a component tree and a parallel markdown answer.
type ResponseFormatter struct {
	llm *llmfabric.AgentLLM
}

func NewResponseFormatter(llm *llmfabric.AgentLLM) *ResponseFormatter {
	return &ResponseFormatter{llm: llm}
}

func (a *ResponseFormatter) Name() string { return responseFormatterName }

func (a *ResponseFormatter) Process(ctx context.Context, s *state.AgentState) error {
	start := time.Now()

	if !summarizerSucceeded(s) {
		s.FormattedResponse = noSummaryFallback
		s.Answer = noSummaryFallback
		s.Components = nil
		recordResult(s, a.Name(), start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}

	title := s.StockName
	if title == "" {
		title = s.StockCode
	}
	components := []Component{NewHeading(1, fmt.Sprintf("%s 분석 보고서", title))}

	if len(s.TOC) > 0 {
		components = append(components, a.renderTOC(ctx, s)...)
	} else {
		components = append(components, parseMarkdownFallback(s.Summary)...)
	}

	s.Components = componentsToAny(components)
	s.Answer = componentsToMarkdown(components)
	s.FormattedResponse = s.Answer

	recordResult(s, a.Name(), start, state.StatusCompleted, len(components), "", modelName(ctx, a.llm))
	return nil
}

// summarizerSucceeded mirrors response_formatter_agent.py's early-exit
// check: a completed context_response_agent override also satisfies it.
func summarizerSucceeded(s *state.AgentState) bool {
	if s.Summary != "" {
		if result := s.AgentResults[summarizerName]; result != nil && result.Status == state.StatusCompleted {
			return true
		}
	}
	if result := s.AgentResults["context_response_agent"]; result != nil && result.Status == state.StatusCompleted && s.Summary != "" {
		return true
	}
	return false
}

// renderTOC walks s.TOC in order, emitting a level-2 heading per top-level
// section (level-3 for subsections) followed by the LLM-structured
// components for summary_by_section[section_id]. A section with no
// per-section summary gets its heading only; a plain paragraph of the
// summary text is the fallback when structuring fails or returns nothing.
func (a *ResponseFormatter) renderTOC(ctx context.Context, s *state.AgentState) []Component {
	var out []Component
	for _, section := range s.TOC {
		out = append(out, a.renderSection(ctx, s, section, 2)...)
		for _, sub := range section.Subsections {
			out = append(out, a.renderSection(ctx, s, sub, 3)...)
		}
	}
	return out
}

func (a *ResponseFormatter) renderSection(ctx context.Context, s *state.AgentState, section state.TOCSection, level int) []Component {
	out := []Component{NewHeading(level, section.Title)}

	content := s.SummaryBySection[section.SectionID]
	if content == "" {
		return out
	}

	body, err := a.structureSection(ctx, section.Title, content)
	if err != nil || len(body) == 0 {
		body = []Component{NewParagraph(content)}
	}
	return append(out, body...)
}

// structureSection is a single section's LLM call; its result is
// post-processed per the heading-demotion/fence-stripping rules below.
func (a *ResponseFormatter) structureSection(ctx context.Context, title, content string) ([]Component, error) {
	messages := []provider.Message{
		{Role: provider.RoleSystem, Content: responseFormatterSystemPrompt},
		{Role: provider.RoleUser, Content: fmt.Sprintf("섹션: %s\n\n%s", title, content)},
	}

	result, err := a.llm.WithStructuredOutput(ctx, messages, &sectionComponentsSchema{}, llmfabric.FallbackOptions{})
	if err != nil {
		return nil, err
	}

	if result.Parsed == nil {
		// No tool call / unparseable JSON: treat the raw text as a single
		// paragraph, after stripping any JSON fences (spec.md §4.4 step 4).
		text := strings.TrimSpace(llmfabric.StripJSONFences(result.Raw))
		if text == "" {
			return nil, nil
		}
		return []Component{NewParagraph(text)}, nil
	}

	var schema sectionComponentsSchema
	if err := remarshal(result.Parsed, &schema); err != nil {
		return nil, err
	}

	components := make([]Component, 0, len(schema.Components))
	for _, c := range schema.Components {
		components = append(components, postProcessComponent(c))
	}
	return components, nil
}

var (
	subsectionNumberPattern = regexp.MustCompile(`^\d+\.\d+\.?`)
	sectionNumberPattern    = regexp.MustCompile(`^\d+\.(?:\s|$)`)
	markdownHeadingPrefix   = regexp.MustCompile(`^#{1,3}\s+`)
)

// postProcessComponent applies response_formatter_agent.py's heading rules:
// a "**"-prefixed heading is demoted to a paragraph; otherwise the level is
// inferred from a numbering prefix, and any leading markdown "#" prefix is
// stripped from the content.
func postProcessComponent(c Component) Component {
	if c.Type != ComponentHeading {
		return c
	}

	content := strings.TrimSpace(c.Content)
	if strings.HasPrefix(content, "**") {
		return NewParagraph(content)
	}

	content = markdownHeadingPrefix.ReplaceAllString(content, "")
	switch {
	case subsectionNumberPattern.MatchString(content):
		c.Level = 3
	case sectionNumberPattern.MatchString(content):
		c.Level = 2
	}

	c.Content = content
	return c
}

// parseMarkdownFallback is spec.md §4.4's "TOC is absent or contains no
// sections" path: a small regex-based markdown-to-component converter
// recognizing headings, bullet/ordered lists, fenced code, pipe-tables and
// paragraphs.
func parseMarkdownFallback(markdown string) []Component {
	lines := strings.Split(markdown, "\n")
	var out []Component
	var paragraph []string
	var listItems []string
	listOrdered := false
	inCode := false
	var codeLines []string
	var codeLang string

	flushParagraph := func() {
		if len(paragraph) > 0 {
			out = append(out, NewParagraph(strings.TrimSpace(strings.Join(paragraph, " "))))
			paragraph = nil
		}
	}
	flushList := func() {
		if len(listItems) > 0 {
			out = append(out, Component{Type: ComponentList, Ordered: listOrdered, Items: listItems})
			listItems = nil
		}
	}

	headingRe := regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletRe := regexp.MustCompile(`^[-*]\s+(.*)$`)
	orderedRe := regexp.MustCompile(`^\d+\.\s+(.*)$`)

	for _, rawLine := range lines {
		line := strings.TrimRight(rawLine, "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				out = append(out, Component{Type: ComponentCodeBlock, Language: codeLang, Content: strings.Join(codeLines, "\n")})
				codeLines = nil
				codeLang = ""
				inCode = false
			} else {
				flushParagraph()
				flushList()
				inCode = true
				codeLang = strings.TrimPrefix(trimmed, "```")
			}
			continue
		}
		if inCode {
			codeLines = append(codeLines, line)
			continue
		}

		if trimmed == "" {
			flushParagraph()
			flushList()
			continue
		}

		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			flushList()
			out = append(out, NewHeading(len(m[1]), strings.TrimSpace(m[2])))
			continue
		}

		if m := bulletRe.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			if len(listItems) > 0 && listOrdered {
				flushList()
			}
			listOrdered = false
			listItems = append(listItems, m[1])
			continue
		}

		if m := orderedRe.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			if len(listItems) > 0 && !listOrdered {
				flushList()
			}
			listOrdered = true
			listItems = append(listItems, m[1])
			continue
		}

		if strings.HasPrefix(trimmed, "|") {
			flushParagraph()
			flushList()
			out = append(out, parsePipeTable(trimmed))
			continue
		}

		flushList()
		paragraph = append(paragraph, trimmed)
	}
	flushParagraph()
	flushList()
	return out
}

// parsePipeTable parses a single "| a | b |" line into a one-row table
// component. Rows are not merged: each pipe line of a multi-row table,
// separator lines included, becomes its own one-row table.
func parsePipeTable(line string) Component {
	cells := strings.Split(strings.Trim(line, "|"), "|")
	headers := make([]TableHeader, 0, len(cells))
	row := make(map[string]any, len(cells))
	for i, cell := range cells {
		key := "col" + strconv.Itoa(i+1)
		value := strings.TrimSpace(cell)
		headers = append(headers, TableHeader{Key: key, Label: value})
		row[key] = value
	}
	return Component{Type: ComponentTable, Headers: headers, Rows: []map[string]any{row}}
}

func componentsToAny(components []Component) []any {
	out := make([]any, len(components))
	for i, c := range components {
		out[i] = c
	}
	return out
}

// componentsToMarkdown renders the same component tree as plain markdown
// for the text-only answer field (spec.md §4.4 step 5).
func componentsToMarkdown(components []Component) string {
	var b strings.Builder
	for _, c := range components {
		switch c.Type {
		case ComponentHeading:
			fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", maxInt(1, c.Level)), c.Content)
		case ComponentParagraph:
			fmt.Fprintf(&b, "%s\n\n", c.Content)
		case ComponentList:
			for i, item := range c.Items {
				if c.Ordered {
					fmt.Fprintf(&b, "%d. %s\n", i+1, item)
				} else {
					fmt.Fprintf(&b, "- %s\n", item)
				}
			}
			b.WriteString("\n")
		case ComponentTable:
			for _, row := range c.Rows {
				var cells []string
				for _, h := range c.Headers {
					cells = append(cells, fmt.Sprintf("%v", row[h.Key]))
				}
				fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
			}
			b.WriteString("\n")
		case ComponentBarChart, ComponentLineChart:
			fmt.Fprintf(&b, "[%s: %s]\n\n", c.Type, c.Title)
		case ComponentCodeBlock:
			fmt.Fprintf(&b, "```%s\n%s\n```\n\n", c.Language, c.Content)
		case ComponentImage:
			fmt.Fprintf(&b, "![%s](%s)\n\n", c.Alt, c.URL)
		}
	}
	return strings.TrimSpace(b.String())
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
