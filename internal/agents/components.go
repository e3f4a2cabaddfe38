package agents

// Component is the tagged-union rendering primitive response_formatter_
// agent.py's create_heading/create_paragraph/create_list/create_table/
// create_bar_chart/create_line_chart/create_code_block/create_image tools
// produce; ResponseFormatter assembles a []Component per section and
// concatenates them in table-of-contents order.
type Component struct {
	Type string `json:"type"`

	// Heading
	Level   int    `json:"level,omitempty"`
	Content string `json:"content,omitempty"`

	// List
	Ordered bool     `json:"ordered,omitempty"`
	Items   []string `json:"items,omitempty"`

	// Table
	Title   string          `json:"title,omitempty"`
	Headers []TableHeader   `json:"headers,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`

	// Bar/line chart
	Labels   []string  `json:"labels,omitempty"`
	Datasets []Dataset `json:"datasets,omitempty"`

	// Code block
	Language string `json:"language,omitempty"`

	// Image
	URL     string `json:"url,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// TableHeader is one {key, label} column descriptor.
type TableHeader struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Dataset is one chart series, e.g. {label: "매출액", data: [100, 200]}.
type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
}

const (
	ComponentHeading   = "heading"
	ComponentParagraph = "paragraph"
	ComponentList      = "list"
	ComponentTable     = "table"
	ComponentBarChart  = "bar_chart"
	ComponentLineChart = "line_chart"
	ComponentCodeBlock = "code_block"
	ComponentImage     = "image"
)

func NewHeading(level int, content string) Component {
	return Component{Type: ComponentHeading, Level: level, Content: content}
}

func NewParagraph(content string) Component {
	return Component{Type: ComponentParagraph, Content: content}
}
