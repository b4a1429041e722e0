// Package dashboard serves the single-page report: one section per
// question, each showing a chart or table produced by a dataset template.
package dashboard

// Page text.
const (
	PageTitle = "Data Science Projekt"
	PageIntro = "Willkommen zu meiner Analyse der Daten von Boardgamegeek. Im folgenden habe ich 5 Fragen beantwortet."
	NavTitle  = "Navigation"
)

// PageData is the view model of the dashboard page.
type PageData struct {
	Title    string
	Intro    string
	Sections []Section
}

// Section groups the panels answering one question.
type Section struct {
	Number    int
	Anchor    string
	NavLabel  string
	Heading   string
	Narrative string
	Panels    []Panel
}

// Panel renders one template: an HTML table, a chart image or an error.
type Panel struct {
	Slug     string
	Title    string
	ChartURL string
	Table    *Table
	Control  *Slider
	Error    string
}

// Table is a rendered two-column result.
type Table struct {
	Headers [2]string
	Rows    [][2]string
}

// Slider is an integer range control bound to one template parameter.
type Slider struct {
	Param  string
	Label  string
	Min    int
	Max    int
	Step   int
	Value  int
	Anchor string
}
