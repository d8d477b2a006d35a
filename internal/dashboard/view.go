// Package dashboard turns computed views into what the page renders: chart
// specs, fixed-column tables, notices and control state.
package dashboard

import (
	"errors"

	"donorboard/internal/analytics"
	"donorboard/internal/content"
	"donorboard/internal/core"
)

// Notice levels map onto the page's alert styles.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

const (
	MsgPrompt     = "Please upload or enter data to see visualizations and insights."
	MsgUploadHint = "Please upload a file to proceed."
	MsgUnexpected = "An unexpected error occurred"
)

type Notice struct {
	Level   string
	Message string
}

// NoticeFor maps an error onto what the visitor sees. An absent table is a
// prompt, not an error.
func NoticeFor(err error) Notice {
	if err == nil {
		return Notice{}
	}
	var ce *core.Error
	switch core.KindOf(err) {
	case core.KindInputAbsent:
		return Notice{Level: LevelInfo, Message: MsgPrompt}
	case core.KindUnsupportedFormat:
		if errors.As(err, &ce) {
			return Notice{Level: LevelWarning, Message: ce.Msg}
		}
		return Notice{Level: LevelWarning, Message: err.Error()}
	case core.KindReadFailure, core.KindMissingFile:
		return Notice{Level: LevelError, Message: err.Error()}
	}
	return Notice{Level: LevelError, Message: MsgUnexpected + ": " + err.Error()}
}

// LoadedNotice confirms a successful load.
func LoadedNotice(f core.Format) Notice {
	switch f {
	case core.FormatSpreadsheet:
		return Notice{Level: LevelSuccess, Message: "Excel file uploaded successfully."}
	case core.FormatCSV:
		return Notice{Level: LevelSuccess, Message: "CSV file uploaded successfully."}
	}
	return Notice{Level: LevelSuccess, Message: "Donor data loaded successfully."}
}

// YearChoice is one option of the year selector.
type YearChoice struct {
	Value    string
	Selected bool
}

// Controls is the state of the year selector and both sliders.
type Controls struct {
	Years   []YearChoice
	Year    string
	AvgTopN int
	TopN    int
	Min     int
	Max     int
}

// NewControls reflects p, normalized.
func NewControls(p analytics.Params) Controls {
	p = p.Normalize()
	c := Controls{
		Year:    string(p.Year),
		AvgTopN: p.AvgTopN,
		TopN:    p.TopN,
		Min:     analytics.MinSliceSize,
		Max:     analytics.MaxSliceSize,
	}
	for _, y := range core.YearOptions {
		c.Years = append(c.Years, YearChoice{Value: string(y), Selected: y == p.Year})
	}
	return c
}

// TableView is a table or the reason it could not be built.
type TableView struct {
	Table
	Notice *Notice
}

// Cultivation holds the averages and ranking tables.
type Cultivation struct {
	Averages   TableView
	TopAverage TableView
	Top        TableView
	Bottom     TableView
}

// Page is the full dashboard view model.
type Page struct {
	Header          content.Page
	Recommendations []content.Recommendation
	Sections        []Section
	Active          string

	// Upload shows the file control; false for a fixed source.
	Upload      bool
	MaxUploadMB int
	HasData     bool
	Source      string
	Rows        int
	Notice      *Notice

	Controls    Controls
	ChartErrors map[string]Notice
	Cultivation Cultivation
}

// NewPage builds the page for a session. When t is empty only the header,
// sections and prompt are filled in.
func NewPage(c *content.Content, t *core.Table, d analytics.Dashboard, p analytics.Params) Page {
	page := Page{
		Header:          c.Page,
		Recommendations: c.Recommendations,
		Sections:        Sections,
		Active:          SectionGiftFrequency,
		Controls:        NewControls(p),
	}
	if t.Empty() {
		n := NoticeFor(core.ErrEmptyTable)
		page.Notice = &n
		return page
	}
	page.HasData = true
	page.Source = t.Source
	page.Rows = t.Len()

	page.ChartErrors = map[string]Notice{}
	for name, err := range map[string]error{
		ChartGiftFrequency: d.GiftFrequency.Err,
		ChartTimeline:      d.Timeline.Err,
		ChartYearlyTotals:  d.YearlyTotals.Err,
		ChartAttendance:    d.Attendance.Err,
	} {
		if err != nil {
			page.ChartErrors[name] = NoticeFor(err)
		}
	}
	page.Cultivation = NewCultivation(d, p)
	return page
}

// NewCultivation builds the cultivation tables from whatever views succeeded.
func NewCultivation(d analytics.Dashboard, p analytics.Params) Cultivation {
	p = p.Normalize()
	var c Cultivation
	if d.Averages.OK() {
		c.Averages.Table = AveragesTable(d.Averages.Value)
	} else {
		c.Averages.Notice = notice(d.Averages.Err)
	}
	c.TopAverage = AverageDonorsView(d.TopAverage)
	c.Top, c.Bottom = RankingViews(d.Ranking, p.TopN)
	return c
}

// AverageDonorsView renders the top-average-donors slice.
func AverageDonorsView(r analytics.Result[[]analytics.RankedDonor]) TableView {
	if !r.OK() {
		return TableView{Notice: notice(r.Err)}
	}
	return TableView{Table: TopAverageTable(r.Value)}
}

// RankingViews renders the top and bottom slices.
func RankingViews(r analytics.Result[analytics.Ranking], n int) (top, bottom TableView) {
	if !r.OK() {
		msg := notice(r.Err)
		return TableView{Notice: msg}, TableView{Notice: msg}
	}
	t, b := RankingTables(r.Value, n)
	return TableView{Table: t}, TableView{Table: b}
}

func notice(err error) *Notice {
	n := NoticeFor(err)
	return &n
}

// SectionView pairs a section with the page it renders in.
type SectionView struct {
	Section
	Page   *Page
	Active bool
}

// ChartError is the notice shown in place of the section's chart, if any.
func (v SectionView) ChartError() *Notice {
	if v.Chart == "" {
		return nil
	}
	if n, ok := v.Page.ChartErrors[v.Chart]; ok {
		return &n
	}
	return nil
}

// SectionViews returns every section in tab order.
func (p *Page) SectionViews() []SectionView {
	out := make([]SectionView, len(p.Sections))
	for i, s := range p.Sections {
		out[i] = SectionView{Section: s, Page: p, Active: s.ID == p.Active}
	}
	return out
}

// SectionView returns one section of the page.
func (p *Page) SectionView(id string) (SectionView, bool) {
	s, ok := SectionByID(id)
	if !ok {
		return SectionView{}, false
	}
	return SectionView{Section: s, Page: p, Active: true}, true
}

// ActiveView returns the selected section, falling back to the first tab.
func (p *Page) ActiveView() SectionView {
	if v, ok := p.SectionView(p.Active); ok {
		return v
	}
	v, _ := p.SectionView(SectionGiftFrequency)
	return v
}
