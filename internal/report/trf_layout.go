package report

import (
	"strings"

	"mockdesk/dashboard/internal/model"
)

// The form is laid out on a 794x1123 design grid (A4 at 96 dpi) and scaled to
// 210x297 mm when rendered.
const (
	DesignWidth  = 794.0
	DesignHeight = 1123.0
	PageWidthMM  = 210.0
	PageHeightMM = 297.0
)

const emptyField = "—"

type ElementKind int

const (
	KindText ElementKind = iota
	KindField
	KindStripes
	KindImage
	KindRule
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
)

type Option struct {
	Value string
	Label string
}

// Box is a rectangle in design pixels.
type Box struct {
	X, Y, W, H float64
}

type Style struct {
	FontSize   float64 // px
	Bold       bool
	Align      string // L, C or R
	Padding    float64
	LineHeight float64 // multiple of FontSize
}

type Element struct {
	Kind     ElementKind
	Box      Box
	Text     string
	Field    FieldType
	Value    string
	Options  []Option
	Style    Style
	Mirrored bool
	ImageKey string
}

// DisplayText is what the element prints. Select fields print the label of the
// selected option; empty fields print an em dash.
func (e Element) DisplayText() string {
	switch e.Kind {
	case KindText:
		return e.Text
	case KindField:
		value := strings.TrimSpace(e.Value)
		if e.Field == FieldSelect {
			for _, opt := range e.Options {
				if strings.EqualFold(opt.Value, value) {
					value = opt.Label
					break
				}
			}
		}
		if value == "" {
			return emptyField
		}
		return value
	}
	return ""
}

type Page struct {
	Elements []Element
}

type Layout struct {
	Pages []Page
}

var TestSystemOptions = []Option{
	{Value: "IELTS", Label: "IELTS (enforced)"},
	{Value: "IELTS-UKVI", Label: "IELTS for UKVI"},
	{Value: "IELTS-OSR", Label: "IELTS One Skill Retake"},
}

var ModuleOptions = []Option{
	{Value: "Academic", Label: "Academic"},
	{Value: "General", Label: "General Training"},
	{Value: "General Training", Label: "General Training"},
}

var CEFROptions = []Option{
	{Value: "C2", Label: "C2 Proficient"},
	{Value: "C1", Label: "C1 Advanced"},
	{Value: "B2", Label: "B2 Upper Intermediate"},
	{Value: "B1", Label: "B1 Intermediate"},
	{Value: "A2", Label: "A2 Elementary"},
	{Value: "A1", Label: "A1 Beginner"},
}

// TRFData is everything printed on a Test Report Form.
type TRFData struct {
	CentreName   string
	User         model.User
	Booking      model.Booking
	Schedule     model.Schedule
	Marks        model.Marks
	Feedback     model.Feedback
	Admin        model.AdminSection
	Teachers     model.TeacherAssignment
	HasLogo      bool
	CandidateRef string
}

const logoKey = "centre_logo"

var (
	labelStyle   = Style{FontSize: 10, Bold: true, Align: "L"}
	valueStyle   = Style{FontSize: 11, Align: "L", Padding: 6, LineHeight: 1.3}
	bandStyle    = Style{FontSize: 14, Bold: true, Align: "C", Padding: 4, LineHeight: 1.2}
	areaStyle    = Style{FontSize: 10, Align: "L", Padding: 6, LineHeight: 1.35}
	headingStyle = Style{FontSize: 13, Bold: true, Align: "L"}
)

func text(x, y, w, h float64, s string, style Style) Element {
	return Element{Kind: KindText, Box: Box{x, y, w, h}, Text: s, Style: style}
}

func field(x, y, w, h float64, ft FieldType, value string, style Style, opts ...Option) Element {
	return Element{Kind: KindField, Box: Box{x, y, w, h}, Field: ft, Value: value, Style: style, Options: opts}
}

func stripes(x, y, w, h float64, mirrored bool) Element {
	return Element{Kind: KindStripes, Box: Box{x, y, w, h}, Mirrored: mirrored}
}

// labelled adds a caption above a field box.
func labelled(els []Element, label string, x, y, w, h float64, ft FieldType, value string, style Style, opts ...Option) []Element {
	els = append(els, text(x, y, w, 16, label, labelStyle))
	return append(els, field(x, y+18, w, h, ft, value, style, opts...))
}

func band(b *float64) string {
	if b == nil {
		return ""
	}
	return model.FormatBand(b, "")
}

// BuildTRF lays out the two-page form for data.
func BuildTRF(data TRFData) Layout {
	return Layout{Pages: []Page{buildFirstPage(data), buildSecondPage(data)}}
}

func buildFirstPage(d TRFData) Page {
	const margin = 40.0
	width := DesignWidth - 2*margin
	var els []Element

	if d.HasLogo {
		els = append(els, Element{Kind: KindImage, Box: Box{margin, 30, 90, 60}, ImageKey: logoKey})
	}
	els = append(els,
		text(margin+100, 34, width-100, 26, "Test Report Form", Style{FontSize: 22, Bold: true, Align: "R"}),
		text(margin+100, 64, width-100, 20, d.CentreName, Style{FontSize: 11, Align: "R"}),
		stripes(margin, 100, width, 14, false),
	)

	y := 130.0
	half := (width - 20) / 2
	els = labelled(els, "Centre", margin, y, half, 28, FieldText, d.CentreName, valueStyle)
	els = labelled(els, "Test Date", margin+half+20, y, half, 28, FieldText, firstNonEmpty(d.Booking.Date, d.Schedule.StartDate), valueStyle)

	y += 60
	els = labelled(els, "Family Name", margin, y, half, 28, FieldText, d.User.FamilyName(), valueStyle)
	els = labelled(els, "First Name(s)", margin+half+20, y, half, 28, FieldText, d.User.FirstName(), valueStyle)

	y += 60
	third := (width - 40) / 3
	els = labelled(els, "Candidate ID", margin, y, third, 28, FieldText, firstNonEmpty(d.User.PassportNumber, d.CandidateRef), valueStyle)
	els = labelled(els, "Module", margin+third+20, y, third, 28, FieldSelect, firstNonEmpty(d.Booking.TestType, d.Schedule.TestType), valueStyle, ModuleOptions...)
	els = labelled(els, "Test System", margin+2*(third+20), y, third, 28, FieldSelect, firstNonEmpty(d.Booking.TestSystem, d.Schedule.TestSystem), valueStyle, TestSystemOptions...)

	y += 60
	els = labelled(els, "Email", margin, y, half, 28, FieldText, firstNonEmpty(d.User.Email, d.Booking.CandidateEmail()), valueStyle)
	els = labelled(els, "Contact", margin+half+20, y, half, 28, FieldText, firstNonEmpty(d.User.ContactNo, d.Booking.CandidatePhone()), valueStyle)

	y += 70
	els = append(els, stripes(margin, y, width, 14, true), text(margin, y+24, width, 20, "Test Results", headingStyle))

	y += 54
	overall := d.Admin.OverallBand
	if overall == nil {
		if v, ok := d.Marks.Overall(); ok {
			overall = &v
		}
	}
	cefr := d.Admin.ProficiencyLevel
	if cefr == "" && overall != nil {
		cefr = model.CEFRLevel(*overall)
	}
	cell := (width - 5*12) / 6
	for i, item := range []struct {
		label string
		value string
	}{
		{"Listening", band(d.Marks.Listening)},
		{"Reading", band(d.Marks.Reading)},
		{"Writing", band(d.Marks.Writing)},
		{"Speaking", band(d.Marks.Speaking)},
		{"Overall Band", band(overall)},
	} {
		x := margin + float64(i)*(cell+12)
		els = labelled(els, item.label, x, y, cell, 44, FieldText, item.value, bandStyle)
	}
	els = labelled(els, "CEFR Level", margin+5*(cell+12), y, cell, 44, FieldSelect, cefr, Style{FontSize: 9, Bold: true, Align: "C", Padding: 2, LineHeight: 1.2}, CEFROptions...)

	y += 84
	els = labelled(els, "Administrator Comments", margin, y, width, 150, FieldTextarea, d.Admin.AdminComments, areaStyle)

	y += 190
	els = append(els, stripes(margin, y, width, 14, false))
	y += 30
	els = labelled(els, "Result Publish Date", margin, y, third, 28, FieldText, d.Admin.ResultPublishDate, valueStyle)
	els = labelled(els, "Scheme Code", margin+third+20, y, third, 28, FieldText, d.Admin.SchemeCode, valueStyle)
	els = labelled(els, "Administrator Signature", margin+2*(third+20), y, third, 28, FieldText, d.Admin.AdminSignature, valueStyle)

	els = append(els,
		Element{Kind: KindRule, Box: Box{margin, 1060, width, 0}},
		text(margin, 1066, width, 16, "This report is issued for a mock examination and is not an official IELTS Test Report Form.", Style{FontSize: 8, Align: "C"}),
	)
	return Page{Elements: els}
}

func buildSecondPage(d TRFData) Page {
	const margin = 40.0
	width := DesignWidth - 2*margin
	var els []Element
	els = append(els,
		text(margin, 34, width, 26, "Examiner Feedback", Style{FontSize: 20, Bold: true, Align: "L"}),
		text(margin, 62, width, 18, strings.TrimSpace(d.User.Name), Style{FontSize: 11, Align: "L"}),
		stripes(margin, 88, width, 14, true),
	)

	y := 116.0
	for _, seg := range model.Segments {
		els = append(els,
			text(margin, y, width*0.6, 20, seg.Title(), headingStyle),
			text(margin+width*0.6, y, width*0.4, 20, "Examiner: "+d.Teachers.For(seg).Label(), Style{FontSize: 9, Align: "R"}),
		)
		y += 24
		els = append(els, sectionScores(d.Marks, seg, margin, y, width)...)
		y += 52
		els = append(els, field(margin, y, width, 150, FieldTextarea, d.Feedback.For(seg), areaStyle))
		y += 168
	}
	els = append(els, stripes(margin, y, width, 14, false))
	return Page{Elements: els}
}

// sectionScores renders the band and, for writing and speaking, the criteria.
func sectionScores(m model.Marks, seg model.Segment, x, y, width float64) []Element {
	type score struct {
		label string
		value *float64
	}
	scores := []score{{"Band", m.Band(seg)}}
	switch seg {
	case model.SegmentWriting:
		t1, t2 := m.WritingTask1, m.WritingTask2
		if t1 == nil {
			t1 = &model.WritingTask{}
		}
		if t2 == nil {
			t2 = &model.WritingTask{}
		}
		scores = append(scores,
			score{"T1 TA", t1.TaskAchievement}, score{"T1 CC", t1.Coherence}, score{"T1 LR", t1.Lexical}, score{"T1 GRA", t1.Grammar},
			score{"T2 TR", t2.TaskAchievement}, score{"T2 CC", t2.Coherence}, score{"T2 LR", t2.Lexical}, score{"T2 GRA", t2.Grammar},
		)
	case model.SegmentSpeaking:
		s := m.SpeakingDetail
		if s == nil {
			s = &model.SpeakingScores{}
		}
		scores = append(scores, score{"FC", s.Fluency}, score{"LR", s.Lexical}, score{"GRA", s.Grammar}, score{"P", s.Pronunciation})
	}
	gap := 6.0
	cell := (width - gap*float64(len(scores)-1)) / float64(len(scores))
	if cell > 110 {
		cell = 110
	}
	var els []Element
	for i, s := range scores {
		cx := x + float64(i)*(cell+gap)
		els = append(els,
			text(cx, y, cell, 14, s.label, Style{FontSize: 8, Bold: true, Align: "C"}),
			field(cx, y+16, cell, 26, FieldText, band(s.value), Style{FontSize: 11, Bold: true, Align: "C", Padding: 2, LineHeight: 1.2}),
		)
	}
	return els
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// TRFFilename is IELTS_TRF_<FirstName>.pdf with unsafe characters dropped.
func TRFFilename(u model.User) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, u.FirstName())
	if name == "" {
		name = "Candidate"
	}
	return "IELTS_TRF_" + name + ".pdf"
}
