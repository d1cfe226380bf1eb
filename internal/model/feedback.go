package model

import (
	"fmt"
	"math"
	"strings"
)

type Segment string

const (
	SegmentListening Segment = "listening"
	SegmentReading   Segment = "reading"
	SegmentWriting   Segment = "writing"
	SegmentSpeaking  Segment = "speaking"
)

var Segments = []Segment{SegmentListening, SegmentReading, SegmentWriting, SegmentSpeaking}

func ParseSegment(value string) (Segment, error) {
	seg := Segment(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range Segments {
		if s == seg {
			return seg, nil
		}
	}
	return "", fmt.Errorf("invalid segment %q", value)
}

func (s Segment) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// FeedbackStatus records which segments have been saved server-side. A saved segment
// is locked against further edits.
type FeedbackStatus struct {
	Listening bool `json:"listening"`
	Reading   bool `json:"reading"`
	Writing   bool `json:"writing"`
	Speaking  bool `json:"speaking"`
}

func (f FeedbackStatus) Saved(seg Segment) bool {
	switch seg {
	case SegmentListening:
		return f.Listening
	case SegmentReading:
		return f.Reading
	case SegmentWriting:
		return f.Writing
	case SegmentSpeaking:
		return f.Speaking
	}
	return false
}

func (f FeedbackStatus) With(seg Segment) FeedbackStatus {
	switch seg {
	case SegmentListening:
		f.Listening = true
	case SegmentReading:
		f.Reading = true
	case SegmentWriting:
		f.Writing = true
	case SegmentSpeaking:
		f.Speaking = true
	}
	return f
}

func (f FeedbackStatus) CompletedCount() int {
	n := 0
	for _, seg := range Segments {
		if f.Saved(seg) {
			n++
		}
	}
	return n
}

func (f FeedbackStatus) Complete() bool { return f.CompletedCount() == len(Segments) }

type WritingTask struct {
	TaskAchievement *float64 `json:"taskAchievement,omitempty" validate:"omitempty,band"`
	Coherence       *float64 `json:"coherence,omitempty" validate:"omitempty,band"`
	Lexical         *float64 `json:"lexical,omitempty" validate:"omitempty,band"`
	Grammar         *float64 `json:"grammar,omitempty" validate:"omitempty,band"`
}

type SpeakingScores struct {
	Fluency       *float64 `json:"fluency,omitempty" validate:"omitempty,band"`
	Lexical       *float64 `json:"lexical,omitempty" validate:"omitempty,band"`
	Grammar       *float64 `json:"grammar,omitempty" validate:"omitempty,band"`
	Pronunciation *float64 `json:"pronunciation,omitempty" validate:"omitempty,band"`
}

type Marks struct {
	Listening      *float64        `json:"listening,omitempty" validate:"omitempty,band"`
	Reading        *float64        `json:"reading,omitempty" validate:"omitempty,band"`
	Writing        *float64        `json:"writing,omitempty" validate:"omitempty,band"`
	Speaking       *float64        `json:"speaking,omitempty" validate:"omitempty,band"`
	ListeningRaw   *int            `json:"listeningRaw,omitempty" validate:"omitempty,gte=0,lte=40"`
	ReadingRaw     *int            `json:"readingRaw,omitempty" validate:"omitempty,gte=0,lte=40"`
	WritingTask1   *WritingTask    `json:"writingTask1,omitempty"`
	WritingTask2   *WritingTask    `json:"writingTask2,omitempty"`
	SpeakingDetail *SpeakingScores `json:"speakingDetail,omitempty"`
}

func (m Marks) Band(seg Segment) *float64 {
	switch seg {
	case SegmentListening:
		return m.Listening
	case SegmentReading:
		return m.Reading
	case SegmentWriting:
		return m.Writing
	case SegmentSpeaking:
		return m.Speaking
	}
	return nil
}

// Merge copies the segment-specific marks of seg from other into m.
func (m Marks) Merge(seg Segment, other Marks) Marks {
	switch seg {
	case SegmentListening:
		m.Listening, m.ListeningRaw = other.Listening, other.ListeningRaw
	case SegmentReading:
		m.Reading, m.ReadingRaw = other.Reading, other.ReadingRaw
	case SegmentWriting:
		m.Writing, m.WritingTask1, m.WritingTask2 = other.Writing, other.WritingTask1, other.WritingTask2
	case SegmentSpeaking:
		m.Speaking, m.SpeakingDetail = other.Speaking, other.SpeakingDetail
	}
	return m
}

// Overall returns the overall band once all four segment bands are present.
func (m Marks) Overall() (float64, bool) {
	if m.Listening == nil || m.Reading == nil || m.Writing == nil || m.Speaking == nil {
		return 0, false
	}
	return OverallBand(*m.Listening, *m.Reading, *m.Writing, *m.Speaking), true
}

type Feedback struct {
	Listening string `json:"listening,omitempty" validate:"max=4000"`
	Reading   string `json:"reading,omitempty" validate:"max=4000"`
	Writing   string `json:"writing,omitempty" validate:"max=4000"`
	Speaking  string `json:"speaking,omitempty" validate:"max=4000"`
}

func (f Feedback) For(seg Segment) string {
	switch seg {
	case SegmentListening:
		return f.Listening
	case SegmentReading:
		return f.Reading
	case SegmentWriting:
		return f.Writing
	case SegmentSpeaking:
		return f.Speaking
	}
	return ""
}

func (f Feedback) With(seg Segment, text string) Feedback {
	switch seg {
	case SegmentListening:
		f.Listening = text
	case SegmentReading:
		f.Reading = text
	case SegmentWriting:
		f.Writing = text
	case SegmentSpeaking:
		f.Speaking = text
	}
	return f
}

// FeedbackRecord is the backend's feedback-status document for one (user, schedule).
type FeedbackRecord struct {
	UserID     string `json:"userId,omitempty"`
	ScheduleID string `json:"scheduleId,omitempty"`
	FeedbackStatus
	Marks    Marks    `json:"marks"`
	Feedback Feedback `json:"feedback"`
}

type AdminSection struct {
	UserID            string   `json:"userId,omitempty"`
	ScheduleID        string   `json:"scheduleId,omitempty"`
	OverallBand       *float64 `json:"overallBand,omitempty" validate:"omitempty,band"`
	ProficiencyLevel  string   `json:"proficiencyLevel,omitempty" validate:"omitempty,cefr"`
	ResultPublishDate string   `json:"resultPublishDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	SchemeCode        string   `json:"schemeCode,omitempty" validate:"max=64"`
	AdminComments     string   `json:"adminComments,omitempty" validate:"max=2000"`
	AdminSignature    string   `json:"adminSignature,omitempty" validate:"max=128"`
}

type Teacher struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

func (t Teacher) Assigned() bool { return t.ID != "" || t.Email != "" }

func (t Teacher) Label() string {
	switch {
	case strings.TrimSpace(t.Name) != "":
		return strings.TrimSpace(t.Name)
	case strings.TrimSpace(t.Email) != "":
		return strings.TrimSpace(t.Email)
	default:
		return "Unassigned"
	}
}

type TeacherAssignment struct {
	Listening Teacher `json:"listening"`
	Reading   Teacher `json:"reading"`
	Writing   Teacher `json:"writing"`
	Speaking  Teacher `json:"speaking"`
}

func (a TeacherAssignment) For(seg Segment) Teacher {
	switch seg {
	case SegmentListening:
		return a.Listening
	case SegmentReading:
		return a.Reading
	case SegmentWriting:
		return a.Writing
	case SegmentSpeaking:
		return a.Speaking
	}
	return Teacher{}
}

func (a TeacherAssignment) Labels() map[Segment]string {
	out := make(map[Segment]string, len(Segments))
	for _, seg := range Segments {
		out[seg] = a.For(seg).Label()
	}
	return out
}

// OverallBand averages the four segment bands and rounds to the nearest half band;
// an average ending in .25 rounds up to .5 and one ending in .75 rounds up to the next band.
func OverallBand(listening, reading, writing, speaking float64) float64 {
	avg := (listening + reading + writing + speaking) / 4
	whole := math.Floor(avg)
	frac := avg - whole
	switch {
	case frac < 0.25:
		return whole
	case frac < 0.75:
		return whole + 0.5
	default:
		return whole + 1
	}
}

var cefrLevels = []string{"C2", "C1", "B2", "B1", "A2", "A1"}

func CEFRLevel(overall float64) string {
	switch {
	case overall >= 8.5:
		return "C2"
	case overall >= 7:
		return "C1"
	case overall >= 5.5:
		return "B2"
	case overall >= 4:
		return "B1"
	case overall >= 3:
		return "A2"
	default:
		return "A1"
	}
}

// FormatBand renders a band for display; nil bands render as the empty marker.
func FormatBand(b *float64, empty string) string {
	if b == nil {
		return empty
	}
	return fmt.Sprintf("%.1f", *b)
}
