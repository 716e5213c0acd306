package portal

import "encoding/xml"

// CourseRecord is one course row extracted from a gradebook response. Fields
// the portal omits are empty strings, never errors; a course with no mark
// elements still appears with an empty CalculatedScore.
type CourseRecord struct {
	Title           string
	Teacher         string
	Room            string
	Period          string
	CalculatedScore string
}

// gradebookDoc mirrors the inner Gradebook document shape.
type gradebookDoc struct {
	XMLName xml.Name     `xml:"Gradebook"`
	Courses []courseElem `xml:"Courses>Course"`
}

type courseElem struct {
	Title  string     `xml:"Title,attr"`
	Staff  string     `xml:"Staff,attr"`
	Room   string     `xml:"Room,attr"`
	Period string     `xml:"Period,attr"`
	Marks  []markElem `xml:"Marks>Mark"`
}

type markElem struct {
	CalculatedScoreString string `xml:"CalculatedScoreString,attr"`
}

// ParseGradebook extracts course records from a decoded inner gradebook
// document. The score comes from the first Mark child of each course.
func ParseGradebook(decoded string) ([]CourseRecord, error) {
	var doc gradebookDoc
	if err := xml.Unmarshal([]byte(decoded), &doc); err != nil {
		return nil, &ProtocolError{Reason: "parse gradebook document", Err: err}
	}

	courses := make([]CourseRecord, 0, len(doc.Courses))
	for _, c := range doc.Courses {
		record := CourseRecord{
			Title:   c.Title,
			Teacher: c.Staff,
			Room:    c.Room,
			Period:  c.Period,
		}
		if len(c.Marks) > 0 {
			record.CalculatedScore = c.Marks[0].CalculatedScoreString
		}
		courses = append(courses, record)
	}
	return courses, nil
}

// childListDoc mirrors the inner ChildList document shape.
type childListDoc struct {
	XMLName  xml.Name    `xml:"ChildList"`
	Children []childElem `xml:"Child"`
}

type childElem struct {
	IntID string `xml:"ChildIntID,attr"`
	Name  string `xml:"ChildName,attr"`
}

// Child is one enrolled student as reported by the portal's ChildList call.
type Child struct {
	IntID string
	Name  string
}

// ParseChildList extracts the enrolled children from a decoded inner
// ChildList document.
func ParseChildList(decoded string) ([]Child, error) {
	var doc childListDoc
	if err := xml.Unmarshal([]byte(decoded), &doc); err != nil {
		return nil, &ProtocolError{Reason: "parse child list document", Err: err}
	}

	children := make([]Child, 0, len(doc.Children))
	for _, c := range doc.Children {
		children = append(children, Child{IntID: c.IntID, Name: c.Name})
	}
	return children, nil
}
