package portal

import "testing"

func TestDecodeStructural(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "scaffolding decoded, nested entity reduced one level",
			in:   `&lt;Course Title=&quot;A &amp;amp; B&quot;&gt;`,
			want: `<Course Title="A &amp; B">`,
		},
		{
			name: "real-quoted attribute values preserved exactly",
			in:   `&lt;Course Staff="O&amp;#39;Brien" Title="Art &amp;quot;X&amp;quot;"&gt;`,
			want: `<Course Staff="O&amp;#39;Brien" Title="Art &amp;quot;X&amp;quot;">`,
		},
		{
			name: "plain markup untouched",
			in:   `<Gradebook Type="Traditional"></Gradebook>`,
			want: `<Gradebook Type="Traditional"></Gradebook>`,
		},
		{
			name: "quotes and apostrophes in scaffolding",
			in:   `&lt;Mark Name=&quot;1st Qtr&quot;&gt;&#39;&lt;/Mark&gt;`,
			want: `<Mark Name="1st Qtr">'</Mark>`,
		},
		{
			name: "empty attribute value",
			in:   `&lt;Course Title="" Room="12"&gt;`,
			want: `<Course Title="" Room="12">`,
		},
		{
			name: "no markup at all",
			in:   `plain text with an &amp; ampersand`,
			want: `plain text with an & ampersand`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecodeStructural(tc.in); got != tc.want {
				t.Errorf("DecodeStructural(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

// A full inner round trip: the encoded gradebook becomes parseable markup and
// the course attributes survive into the parsed records.
func TestDecodeStructural_ThenParse(t *testing.T) {
	encoded := `&lt;Gradebook&gt;&lt;Courses&gt;` +
		`&lt;Course Title=&quot;AP Physics 2&quot; Staff=&quot;Nguyen, T&quot; Room=&quot;201&quot; Period=&quot;3&quot;&gt;` +
		`&lt;Marks&gt;&lt;Mark CalculatedScoreString=&quot;91.2 A-&quot; /&gt;&lt;/Marks&gt;` +
		`&lt;/Course&gt;&lt;/Courses&gt;&lt;/Gradebook&gt;`

	courses, err := ParseGradebook(DecodeStructural(encoded))
	if err != nil {
		t.Fatalf("ParseGradebook failed: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("got %d courses; want 1", len(courses))
	}
	if courses[0].Title != "AP Physics 2" {
		t.Errorf("Title = %q; want %q", courses[0].Title, "AP Physics 2")
	}
	if courses[0].CalculatedScore != "91.2 A-" {
		t.Errorf("CalculatedScore = %q; want %q", courses[0].CalculatedScore, "91.2 A-")
	}
}
