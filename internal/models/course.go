package models

// Level is the difficulty band of a course.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// CourseSummary is the catalog card for a course.
type CourseSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Instructor    string   `json:"instructor"`
	DurationLabel string   `json:"duration"`
	StudentCount  int      `json:"student_count"`
	Level         Level    `json:"level"`
	Description   string   `json:"description"`
	Skills        []string `json:"skills"`
}

// Lesson is one unit of a course. Position in the owning slice is the lesson order.
type Lesson struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	DurationLabel string `json:"duration"`
	Completed     bool   `json:"completed"`
}

// Resource kinds shown on the resources tab.
const (
	ResourceKindPDF     = "pdf"
	ResourceKindSlides  = "slides"
	ResourceKindCode    = "code"
	ResourceKindDataset = "dataset"
)

// Resource is a downloadable file attached to a course.
type Resource struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Size  string `json:"size,omitempty"`
	S3Key string `json:"-"`
}

// DiscussionPost is a placeholder thread entry on the discussion tab.
type DiscussionPost struct {
	Author  string `json:"author"`
	Message string `json:"message"`
	Replies int    `json:"replies"`
}

// Classmate is a placeholder entry on the classmates tab.
type Classmate struct {
	Name     string `json:"name"`
	Headline string `json:"headline,omitempty"`
	Progress int    `json:"progress"`
}

// CourseContent is the static per-course material behind the content tabs.
type CourseContent struct {
	CourseID   string           `json:"course_id"`
	Overview   string           `json:"overview"`
	Outcomes   []string         `json:"outcomes,omitempty"`
	Resources  []Resource       `json:"resources"`
	Discussion []DiscussionPost `json:"discussion"`
	Classmates []Classmate      `json:"classmates"`
}

// FindResource returns the resource with the given id.
func (c *CourseContent) FindResource(id string) (Resource, bool) {
	for _, r := range c.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}
