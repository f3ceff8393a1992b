package catalog

import (
	"context"

	"github.com/treppan-learn/backend/internal/models"
)

// DefaultCourseID is the course substituted for unknown ids when none is configured.
const DefaultCourseID = "ai-fundamentals"

// Course bundles everything the catalog knows about one course.
type Course struct {
	Summary models.CourseSummary
	Lessons []models.Lesson
	Content models.CourseContent
}

// FixtureProvider serves a fixed, in-memory catalog.
type FixtureProvider struct {
	order   []string
	courses map[string]Course
}

// NewFixtureProvider returns a provider over courses, in the given order. Later duplicates of an
// id are ignored.
func NewFixtureProvider(courses []Course) *FixtureProvider {
	p := &FixtureProvider{courses: make(map[string]Course, len(courses))}
	for _, c := range courses {
		if _, ok := p.courses[c.Summary.ID]; ok {
			continue
		}
		c.Content.CourseID = c.Summary.ID
		p.courses[c.Summary.ID] = c
		p.order = append(p.order, c.Summary.ID)
	}
	return p
}

// NewDefaultFixtureProvider returns the built-in catalog.
func NewDefaultFixtureProvider() *FixtureProvider {
	return NewFixtureProvider(DefaultCourses())
}

// Courses returns every course in catalog order (used by the seeder).
func (p *FixtureProvider) Courses() []Course {
	out := make([]Course, 0, len(p.order))
	for _, id := range p.order {
		c := p.courses[id]
		out = append(out, Course{
			Summary: copySummary(c.Summary),
			Lessons: cloneSlice(c.Lessons),
			Content: copyContent(c.Content),
		})
	}
	return out
}

// ListCourses implements Provider.
func (p *FixtureProvider) ListCourses(_ context.Context) ([]models.CourseSummary, error) {
	out := make([]models.CourseSummary, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, copySummary(p.courses[id].Summary))
	}
	return out, nil
}

// GetCourse implements Provider.
func (p *FixtureProvider) GetCourse(_ context.Context, courseID string) (*models.CourseSummary, error) {
	c, ok := p.courses[courseID]
	if !ok {
		return nil, ErrNotFound
	}
	s := copySummary(c.Summary)
	return &s, nil
}

// GetLessons implements Provider.
func (p *FixtureProvider) GetLessons(_ context.Context, courseID string) ([]models.Lesson, error) {
	c, ok := p.courses[courseID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSlice(c.Lessons), nil
}

// GetContent implements Provider.
func (p *FixtureProvider) GetContent(_ context.Context, courseID string) (*models.CourseContent, error) {
	c, ok := p.courses[courseID]
	if !ok {
		return nil, ErrNotFound
	}
	content := copyContent(c.Content)
	return &content, nil
}

// DefaultCourses is the built-in course catalog.
func DefaultCourses() []Course {
	return []Course{
		{
			Summary: models.CourseSummary{
				ID:            "ai-fundamentals",
				Title:         "AI Fundamentals",
				Instructor:    "Dr. Maya Lindqvist",
				DurationLabel: "2h 17m",
				StudentCount:  12480,
				Level:         models.LevelBeginner,
				Description:   "A practical introduction to machine learning, neural networks and deploying your first AI solution.",
				Skills:        []string{"Machine Learning", "Neural Networks", "Model Evaluation", "Deployment"},
			},
			Lessons: []models.Lesson{
				{ID: "lesson-1", Title: "Introduction to Machine Learning", DurationLabel: "12:30"},
				{ID: "lesson-2", Title: "Understanding Neural Networks", DurationLabel: "18:45"},
				{ID: "lesson-3", Title: "Deep Learning Fundamentals", DurationLabel: "25:12"},
				{ID: "lesson-4", Title: "Training Your First Model", DurationLabel: "32:18"},
				{ID: "lesson-5", Title: "Model Evaluation and Metrics", DurationLabel: "20:05"},
				{ID: "lesson-6", Title: "Deploying AI Solutions", DurationLabel: "28:42"},
			},
			Content: models.CourseContent{
				Overview: "Build intuition for how modern AI systems learn from data, then train, evaluate and ship a model end to end.",
				Outcomes: []string{
					"Explain supervised and unsupervised learning",
					"Train and evaluate a neural network",
					"Choose metrics that match a business goal",
					"Deploy a model behind an API",
				},
				Resources: []models.Resource{
					{ID: "course-notes", Title: "Course notes", Kind: models.ResourceKindPDF, Size: "2.4 MB", S3Key: "resources/ai-fundamentals/course-notes.pdf"},
					{ID: "slides", Title: "Lecture slides", Kind: models.ResourceKindSlides, Size: "8.1 MB", S3Key: "resources/ai-fundamentals/slides.pdf"},
					{ID: "starter-code", Title: "Starter notebook", Kind: models.ResourceKindCode, Size: "640 KB", S3Key: "resources/ai-fundamentals/starter-code.zip"},
				},
				Discussion: []models.DiscussionPost{
					{Author: "Priya N.", Message: "Is the activation function choice covered in lesson 3?", Replies: 4},
					{Author: "Tomás R.", Message: "Sharing my notes on precision vs recall.", Replies: 2},
				},
				Classmates: []models.Classmate{
					{Name: "Priya N.", Headline: "Data analyst", Progress: 64},
					{Name: "Tomás R.", Headline: "Backend engineer", Progress: 33},
					{Name: "Aiko S.", Headline: "Product manager", Progress: 100},
				},
			},
		},
		{
			Summary: models.CourseSummary{
				ID:            "applied-deep-learning",
				Title:         "Applied Deep Learning",
				Instructor:    "Prof. Daniel Okafor",
				DurationLabel: "1h 54m",
				StudentCount:  5310,
				Level:         models.LevelIntermediate,
				Description:   "Convolutional and sequence models applied to vision and language problems.",
				Skills:        []string{"CNNs", "Transformers", "Transfer Learning"},
			},
			Lessons: []models.Lesson{
				{ID: "lesson-1", Title: "Convolutional Networks in Practice", DurationLabel: "24:10"},
				{ID: "lesson-2", Title: "Sequence Models and Attention", DurationLabel: "31:05"},
				{ID: "lesson-3", Title: "Transfer Learning", DurationLabel: "27:40"},
				{ID: "lesson-4", Title: "Debugging Training Runs", DurationLabel: "31:20"},
			},
			Content: models.CourseContent{
				Overview: "Move from fundamentals to the architectures used in production vision and language systems.",
				Resources: []models.Resource{
					{ID: "course-notes", Title: "Course notes", Kind: models.ResourceKindPDF, Size: "3.0 MB", S3Key: "resources/applied-deep-learning/course-notes.pdf"},
					{ID: "dataset", Title: "Practice dataset", Kind: models.ResourceKindDataset, Size: "120 MB", S3Key: "resources/applied-deep-learning/dataset.zip"},
				},
			},
		},
		{
			Summary: models.CourseSummary{
				ID:            "llm-systems",
				Title:         "Building LLM Systems",
				Instructor:    "Dr. Maya Lindqvist",
				DurationLabel: "1h 38m",
				StudentCount:  8920,
				Level:         models.LevelAdvanced,
				Description:   "Retrieval, evaluation and serving for large language model applications.",
				Skills:        []string{"Prompting", "Retrieval", "Evaluation", "Serving"},
			},
			Lessons: []models.Lesson{
				{ID: "lesson-1", Title: "How LLMs Generate Text", DurationLabel: "22:15"},
				{ID: "lesson-2", Title: "Retrieval-Augmented Generation", DurationLabel: "29:30"},
				{ID: "lesson-3", Title: "Evaluating LLM Outputs", DurationLabel: "19:45"},
				{ID: "lesson-4", Title: "Serving at Scale", DurationLabel: "26:50"},
			},
			Content: models.CourseContent{
				Overview: "Design and operate applications built on large language models.",
				Resources: []models.Resource{
					{ID: "slides", Title: "Lecture slides", Kind: models.ResourceKindSlides, Size: "5.6 MB", S3Key: "resources/llm-systems/slides.pdf"},
				},
			},
		},
	}
}
