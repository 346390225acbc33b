package domain

import "strings"

type Activity string

const (
	ActivityGeneral        Activity = "general"
	ActivityFlashcardStudy Activity = "flashcard_study"
	ActivityNoteReview     Activity = "note_review"
	ActivityQuizTaking     Activity = "quiz_taking"
)

func (a Activity) Valid() bool {
	switch a {
	case ActivityGeneral, ActivityFlashcardStudy, ActivityNoteReview, ActivityQuizTaking:
		return true
	}
	return false
}

var activityPrefixes = []struct {
	prefix   string
	activity Activity
}{
	{"/flashcards", ActivityFlashcardStudy},
	{"/notes", ActivityNoteReview},
	{"/quiz", ActivityQuizTaking},
}

// Classifier maps navigation paths to activities and decides which paths
// count as study routes. Both use plain prefix matching on the normalised
// path, so "/quizzes/42" is quiz taking. It holds no mutable state.
type Classifier struct {
	studyPrefixes []string
}

func NewClassifier(studyPrefixes []string) Classifier {
	prefixes := make([]string, 0, len(studyPrefixes))
	for _, p := range studyPrefixes {
		if n := NormalizePath(p); n != "/" {
			prefixes = append(prefixes, n)
		}
	}
	return Classifier{studyPrefixes: prefixes}
}

func (c Classifier) Classify(path string) Activity {
	path = NormalizePath(path)
	for _, entry := range activityPrefixes {
		if strings.HasPrefix(path, entry.prefix) {
			return entry.activity
		}
	}
	return ActivityGeneral
}

func (c Classifier) IsStudyRoute(path string) bool {
	path = NormalizePath(path)
	for _, prefix := range c.studyPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// NormalizePath drops query, fragment and trailing slashes so that
// "/notes/", "/notes?x=1" and "/notes" compare equal.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

