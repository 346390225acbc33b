package domain

// NavTransition is the kind of route change seen by the navigation watcher.
type NavTransition int

const (
	NavStudyToStudy NavTransition = iota
	NavEnterStudy
	NavLeaveStudy
	NavOutsideStudy
)

func (n NavTransition) String() string {
	switch n {
	case NavStudyToStudy:
		return "study->study"
	case NavEnterStudy:
		return "non-study->study"
	case NavLeaveStudy:
		return "study->non-study"
	default:
		return "non-study->non-study"
	}
}

func ClassifyNavigation(prevStudy, nextStudy bool) NavTransition {
	switch {
	case prevStudy && nextStudy:
		return NavStudyToStudy
	case nextStudy:
		return NavEnterStudy
	case prevStudy:
		return NavLeaveStudy
	default:
		return NavOutsideStudy
	}
}

// Event returns the state machine event for the transition. Both study-bound
// cases share one event: the machine decides between start, resume and
// reclassify from its current phase.
func (n NavTransition) Event() Event {
	if n == NavStudyToStudy || n == NavEnterStudy {
		return EventStudyNavigation
	}
	return EventLeaveStudy
}
