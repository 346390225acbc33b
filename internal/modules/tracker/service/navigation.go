package service

import "notegenius/internal/modules/tracker/domain"

// watcher remembers the last route so repeated notifications for the same
// path are ignored.
type watcher struct {
	classifier domain.Classifier
	mounted    bool
	path       string
}

// onStudy reports whether the current route is a study route. Before the
// first route is known every position counts as study, which lets explicit
// starts from the command line track time.
func (w watcher) onStudy() bool {
	return !w.mounted || w.classifier.IsStudyRoute(w.path)
}

func (t *Tracker) onRoute(raw string) {
	path := domain.NormalizePath(raw)
	if !t.nav.mounted {
		t.nav.mounted = true
		t.nav.path = path
		if t.classifier.IsStudyRoute(path) && !t.phase.Active() && t.phase != domain.PhaseStarting {
			t.origin = originNavigation
			t.fire(domain.EventStart)
		}
		t.persist()
		return
	}
	if path == t.nav.path {
		return
	}
	prevStudy := t.classifier.IsStudyRoute(t.nav.path)
	nextStudy := t.classifier.IsStudyRoute(path)
	t.nav.path = path
	nav := domain.ClassifyNavigation(prevStudy, nextStudy)
	t.log.Debug("route change", nav.String(), path)
	t.origin = originNavigation
	event := nav.Event()
	// A paused session reaching a study route while hidden stays paused.
	if event == domain.EventStudyNavigation && !t.visible && t.phase.Paused() {
		event = domain.EventStudyNavigationHidden
	}
	t.fire(event)
	t.persist()
}
