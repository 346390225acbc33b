package domain

// Phase is the tracker's state machine state.
type Phase int

const (
	PhaseNoSession Phase = iota
	PhaseStarting
	PhaseRunning
	PhasePausedByNavigation
	PhasePausedByVisibility
	PhasePausedByInactivity
	PhasePausedByUser
	PhaseEnded
)

var phaseNames = map[Phase]string{
	PhaseNoSession:          "no_session",
	PhaseStarting:           "starting",
	PhaseRunning:            "running",
	PhasePausedByNavigation: "paused_by_navigation",
	PhasePausedByVisibility: "paused_by_visibility",
	PhasePausedByInactivity: "paused_by_inactivity",
	PhasePausedByUser:       "paused_by_user",
	PhaseEnded:              "ended",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

func (p Phase) Active() bool {
	return p != PhaseNoSession && p != PhaseStarting && p != PhaseEnded
}

func (p Phase) Paused() bool {
	return p.PauseReason() != PauseNone
}

func (p Phase) PauseReason() PauseReason {
	switch p {
	case PhasePausedByNavigation:
		return PauseNavigation
	case PhasePausedByVisibility:
		return PauseVisibility
	case PhasePausedByInactivity:
		return PauseInactivity
	case PhasePausedByUser:
		return PauseUser
	}
	return PauseNone
}

// PhaseForPause is the inverse of PauseReason for restored snapshots.
func PhaseForPause(reason PauseReason) Phase {
	switch reason {
	case PauseVisibility:
		return PhasePausedByVisibility
	case PauseInactivity:
		return PhasePausedByInactivity
	case PauseUser:
		return PhasePausedByUser
	}
	return PhasePausedByNavigation
}

type Event int

const (
	EventStart Event = iota
	EventStarted
	EventStartedAway
	EventStartedHidden
	EventStartFailed
	EventStudyNavigation
	EventStudyNavigationHidden
	EventLeaveStudy
	EventHidden
	EventVisible
	EventVisibleAway
	EventInput
	EventIdleWarn
	EventIdlePause
	EventIdleEnd
	EventExpired
	EventTogglePause
	EventEnd
)

var eventNames = map[Event]string{
	EventStart:                 "start",
	EventStarted:               "started",
	EventStartedAway:           "started_away",
	EventStartedHidden:         "started_hidden",
	EventStartFailed:           "start_failed",
	EventStudyNavigation:       "study_navigation",
	EventStudyNavigationHidden: "study_navigation_hidden",
	EventLeaveStudy:            "leave_study",
	EventHidden:                "hidden",
	EventVisible:               "visible",
	EventVisibleAway:           "visible_away",
	EventInput:                 "input",
	EventIdleWarn:              "idle_warn",
	EventIdlePause:             "idle_pause",
	EventIdleEnd:               "idle_end",
	EventExpired:               "expired",
	EventTogglePause:           "toggle_pause",
	EventEnd:                   "end",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// Effect is a set of side effects the tracker executes after a transition.
type Effect uint32

const (
	EffectRemoteCreate Effect = 1 << iota
	EffectRemoteEnd
	EffectStartTimer
	EffectStopTimer
	EffectArmIdle
	EffectDisarmIdle
	EffectMarkPaused
	EffectMarkResumed
	EffectReclassify
	EffectPersist
	EffectClearSnapshot
	EffectNotifyStarted
	EffectNotifyPaused
	EffectNotifyResumed
	EffectNotifyIdleWarning
	EffectNotifyEnded
)

func (e Effect) Has(flag Effect) bool {
	return e&flag == flag
}

type Transition struct {
	To      Phase
	Effects Effect
}

const (
	pause  = EffectStopTimer | EffectDisarmIdle | EffectMarkPaused | EffectPersist | EffectNotifyPaused
	resume = EffectMarkResumed | EffectStartTimer | EffectArmIdle | EffectPersist | EffectNotifyResumed
	finish = EffectStopTimer | EffectDisarmIdle | EffectRemoteEnd | EffectClearSnapshot | EffectNotifyEnded
	begin  = EffectStartTimer | EffectArmIdle | EffectPersist | EffectNotifyStarted | EffectReclassify
	create = EffectRemoteCreate

	// hiddenStudy moves a paused session onto a study route while the window
	// is hidden: the pause continues under the visibility reason.
	hiddenStudy = EffectMarkPaused | EffectReclassify | EffectPersist
)

var transitions = map[Phase]map[Event]Transition{
	PhaseNoSession: {
		EventStart:           {PhaseStarting, create},
		EventStudyNavigation: {PhaseStarting, create},
	},
	PhaseEnded: {
		EventStart:           {PhaseStarting, create},
		EventStudyNavigation: {PhaseStarting, create},
	},
	PhaseStarting: {
		EventStarted:       {PhaseRunning, begin},
		EventStartedAway:   {PhasePausedByNavigation, EffectMarkPaused | EffectPersist | EffectReclassify},
		EventStartedHidden: {PhasePausedByVisibility, EffectMarkPaused | EffectPersist | EffectReclassify},
		EventStartFailed:   {PhaseNoSession, 0},
	},
	PhaseRunning: {
		EventStudyNavigation: {PhaseRunning, EffectReclassify | EffectPersist},
		EventLeaveStudy:      {PhasePausedByNavigation, pause},
		EventHidden:          {PhasePausedByVisibility, pause &^ EffectNotifyPaused},
		EventVisible:         {PhaseRunning, EffectArmIdle},
		EventInput:           {PhaseRunning, EffectArmIdle},
		EventIdleWarn:        {PhaseRunning, EffectNotifyIdleWarning},
		EventIdlePause:       {PhasePausedByInactivity, (pause &^ EffectDisarmIdle)},
		EventIdleEnd:         {PhaseEnded, finish},
		EventExpired:         {PhaseEnded, finish},
		EventTogglePause:     {PhasePausedByUser, pause},
		EventEnd:             {PhaseEnded, finish},
	},
	PhasePausedByNavigation: {
		EventStudyNavigation:       {PhaseRunning, resume | EffectReclassify},
		EventStudyNavigationHidden: {PhasePausedByVisibility, hiddenStudy},
		EventTogglePause:           {PhaseRunning, resume},
		EventEnd:                   {PhaseEnded, finish},
		EventExpired:               {PhaseEnded, finish},
	},
	PhasePausedByVisibility: {
		EventVisible:               {PhaseRunning, resume &^ EffectNotifyResumed},
		EventVisibleAway:           {PhasePausedByNavigation, EffectMarkPaused | EffectPersist},
		EventStudyNavigation:       {PhasePausedByVisibility, EffectReclassify | EffectPersist},
		EventStudyNavigationHidden: {PhasePausedByVisibility, EffectReclassify | EffectPersist},
		EventLeaveStudy:            {PhasePausedByNavigation, EffectMarkPaused | EffectPersist},
		EventTogglePause:           {PhaseRunning, resume},
		EventEnd:                   {PhaseEnded, finish},
		EventExpired:               {PhaseEnded, finish},
	},
	PhasePausedByInactivity: {
		EventInput:                 {PhaseRunning, resume},
		EventVisible:               {PhaseRunning, resume},
		EventStudyNavigation:       {PhaseRunning, resume | EffectReclassify},
		EventStudyNavigationHidden: {PhasePausedByVisibility, hiddenStudy | EffectDisarmIdle},
		EventHidden:                {PhasePausedByVisibility, EffectDisarmIdle | EffectMarkPaused | EffectPersist},
		EventLeaveStudy:            {PhasePausedByNavigation, EffectDisarmIdle | EffectMarkPaused | EffectPersist},
		EventIdleEnd:               {PhaseEnded, finish},
		EventExpired:               {PhaseEnded, finish},
		EventTogglePause:           {PhaseRunning, resume},
		EventEnd:                   {PhaseEnded, finish},
	},
	PhasePausedByUser: {
		EventTogglePause:           {PhaseRunning, resume},
		EventStudyNavigation:       {PhaseRunning, resume | EffectReclassify},
		EventStudyNavigationHidden: {PhasePausedByVisibility, hiddenStudy},
		EventEnd:                   {PhaseEnded, finish},
		EventExpired:               {PhaseEnded, finish},
	},
}

// Next looks up the transition for event in phase. ok is false when the
// event has no meaning in that phase and must be ignored.
func Next(phase Phase, event Event) (Transition, bool) {
	row, ok := transitions[phase]
	if !ok {
		return Transition{}, false
	}
	t, ok := row[event]
	return t, ok
}
