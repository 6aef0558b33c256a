package core

// TimerID identifies one of the periodic timer slots.
type TimerID uint8

// Timer slots. The ids match the hardware timer numbering of the robot
// boards: the clock timer drives the phase/command counters, the comm timer
// drives the transceiver and the obstacle timer drives distance sampling.
const (
	TimerClock TimerID = iota
	TimerComm
	TimerObstacle
	TimerSpare

	MaxTimers
)

// PeriodicClock fires registered callbacks every N base ticks.
type PeriodicClock interface {
	// Init registers handler to run every period ticks and starts the timer.
	// Returns ErrInvalidTimer for an id outside the slot range and
	// ErrTimerInUse if the slot is already initialized.
	Init(id TimerID, period uint32, handler func()) error

	Start(id TimerID) error
	Stop(id TimerID) error
}

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Period   uint32
	Handler  func(*Timer) uint8
	Next     *Timer

	fn      func()
	inUse   bool
	running bool
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler is a sorted list of periodic timers advanced one base tick at a
// time, either by a hardware alarm interrupt or by a simulation loop.
type Scheduler struct {
	slots [MaxTimers]Timer
	list  *Timer
	now   uint32
}

// Now returns the current base tick.
func (s *Scheduler) Now() uint32 {
	return s.now
}

// Init implements PeriodicClock.
func (s *Scheduler) Init(id TimerID, period uint32, handler func()) error {
	if id >= MaxTimers {
		return ErrInvalidTimer
	}
	if period == 0 {
		return ErrInvalidPeriod
	}

	state := enterCritical()
	defer exitCritical(state)

	t := &s.slots[id]
	if t.inUse {
		return ErrTimerInUse
	}
	t.inUse = true
	t.Period = period
	t.fn = handler
	t.Handler = periodicHandler
	s.start(t)
	return nil
}

// Deinit stops a timer and frees its slot.
func (s *Scheduler) Deinit(id TimerID) {
	if id >= MaxTimers {
		return
	}
	state := enterCritical()
	defer exitCritical(state)

	t := &s.slots[id]
	s.remove(t)
	*t = Timer{}
}

// Start implements PeriodicClock. Starting a running timer is a no-op.
func (s *Scheduler) Start(id TimerID) error {
	t, err := s.slot(id)
	if err != nil {
		return err
	}
	state := enterCritical()
	defer exitCritical(state)

	if !t.running {
		s.start(t)
	}
	return nil
}

// Stop implements PeriodicClock.
func (s *Scheduler) Stop(id TimerID) error {
	t, err := s.slot(id)
	if err != nil {
		return err
	}
	state := enterCritical()
	defer exitCritical(state)

	s.remove(t)
	return nil
}

// Running reports whether the timer in slot id is scheduled.
func (s *Scheduler) Running(id TimerID) bool {
	if id >= MaxTimers {
		return false
	}
	return s.slots[id].running
}

// Advance moves the scheduler forward by one base tick and dispatches every
// timer that became due.
func (s *Scheduler) Advance() {
	s.Dispatch(s.now + 1)
}

// Dispatch processes due timers
func (s *Scheduler) Dispatch(now uint32) {
	state := enterCritical()
	defer exitCritical(state)

	s.now = now
	for s.list != nil && !before(now, s.list.WakeTime) {
		timer := s.list
		s.list = timer.Next
		timer.Next = nil
		timer.running = false

		if timer.Handler(timer) == SF_RESCHEDULE {
			timer.running = true
			s.insert(timer)
		}
	}
}

func (s *Scheduler) slot(id TimerID) (*Timer, error) {
	if id >= MaxTimers {
		return nil, ErrInvalidTimer
	}
	t := &s.slots[id]
	if !t.inUse {
		return nil, ErrTimerNotConfigured
	}
	return t, nil
}

func (s *Scheduler) start(t *Timer) {
	t.WakeTime = s.now + t.Period
	t.running = true
	s.insert(t)
}

// insert inserts a timer in sorted order by WakeTime
func (s *Scheduler) insert(t *Timer) {
	if s.list == nil || before(t.WakeTime, s.list.WakeTime) {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && !before(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

func (s *Scheduler) remove(t *Timer) {
	t.running = false
	if s.list == t {
		s.list = t.Next
		t.Next = nil
		return
	}
	for current := s.list; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// periodicHandler runs the registered callback and re-arms the timer.
func periodicHandler(t *Timer) uint8 {
	t.fn()
	t.WakeTime += t.Period
	return SF_RESCHEDULE
}

// before reports whether tick a comes strictly before tick b, tolerating
// counter wrap-around.
func before(a, b uint32) bool {
	return int32(a-b) < 0
}
