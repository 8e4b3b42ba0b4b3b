package domain

// Phase is the tag of an InterfaceState.
type Phase int

const (
	// PhaseAbsent means no interface currently satisfies the class.
	PhaseAbsent Phase = iota
	// PhasePresentIncomplete means an interface is bound but its
	// capabilities or link properties have not been observed yet.
	PhasePresentIncomplete
	// PhasePresentValid means both snapshots have been observed.
	PhasePresentValid
)

func (p Phase) String() string {
	switch p {
	case PhaseAbsent:
		return "absent"
	case PhasePresentIncomplete:
		return "incomplete"
	case PhasePresentValid:
		return "valid"
	default:
		return "unknown"
	}
}

// InterfaceState is the registry's view of one class. The zero value is Absent.
//
// States are values: transitions return a new state and never mutate the
// receiver, so a copy handed to a reader stays stable.
type InterfaceState struct {
	phase  Phase
	handle Handle
	caps   *Capabilities
	link   *LinkProperties
}

// Absent returns the state of a class with no bound interface.
func Absent() InterfaceState {
	return InterfaceState{}
}

// Available returns the state of a freshly bound interface with no properties yet.
func Available(h Handle) InterfaceState {
	return InterfaceState{phase: PhasePresentIncomplete, handle: h}
}

func (s InterfaceState) Phase() Phase { return s.phase }

// Present reports whether an interface is bound, valid or not.
func (s InterfaceState) Present() bool { return s.phase != PhaseAbsent }

// Handle returns the bound interface; ok is false when absent.
func (s InterfaceState) Handle() (Handle, bool) {
	return s.handle, s.Present()
}

// Capabilities returns the last observed capabilities, if any.
func (s InterfaceState) Capabilities() (Capabilities, bool) {
	if s.caps == nil {
		return Capabilities{}, false
	}
	return *s.caps, true
}

// LinkProperties returns the last observed link properties, if any.
func (s InterfaceState) LinkProperties() (LinkProperties, bool) {
	if s.link == nil {
		return LinkProperties{}, false
	}
	return s.link.Clone(), true
}

// WithCapabilities records a capabilities snapshot. Absent states are returned unchanged.
func (s InterfaceState) WithCapabilities(c Capabilities) InterfaceState {
	if !s.Present() {
		return s
	}
	s.caps = &c
	s.phase = s.derivePhase()
	return s
}

// WithLinkProperties records a link properties snapshot. Absent states are returned unchanged.
func (s InterfaceState) WithLinkProperties(l LinkProperties) InterfaceState {
	if !s.Present() {
		return s
	}
	lp := l.Clone()
	s.link = &lp
	s.phase = s.derivePhase()
	return s
}

func (s InterfaceState) derivePhase() Phase {
	if s.caps != nil && s.link != nil {
		return PhasePresentValid
	}
	return PhasePresentIncomplete
}

// Valid returns the interface as a failover candidate. ok is false unless the
// state is PhasePresentValid.
func (s InterfaceState) Valid() (ValidInterface, bool) {
	if s.phase != PhasePresentValid {
		return ValidInterface{}, false
	}
	return ValidInterface{
		handle: s.handle,
		caps:   *s.caps,
		link:   s.link.Clone(),
	}, true
}

// ValidInterface is an interface whose capabilities and link properties are
// both known. It can only be obtained through InterfaceState.Valid.
type ValidInterface struct {
	handle Handle
	caps   Capabilities
	link   LinkProperties
}

func (v ValidInterface) Handle() Handle                 { return v.handle }
func (v ValidInterface) Capabilities() Capabilities     { return v.caps }
func (v ValidInterface) LinkProperties() LinkProperties { return v.link }
