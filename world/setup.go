package world

// Setup is a staged builder: actor types, then trait types and their
// implementors, then handlers and spawners,
// then singleton seeding, and only after that may the network start and
// Step be called. Each stage's methods panic if called out of order,
// turning a misordered setup into an immediate, load-bearing failure
// instead of a subtly wrong first turn.
type Setup struct {
	w *World
}

// NewSetup begins staged setup for w, which must have just been
// constructed by New.
func NewSetup(w *World) *Setup { return &Setup{w: w} }

// RegisterActorType assigns the next dense actor-type id to name. Valid
// only before BeginTraits.
func (s *Setup) RegisterActorType(name string) uint16 {
	s.w.requireStage(stageTypes, "RegisterActorType")
	return s.w.reg.RegisterActorType(name)
}

// BeginTraits ends actor-type registration and opens trait registration.
func (s *Setup) BeginTraits() *Setup {
	s.w.requireStage(stageTypes, "BeginTraits")
	s.w.setupStage = stageTraits
	return s
}

// RegisterTraitType assigns the next dense trait-type id to name,
// declaring the message names every implementor must handle.
func (s *Setup) RegisterTraitType(name string, messages []string) uint16 {
	s.w.requireStage(stageTraits, "RegisterTraitType")
	return s.w.reg.RegisterTraitType(name, messages)
}

// RegisterImplementor declares that actorID implements traitID.
func (s *Setup) RegisterImplementor(traitID, actorID uint16) {
	s.w.requireStage(stageTraits, "RegisterImplementor")
	s.w.reg.RegisterImplementor(traitID, actorID)
}

// BeginHandlers ends trait registration and opens handler/spawner
// registration.
func (s *Setup) BeginHandlers() *Setup {
	s.w.requireStage(stageTraits, "BeginHandlers")
	s.w.setupStage = stageHandlers
	return s
}

// World exposes the World during the handler stage, so the package-level
// generic RegisterHandler/RegisterSpawner functions (which cannot be
// methods on Setup without Go supporting generic methods) can register
// against it.
func (s *Setup) World() *World {
	s.w.requireStage(stageHandlers, "Setup.World")
	return s.w
}

// BeginSingletons ends handler registration and opens singleton seeding.
func (s *Setup) BeginSingletons() *Setup {
	s.w.requireStage(stageHandlers, "BeginSingletons")
	s.w.setupStage = stageSingletons
	return s
}

// Singletons exposes the World during the singleton-seeding stage, where
// world.Spawn calls construct the process's well-known single instances
// (e.g. the Time actor of package temporal).
func (s *Setup) Singletons() *World {
	s.w.requireStage(stageSingletons, "Setup.Singletons")
	return s.w
}

// Finish runs the setup-time sanity check (every trait implementor has a
// handler for every message the trait declares) and returns the now-
// running World. The network layer must be started, and Step first
// called, only after Finish returns.
func (s *Setup) Finish() *World {
	s.w.requireStage(stageSingletons, "Finish")
	s.w.reg.Freeze()
	s.w.setupStage = stageRunning
	return s.w
}
