package arena

// Location identifies where an instance currently lives within a
// SizedBuckets: which bucket (by rank) and which slot within that
// bucket's ChunkedArena.
type Location struct {
	Rank int
	Slot int
}

// SlotMap translates instance_id → Location, tracks each instance_id's
// current version, and recycles retired ids via a free-list. All
// operations are O(1) amortized.
type SlotMap struct {
	locations []Location // indexed by instance_id
	versions  []uint8    // indexed by instance_id
	live      []bool     // indexed by instance_id
	freeList  []uint32
}

// NewSlotMap returns an empty SlotMap.
func NewSlotMap() *SlotMap {
	return &SlotMap{}
}

// Allocate returns a fresh (instance_id, version), reusing a retired id
// from the free-list when one is available.
func (s *SlotMap) Allocate() (instanceID uint32, version uint8) {
	if n := len(s.freeList); n > 0 {
		instanceID = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.live[instanceID] = true
		return instanceID, s.versions[instanceID]
	}
	instanceID = uint32(len(s.locations))
	s.locations = append(s.locations, Location{})
	s.versions = append(s.versions, 0)
	s.live = append(s.live, true)
	return instanceID, 0
}

// Associate records that instanceID now lives at loc. Called on every
// physical move (initial placement, resize, or swap-in during a
// neighbor's removal).
func (s *SlotMap) Associate(instanceID uint32, loc Location) {
	s.locations[instanceID] = loc
}

// Locate returns instanceID's current Location and whether it is still
// live at the given version. A stale version (the actor was destroyed and
// possibly replaced) yields ok == false, telling the caller to silently
// drop whatever packet was addressed to it.
func (s *SlotMap) Locate(instanceID uint32, version uint8) (Location, bool) {
	if int(instanceID) >= len(s.locations) || !s.live[instanceID] || s.versions[instanceID] != version {
		return Location{}, false
	}
	return s.locations[instanceID], true
}

// CurrentVersion returns instanceID's current generation counter,
// regardless of liveness.
func (s *SlotMap) CurrentVersion(instanceID uint32) uint8 {
	return s.versions[instanceID]
}

// IsLive reports whether instanceID currently names a live actor.
func (s *SlotMap) IsLive(instanceID uint32) bool {
	return int(instanceID) < len(s.live) && s.live[instanceID]
}

// Free retires instanceID: its version is bumped (invalidating any
// outstanding RawId referencing the old version, an ABA guard) and it is
// pushed onto the free-list for reuse by a future Allocate.
func (s *SlotMap) Free(instanceID uint32) {
	s.live[instanceID] = false
	s.versions[instanceID]++
	s.freeList = append(s.freeList, instanceID)
}
