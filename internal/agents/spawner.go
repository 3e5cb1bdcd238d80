// Person spawning: demographics and starting needs for new family members.
package agents

import (
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/world"
)

// Spawner creates persons with sequential IDs. Randomness comes from the
// caller's source so the world's RNG state stays the single stream.
type Spawner struct {
	nextID PersonID
	tuning Tuning
}

// NewSpawner creates a person spawner.
func NewSpawner(t Tuning) *Spawner {
	return &Spawner{nextID: 1, tuning: t}
}

// NextID returns the ID the next spawned person will get.
func (s *Spawner) NextID() PersonID { return s.nextID }

// Spawn creates one living person at pos belonging to family.
func (s *Spawner) Spawn(rng *entropy.Source, family uint64, pos world.Coord, adult bool, tick uint64) *Person {
	id := s.nextID
	s.nextID++

	sex := SexMale
	if rng.Chance(0.5) {
		sex = SexFemale
	}

	return &Person{
		ID:       id,
		Name:     s.generateName(rng, sex),
		Age:      s.age(rng, adult),
		Sex:      sex,
		FamilyID: family,
		Pos:      pos,
		Task:     TaskIdle,
		Hunger:   float64(rng.Range(0, 20)),
		Energy:   float64(rng.Range(70, 100)),
		Alive:    true,
		BornTick: tick,
	}
}

func (s *Spawner) age(rng *entropy.Source, adult bool) uint16 {
	adultAge := int(s.tuning.AdultAge)
	if adult {
		return uint16(rng.Range(adultAge, adultAge+34))
	}
	if adultAge <= 1 {
		return 0
	}
	return uint16(rng.Range(1, adultAge-1))
}

func (s *Spawner) generateName(rng *entropy.Source, sex Sex) string {
	firsts := maleNames
	if sex == SexFemale {
		firsts = femaleNames
	}
	return firsts[rng.Intn(len(firsts))]
}

// FamilyName picks a surname for a new household.
func FamilyName(rng *entropy.Source) string {
	return lastNames[rng.Intn(len(lastNames))]
}

var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron", "Ulric",
	"Varen", "Wren", "Yorick", "Zander", "Arlen", "Beric", "Cade",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Una", "Vera",
	"Willa", "Yara", "Zara", "Ava", "Birgit", "Cora", "Dagny",
}

var lastNames = []string{
	"Thornwood", "Ashford", "Dunmore", "Greenvale", "Hearthstone", "Millward",
	"Copperfield", "Ravenmoor", "Silverdale", "Stoneheart", "Deepwell",
	"Brightwater", "Windholm", "Marshwood", "Riverstone", "Embercroft",
	"Holloway", "Dawnridge", "Farrow", "Thatcher",
}
