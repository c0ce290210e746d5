package conventions

import (
	"github.com/rkooijman/bankproj/internal/registry"
)

// HQLAClass assigns the Basel liquidity haircut for a position's high
// quality liquid asset classification.
type HQLAClass struct {
	Haircut float64
}

// Contribution is the post-haircut fraction counting towards the HQLA
// buffer.
func (c HQLAClass) Contribution() float64 { return 1 - c.Haircut }

// HQLAClasses is the HQLA classification registry.
var HQLAClasses = newHQLAClasses()

func newHQLAClasses() *registry.Registry[HQLAClass] {
	r := registry.New[HQLAClass]("HQLA class")
	r.Register("Level 1", HQLAClass{Haircut: 0.0})
	r.Register("Level 2A", HQLAClass{Haircut: 0.15})
	r.Register("Level 2B corporate", HQLAClass{Haircut: 0.25})
	r.Register("Level 2B equity", HQLAClass{Haircut: 0.50})
	r.Register("Non-HQLA", HQLAClass{Haircut: 1.0})
	r.Register("N/a", HQLAClass{Haircut: 1.0})
	return r
}

// IFRS9Stage flags whether a credit stage counts as defaulted.
type IFRS9Stage struct {
	IsDefault bool
}

// IFRS9Stages is the IFRS 9 staging registry.
var IFRS9Stages = newIFRS9Stages()

func newIFRS9Stages() *registry.Registry[IFRS9Stage] {
	r := registry.New[IFRS9Stage]("IFRS 9 stage")
	r.Register("1", IFRS9Stage{})
	r.Register("2", IFRS9Stage{})
	r.Register("3", IFRS9Stage{IsDefault: true})
	r.Register("Poci", IFRS9Stage{IsDefault: true})
	r.Register("N/a", IFRS9Stage{})
	return r
}
