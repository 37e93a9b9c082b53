package platform

import "time"

// InhibitorCheckInterval bounds how often logind is asked for inhibitors.
const InhibitorCheckInterval = 60 * time.Second

// InhibitorProvider reports whether another program currently blocks idle
// or sleep, such as a video player or a presentation tool.
type InhibitorProvider interface {
	Inhibited() bool
}

// NoInhibitors never reports an inhibitor.
type NoInhibitors struct{}

func (NoInhibitors) Inhibited() bool { return false }
