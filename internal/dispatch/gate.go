package dispatch

import "github.com/foxseedlab/dispatchd/internal/session"

// deliverWhilePermitted walks one member's sessions in registry order and
// delivers to each session allow accepts. The first rejection ends the walk:
// later sessions are neither evaluated nor delivered to. It returns how many
// sessions were delivered to.
func deliverWhilePermitted(sessions []session.Session, allow func(session.Session) bool, deliver func(session.Session)) int {
	delivered := 0
	for _, s := range sessions {
		if !allow(s) {
			break
		}
		deliver(s)
		delivered++
	}
	return delivered
}
