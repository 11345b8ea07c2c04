package domain

// Mode identifies which physical backend is authoritative for a session.
type Mode string

const (
	// ModeLocal reads and writes the device-resident embedded database.
	ModeLocal Mode = "local"
	// ModeRemote reads and writes the shared backend.
	ModeRemote Mode = "remote"
)

// ParseMode returns the Mode for s, or ModeLocal when s is empty or unknown.
// Local is the safe default: it never blocks on the network.
func ParseMode(s string) Mode {
	if Mode(s) == ModeRemote {
		return ModeRemote
	}
	return ModeLocal
}

// Valid reports whether m is one of the two known modes.
func (m Mode) Valid() bool {
	return m == ModeLocal || m == ModeRemote
}
